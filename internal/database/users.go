package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"travelbooking/internal/domain"
	"travelbooking/internal/models"

	"github.com/google/uuid"
)

const userColumns = `id, username, email, password_hash, role, created_at, updated_at`

// NormalizeEmail is the canonical stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.Email = NormalizeEmail(user.Email)
	user.Username = strings.TrimSpace(user.Username)

	if err := db.checkUserUnique(ctx, user); err != nil {
		return err
	}

	now := time.Now().UTC()
	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Errorf(domain.ErrConflict, "user already exists")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (db *DB) checkUserUnique(ctx context.Context, user *models.User) error {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, user.Email).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if n > 0 {
		return domain.Errorf(domain.ErrConflict, "user with this email already exists")
	}

	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, user.Username).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if n > 0 {
		return domain.Errorf(domain.ErrConflict, "username already taken")
	}
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}

	user.BookingIDs, err = db.userBookingIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = NormalizeEmail(email)
	user, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (db *DB) userBookingIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT booking_id FROM user_bookings WHERE user_id = ? ORDER BY position ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking refs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan booking ref: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (db *DB) ListUsersWithBookingCounts(ctx context.Context) ([]*models.UserBookingCount, error) {
	query := `SELECT u.id, u.username, u.email, u.password_hash, u.role, u.created_at, u.updated_at,
                     COUNT(ub.booking_id)
              FROM users u LEFT JOIN user_bookings ub ON ub.user_id = u.id
              GROUP BY u.id ORDER BY u.created_at DESC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var result []*models.UserBookingCount
	for rows.Next() {
		var row models.UserBookingCount
		u := &row.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
			&u.CreatedAt, &u.UpdatedAt, &row.BookingCount); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		result = append(result, &row)
	}
	return result, rows.Err()
}

// ListUsersByPackage returns each user who booked the package, once.
func (db *DB) ListUsersByPackage(ctx context.Context, packageID string) ([]*models.User, error) {
	query := `SELECT DISTINCT u.id, u.username, u.email, u.password_hash, u.role, u.created_at, u.updated_at
              FROM users u JOIN bookings b ON b.user_id = u.id
              WHERE b.package_id = ? ORDER BY u.username ASC`
	rows, err := db.QueryContext(ctx, query, packageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by package: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
