package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"travelbooking/internal/domain"
	"travelbooking/internal/metrics"
	"travelbooking/internal/models"

	"github.com/google/uuid"
)

const packageColumns = `id, title, description, price, duration, destination, availability, capacity, created_at, updated_at`

func (db *DB) CreatePackage(ctx context.Context, pkg *models.TravelPackage) error {
	if pkg.ID == "" {
		pkg.ID = uuid.NewString()
	}
	if pkg.Capacity < pkg.Availability {
		pkg.Capacity = pkg.Availability
	}

	now := time.Now().UTC()
	query := `INSERT INTO packages (` + packageColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		pkg.ID,
		pkg.Title,
		pkg.Description,
		pkg.Price,
		pkg.Duration,
		pkg.Destination,
		pkg.Availability,
		pkg.Capacity,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Errorf(domain.ErrConflict, "package %s already exists", pkg.ID)
		}
		return fmt.Errorf("failed to create package: %w", err)
	}

	pkg.CreatedAt = now
	pkg.UpdatedAt = now
	return nil
}

func (db *DB) GetPackage(ctx context.Context, id string) (*models.TravelPackage, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE id = ?`
	pkg, err := scanPackage(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("package", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get package %s: %w", id, err)
	}
	return pkg, nil
}

func (db *DB) ListPackages(ctx context.Context) ([]*models.TravelPackage, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+packageColumns+` FROM packages ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	var packages []*models.TravelPackage
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		packages = append(packages, pkg)
	}
	return packages, rows.Err()
}

func (db *DB) UpdatePackage(ctx context.Context, pkg *models.TravelPackage) error {
	if pkg.Capacity < pkg.Availability {
		pkg.Capacity = pkg.Availability
	}

	now := time.Now().UTC()
	query := `UPDATE packages SET title = ?, description = ?, price = ?, duration = ?, destination = ?,
                availability = ?, capacity = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query,
		pkg.Title,
		pkg.Description,
		pkg.Price,
		pkg.Duration,
		pkg.Destination,
		pkg.Availability,
		pkg.Capacity,
		now,
		pkg.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update package %s: %w", pkg.ID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return notFound("package", pkg.ID)
	}
	pkg.UpdatedAt = now
	return nil
}

// DeletePackage removes the catalog entry only; bookings that reference it stay
// in storage and are hidden from list views.
func (db *DB) DeletePackage(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM packages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete package %s: %w", id, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return notFound("package", id)
	}
	return nil
}

// Reserve takes count units in one conditional statement, so concurrent callers
// can never drive availability below zero.
func (db *DB) Reserve(ctx context.Context, packageID string, count int64) (int64, error) {
	if count <= 0 {
		return 0, domain.Errorf(domain.ErrValidation, "reserve count must be positive, got %d", count)
	}

	query := `UPDATE packages SET availability = availability - ?, updated_at = ?
              WHERE id = ? AND availability >= ? RETURNING availability`
	var availability int64
	err := db.QueryRowContext(ctx, query, count, time.Now().UTC(), packageID, count).Scan(&availability)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.IncInventoryOp("reserve", "rejected")
		return 0, db.reserveFailure(ctx, packageID)
	}
	if err != nil {
		metrics.IncInventoryOp("reserve", "error")
		return 0, fmt.Errorf("failed to reserve package %s: %w", packageID, err)
	}

	metrics.IncInventoryOp("reserve", "ok")
	db.logger.Debug().Str("package_id", packageID).Int64("availability", availability).Msg("Inventory reserved")
	return availability, nil
}

func (db *DB) reserveFailure(ctx context.Context, packageID string) error {
	var exists int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM packages WHERE id = ?`, packageID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("package", packageID)
	}
	if err != nil {
		return fmt.Errorf("failed to check package %s: %w", packageID, err)
	}
	return domain.Errorf(domain.ErrOutOfStock, "package %s", packageID)
}

// Release returns count units. There is no upper bound; a release above the
// recorded capacity is logged and counted.
func (db *DB) Release(ctx context.Context, packageID string, count int64) (int64, error) {
	if count <= 0 {
		return 0, domain.Errorf(domain.ErrValidation, "release count must be positive, got %d", count)
	}

	query := `UPDATE packages SET availability = availability + ?, updated_at = ?
              WHERE id = ? RETURNING availability, capacity`
	var availability, capacity int64
	err := db.QueryRowContext(ctx, query, count, time.Now().UTC(), packageID).Scan(&availability, &capacity)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.IncInventoryOp("release", "rejected")
		return 0, notFound("package", packageID)
	}
	if err != nil {
		metrics.IncInventoryOp("release", "error")
		return 0, fmt.Errorf("failed to release package %s: %w", packageID, err)
	}

	metrics.IncInventoryOp("release", "ok")
	if capacity > 0 && availability > capacity {
		metrics.IncOverRelease()
		db.logger.Warn().
			Str("package_id", packageID).
			Int64("availability", availability).
			Int64("capacity", capacity).
			Msg("Availability above package capacity after release")
	}
	return availability, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPackage(row rowScanner) (*models.TravelPackage, error) {
	var pkg models.TravelPackage
	err := row.Scan(
		&pkg.ID, &pkg.Title, &pkg.Description, &pkg.Price, &pkg.Duration, &pkg.Destination,
		&pkg.Availability, &pkg.Capacity, &pkg.CreatedAt, &pkg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}
