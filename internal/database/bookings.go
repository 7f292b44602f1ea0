package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"travelbooking/internal/domain"
	"travelbooking/internal/models"

	"github.com/google/uuid"
)

const bookingSelect = `SELECT b.id, b.user_id, b.package_id, b.date, b.status, b.payment_id, b.payment_status,
       b.payment_method, b.total_amount, b.rating, b.review, b.reserved, b.created_at, b.updated_at, b.version,
       p.id, p.title, p.description, p.price, p.duration, p.destination, p.availability, p.capacity,
       u.id, u.username, u.email, u.role
FROM bookings b `

// joins that keep bookings whose package was deleted
const bookingJoinsAll = `LEFT JOIN packages p ON p.id = b.package_id LEFT JOIN users u ON u.id = b.user_id `

// joins that hide bookings whose package was deleted
const bookingJoinsLive = `JOIN packages p ON p.id = b.package_id LEFT JOIN users u ON u.id = b.user_id `

// CreateBooking inserts the booking and appends it to the user's ordered booking
// references in one transaction.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := rowExists(ctx, tx, `SELECT 1 FROM users WHERE id = ?`, booking.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("user", booking.UserID)
		}
		return fmt.Errorf("failed to check user: %w", err)
	}
	if err := rowExists(ctx, tx, `SELECT 1 FROM packages WHERE id = ?`, booking.PackageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("package", booking.PackageID)
		}
		return fmt.Errorf("failed to check package: %w", err)
	}

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	queryInsert := `INSERT INTO bookings (
				id, user_id, package_id, date, status, payment_id, payment_status, payment_method,
				total_amount, rating, review, reserved, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, queryInsert,
		booking.ID,
		booking.UserID,
		booking.PackageID,
		booking.Date,
		booking.Status,
		booking.PaymentID,
		booking.PaymentStatus,
		booking.PaymentMethod,
		booking.TotalAmount,
		booking.Rating,
		booking.Review,
		booking.Reserved,
		now,
		now,
		1,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return paymentTaken(booking.PaymentID)
		}
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	queryRef := `INSERT INTO user_bookings (user_id, booking_id, position)
                 SELECT ?, ?, COALESCE(MAX(position), 0) + 1 FROM user_bookings WHERE user_id = ?`
	if _, err := tx.ExecContext(ctx, queryRef, booking.UserID, booking.ID, booking.UserID); err != nil {
		return fmt.Errorf("failed to link booking to user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

func rowExists(ctx context.Context, tx *sql.Tx, query string, id string) error {
	var one int
	return tx.QueryRowContext(ctx, query, id).Scan(&one)
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, bookingSelect+bookingJoinsAll+`WHERE b.id = ?`, id)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("booking", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %s: %w", id, err)
	}
	return booking, nil
}

// TransitionBooking applies a status change only if the row still has the
// expected version and status. Nil payment fields leave stored values untouched.
func (db *DB) TransitionBooking(ctx context.Context, tr models.BookingTransition) (*models.Booking, error) {
	query := `UPDATE bookings SET
                status = ?,
                payment_id = COALESCE(?, payment_id),
                payment_status = COALESCE(?, payment_status),
                payment_method = COALESCE(?, payment_method),
                total_amount = COALESCE(?, total_amount),
                reserved = ?,
                version = version + 1,
                updated_at = ?
              WHERE id = ? AND version = ? AND status = ?`
	result, err := db.ExecContext(ctx, query,
		tr.ToStatus,
		tr.PaymentID,
		tr.PaymentStatus,
		tr.PaymentMethod,
		tr.TotalAmount,
		tr.Reserved,
		time.Now().UTC(),
		tr.BookingID,
		tr.FromVersion,
		tr.FromStatus,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, paymentTaken(tr.PaymentID)
		}
		return nil, fmt.Errorf("failed to transition booking %s: %w", tr.BookingID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, db.versionMiss(ctx, tr.BookingID)
	}
	return db.GetBooking(ctx, tr.BookingID)
}

func (db *DB) SetPaymentFields(ctx context.Context, id string, fromVersion int64, paymentID, paymentStatus string) error {
	query := `UPDATE bookings SET payment_id = ?, payment_status = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, paymentID, paymentStatus, time.Now().UTC(), id, fromVersion)
	if err != nil {
		if isUniqueViolation(err) {
			return paymentTaken(&paymentID)
		}
		return fmt.Errorf("failed to set payment fields on %s: %w", id, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return db.versionMiss(ctx, id)
	}
	return nil
}

// GetBookingByPaymentID returns the booking that recorded paymentID.
func (db *DB) GetBookingByPaymentID(ctx context.Context, paymentID string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, bookingSelect+bookingJoinsAll+`WHERE b.payment_id = ?`, paymentID)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("booking for payment", paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking for payment %s: %w", paymentID, err)
	}
	return booking, nil
}

func paymentTaken(paymentID *string) error {
	id := ""
	if paymentID != nil {
		id = *paymentID
	}
	return domain.Errorf(domain.ErrConflict, "payment %s is already used by another booking", id)
}

func (db *DB) versionMiss(ctx context.Context, id string) error {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("booking", id)
	}
	if err != nil {
		return fmt.Errorf("failed to check booking %s: %w", id, err)
	}
	return domain.ErrConcurrentModification
}

// SetRatingReview records the owner's single rating for a booking.
func (db *DB) SetRatingReview(ctx context.Context, id, callerID string, rating int, review string) (*models.Booking, error) {
	if rating < models.MinRating || rating > models.MaxRating {
		return nil, domain.Errorf(domain.ErrValidation, "rating must be between %d and %d", models.MinRating, models.MaxRating)
	}

	query := `UPDATE bookings SET rating = ?, review = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND user_id = ? AND rating IS NULL`
	result, err := db.ExecContext(ctx, query, rating, review, time.Now().UTC(), id, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to rate booking %s: %w", id, err)
	}
	if rows, _ := result.RowsAffected(); rows == 1 {
		return db.GetBooking(ctx, id)
	}

	var ownerID string
	var existing sql.NullInt64
	err = db.QueryRowContext(ctx, `SELECT user_id, rating FROM bookings WHERE id = ?`, id).Scan(&ownerID, &existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFound("booking", id)
	case err != nil:
		return nil, fmt.Errorf("failed to check booking %s: %w", id, err)
	case ownerID != callerID:
		return nil, domain.Errorf(domain.ErrForbidden, "only the booking owner can rate it")
	default:
		return nil, domain.Errorf(domain.ErrConflict, "booking %s already rated", id)
	}
}

func (db *DB) ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	query := bookingSelect + bookingJoinsLive +
		`JOIN user_bookings ub ON ub.booking_id = b.id AND ub.user_id = b.user_id
         WHERE b.user_id = ? ORDER BY ub.position ASC`
	return db.queryBookings(ctx, query, userID)
}

func (db *DB) ListBookingsByStatus(ctx context.Context, status models.BookingStatus) ([]*models.Booking, error) {
	query := bookingSelect + bookingJoinsLive + `WHERE b.status = ? ORDER BY b.created_at DESC`
	return db.queryBookings(ctx, query, status)
}

func (db *DB) ListAllBookings(ctx context.Context) ([]*models.Booking, error) {
	return db.queryBookings(ctx, bookingSelect+bookingJoinsLive+`ORDER BY b.created_at DESC`)
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// PaymentAnalytics aggregates bookings with a succeeded payment. Totals include
// bookings whose package was deleted; per-package stats only cover live packages.
func (db *DB) PaymentAnalytics(ctx context.Context, r models.AnalyticsRange) (*models.PaymentAnalytics, error) {
	where := ` WHERE b.payment_status = ?`
	args := []any{models.PaymentStatusSucceeded}
	if !r.Start.IsZero() {
		where += ` AND b.created_at >= ?`
		args = append(args, r.Start.UTC())
	}
	if !r.End.IsZero() {
		where += ` AND b.created_at <= ?`
		args = append(args, r.End.UTC())
	}

	result := &models.PaymentAnalytics{PackageStats: []models.PackageStat{}}
	totals := `SELECT COUNT(b.id), COALESCE(SUM(b.total_amount), 0) FROM bookings b` + where
	if err := db.QueryRowContext(ctx, totals, args...).Scan(&result.TotalBookings, &result.TotalRevenue); err != nil {
		return nil, fmt.Errorf("failed to query payment totals: %w", err)
	}

	perPackage := `SELECT p.id, p.title, COUNT(b.id), COALESCE(SUM(b.total_amount), 0)
              FROM bookings b JOIN packages p ON p.id = b.package_id` + where +
		` GROUP BY p.id, p.title ORDER BY 4 DESC`
	rows, err := db.QueryContext(ctx, perPackage, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment analytics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.PackageStat
		if err := rows.Scan(&s.PackageID, &s.PackageTitle, &s.Bookings, &s.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan package stat: %w", err)
		}
		result.PackageStats = append(result.PackageStats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if result.TotalBookings > 0 {
		result.AverageBookingValue = result.TotalRevenue / float64(result.TotalBookings)
	}
	return result, nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b                                       models.Booking
		paymentID, paymentStatus, paymentMethod sql.NullString
		rating                                  sql.NullInt64
		review                                  sql.NullString
		pID, pTitle, pDesc, pDuration, pDest    sql.NullString
		pPrice                                  sql.NullFloat64
		pAvail, pCap                            sql.NullInt64
		uID, uName, uEmail, uRole               sql.NullString
	)

	err := row.Scan(
		&b.ID, &b.UserID, &b.PackageID, &b.Date, &b.Status, &paymentID, &paymentStatus,
		&paymentMethod, &b.TotalAmount, &rating, &review, &b.Reserved, &b.CreatedAt, &b.UpdatedAt, &b.Version,
		&pID, &pTitle, &pDesc, &pPrice, &pDuration, &pDest, &pAvail, &pCap,
		&uID, &uName, &uEmail, &uRole,
	)
	if err != nil {
		return nil, err
	}

	b.PaymentID = nullString(paymentID)
	b.PaymentStatus = nullString(paymentStatus)
	b.PaymentMethod = nullString(paymentMethod)
	b.Review = nullString(review)
	if rating.Valid {
		v := int(rating.Int64)
		b.Rating = &v
	}

	if pID.Valid {
		b.Package = &models.TravelPackage{
			ID:           pID.String,
			Title:        pTitle.String,
			Description:  pDesc.String,
			Price:        pPrice.Float64,
			Duration:     pDuration.String,
			Destination:  pDest.String,
			Availability: pAvail.Int64,
			Capacity:     pCap.Int64,
		}
	}
	if uID.Valid {
		b.User = &models.User{
			ID:       uID.String,
			Username: uName.String,
			Email:    uEmail.String,
			Role:     models.Role(uRole.String),
		}
	}
	return &b, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
