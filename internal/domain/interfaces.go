package domain

import (
	"context"
	"time"

	"travelbooking/internal/models"
)

// InventoryLedger owns package availability. Both operations are single atomic
// conditional updates and return the new availability.
type InventoryLedger interface {
	Reserve(ctx context.Context, packageID string, count int64) (int64, error)
	Release(ctx context.Context, packageID string, count int64) (int64, error)
}

type PackageStore interface {
	CreatePackage(ctx context.Context, pkg *models.TravelPackage) error
	GetPackage(ctx context.Context, id string) (*models.TravelPackage, error)
	ListPackages(ctx context.Context) ([]*models.TravelPackage, error)
	UpdatePackage(ctx context.Context, pkg *models.TravelPackage) error
	DeletePackage(ctx context.Context, id string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsersWithBookingCounts(ctx context.Context) ([]*models.UserBookingCount, error)
	ListUsersByPackage(ctx context.Context, packageID string) ([]*models.User, error)
}

type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetBookingByPaymentID(ctx context.Context, paymentID string) (*models.Booking, error)
	TransitionBooking(ctx context.Context, tr models.BookingTransition) (*models.Booking, error)
	SetPaymentFields(ctx context.Context, id string, fromVersion int64, paymentID, paymentStatus string) error
	SetRatingReview(ctx context.Context, id, callerID string, rating int, review string) (*models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error)
	ListBookingsByStatus(ctx context.Context, status models.BookingStatus) ([]*models.Booking, error)
	ListAllBookings(ctx context.Context) ([]*models.Booking, error)
	PaymentAnalytics(ctx context.Context, r models.AnalyticsRange) (*models.PaymentAnalytics, error)
}

// PaymentGateway is the contract every payment provider adapter satisfies.
type PaymentGateway interface {
	Name() string
	CreateIntent(ctx context.Context, req models.IntentRequest) (*models.PaymentIntent, error)
	GetIntent(ctx context.Context, intentID string) (*models.PaymentIntent, error)
	Refund(ctx context.Context, req models.RefundRequest) (*models.Refund, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// TaskQueue accepts detached background work.
type TaskQueue interface {
	Enqueue(ctx context.Context, taskType, bookingID string, payload interface{}) (*models.Task, error)
}

type TaskStore interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetPendingTasks(ctx context.Context, limit int) ([]models.Task, error)
	ClaimTask(ctx context.Context, id int64) (bool, error)
	RequeueInterrupted(ctx context.Context) (int64, error)
	UpdateTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
}

// Notifier delivers human-readable messages to operators.
type Notifier interface {
	NotifyAdmins(ctx context.Context, text string) error
}

// IdempotencyStore remembers responses keyed by client-supplied idempotency keys.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Claim stores value only if key is absent and reports whether it did.
	Claim(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
