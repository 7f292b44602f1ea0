package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"travelbooking/internal/auth"
	"travelbooking/internal/database"
	"travelbooking/internal/events"
	"travelbooking/internal/models"
	"travelbooking/internal/payment"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	mu    sync.Mutex
	tasks []*models.Task
}

func (q *recordingQueue) Enqueue(_ context.Context, taskType, bookingID string, payload interface{}) (*models.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	task := &models.Task{
		ID:        int64(len(q.tasks) + 1),
		TaskType:  taskType,
		BookingID: bookingID,
		Payload:   string(raw),
		Status:    models.TaskStatusPending,
		CreatedAt: time.Now(),
	}
	q.tasks = append(q.tasks, task)
	return task, nil
}

func (q *recordingQueue) byType(taskType string) []*models.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*models.Task
	for _, t := range q.tasks {
		if t.TaskType == taskType {
			out = append(out, t)
		}
	}
	return out
}

type fixture struct {
	db       *database.DB
	sandbox  *payment.Sandbox
	bus      *events.EventBus
	queue    *recordingQueue
	bookings *BookingService
	reads    *AnalyticsService

	mu     sync.Mutex
	events []string
}

func newFixture(t *testing.T, opts BookingOptions) *fixture {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "service.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:      db,
		sandbox: payment.NewSandbox(false),
		bus:     events.NewEventBus(&logger),
		queue:   &recordingQueue{},
	}
	f.bus.SubscribeAll(events.AllBookingEvents, func(e *events.Event) error {
		f.mu.Lock()
		f.events = append(f.events, e.Type)
		f.mu.Unlock()
		return nil
	})

	f.bookings = NewBookingService(BookingDeps{
		Ledger:   db,
		Bookings: db,
		Packages: db,
		Users:    db,
		Gateway:  payment.Wrap(f.sandbox, time.Second, &logger),
		Events:   f.bus,
		Tasks:    f.queue,
	}, opts, &logger)
	f.reads = NewAnalyticsService(db, db, &logger)
	return f
}

func (f *fixture) seedPackage(t *testing.T, availability int64) *models.TravelPackage {
	t.Helper()
	pkg := &models.TravelPackage{
		Title:        "Kerala Backwaters",
		Price:        1200,
		Duration:     "4 days",
		Destination:  "Alleppey",
		Availability: availability,
	}
	require.NoError(t, f.db.CreatePackage(context.Background(), pkg))
	return pkg
}

func (f *fixture) seedUser(t *testing.T, name string, role models.Role) *auth.Caller {
	t.Helper()
	user := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "x", Role: role}
	require.NoError(t, f.db.CreateUser(context.Background(), user))
	return &auth.Caller{UserID: user.ID, Role: role, Email: user.Email, Username: user.Username}
}

func (f *fixture) availability(t *testing.T, packageID string) int64 {
	t.Helper()
	pkg, err := f.db.GetPackage(context.Background(), packageID)
	require.NoError(t, err)
	return pkg.Availability
}

func (f *fixture) seenEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

// paidBooking creates a Pending booking with a succeeded intent recorded on it.
func (f *fixture) paidBooking(t *testing.T, caller *auth.Caller, pkg *models.TravelPackage) (*models.Booking, string) {
	t.Helper()
	ctx := context.Background()

	booking, err := f.bookings.BookPackage(ctx, caller, BookRequest{PackageID: pkg.ID, Date: "2026-12-01"})
	require.NoError(t, err)

	intent, err := f.bookings.CreatePaymentIntent(ctx, caller, IntentInput{PackageID: pkg.ID, BookingID: booking.ID})
	require.NoError(t, err)
	require.NoError(t, f.sandbox.Succeed(intent.PaymentIntentID, "card"))
	return booking, intent.PaymentIntentID
}
