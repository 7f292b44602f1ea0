package events

import (
	"encoding/json"
	"sync"
	"time"

	"travelbooking/internal/models"

	"github.com/rs/zerolog"
)

const (
	EventBookingCreated       = "booking_created"
	EventBookingConfirmed     = "booking_confirmed"
	EventBookingCancelled     = "booking_cancelled"
	EventBookingRefunded      = "booking_refunded"
	EventBookingStatusChanged = "booking_status_changed"
	EventBookingRated         = "booking_rated"
)

// AllBookingEvents lists every booking lifecycle event type.
var AllBookingEvents = []string{
	EventBookingCreated,
	EventBookingConfirmed,
	EventBookingCancelled,
	EventBookingRefunded,
	EventBookingStatusChanged,
	EventBookingRated,
}

// BookingEventPayload is the booking snapshot handed to event consumers.
type BookingEventPayload struct {
	BookingID     string    `json:"booking_id"`
	UserID        string    `json:"user_id"`
	PackageID     string    `json:"package_id"`
	PackageTitle  string    `json:"package_title,omitempty"`
	Date          string    `json:"date"`
	FromStatus    string    `json:"from_status,omitempty"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status,omitempty"`
	TotalAmount   float64   `json:"total_amount"`
	ChangedByID   string    `json:"changed_by_id,omitempty"`
	ChangedByRole string    `json:"changed_by_role,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewBookingPayload snapshots b. from may be empty for creations.
func NewBookingPayload(b *models.Booking, from models.BookingStatus) BookingEventPayload {
	p := BookingEventPayload{
		BookingID:   b.ID,
		UserID:      b.UserID,
		PackageID:   b.PackageID,
		Date:        b.Date,
		FromStatus:  string(from),
		Status:      string(b.Status),
		TotalAmount: b.TotalAmount,
		OccurredAt:  time.Now().UTC(),
	}
	if b.Package != nil {
		p.PackageTitle = b.Package.Title
	}
	if b.PaymentStatus != nil {
		p.PaymentStatus = *b.PaymentStatus
	}
	return p
}

type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the JSON payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

type EventHandler func(event *Event) error

// EventBus is an in-process pub/sub. Handlers run synchronously in the publisher's goroutine.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

func NewEventBus(logger *zerolog.Logger) *EventBus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers handler for each of the event types.
func (b *EventBus) SubscribeAll(eventTypes []string, handler EventHandler) {
	for _, t := range eventTypes {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers of the event type. Handler errors are logged, not returned.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			b.logger.Warn().Err(err).Str("event", event.Type).Msg("Event handler failed")
		}
	}
}

// PublishJSON serializes the payload and publishes an event. A nil bus is a no-op.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
