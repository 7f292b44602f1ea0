package models

import "time"

// DateLayout is the wire and storage format of a booking date.
const DateLayout = "2006-01-02"

type Booking struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	PackageID     string        `json:"package_id"`
	Date          string        `json:"date"`
	Status        BookingStatus `json:"status"`
	PaymentID     *string       `json:"payment_id,omitempty"`
	PaymentStatus *string       `json:"payment_status,omitempty"`
	PaymentMethod *string       `json:"payment_method,omitempty"`
	TotalAmount   float64       `json:"total_amount"`
	Rating        *int          `json:"rating,omitempty"`
	Review        *string       `json:"review,omitempty"`
	// Reserved is true while the booking holds one unit of package availability.
	Reserved  bool      `json:"reserved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`

	Package *TravelPackage `json:"package,omitempty"`
	User    *User          `json:"user,omitempty"`
}

// HasPayment reports whether a provider payment reference is recorded.
func (b *Booking) HasPayment() bool {
	return b.PaymentID != nil && *b.PaymentID != ""
}

// PaymentSucceeded reports whether the recorded payment was captured.
func (b *Booking) PaymentSucceeded() bool {
	return b.HasPayment() && b.PaymentStatus != nil && *b.PaymentStatus == PaymentStatusSucceeded
}

// IsOwnedBy reports whether userID booked it.
func (b *Booking) IsOwnedBy(userID string) bool {
	return userID != "" && b.UserID == userID
}

// BookingTransition is a versioned state change applied atomically to a booking row.
type BookingTransition struct {
	BookingID     string
	FromVersion   int64
	FromStatus    BookingStatus
	ToStatus      BookingStatus
	PaymentID     *string
	PaymentStatus *string
	PaymentMethod *string
	TotalAmount   *float64
	Reserved      bool
}

// StringPtr is a helper for optional booking fields.
func StringPtr(s string) *string {
	return &s
}
