package models

import "time"

// Provider-side payment statuses recorded on bookings.
const (
	PaymentStatusPending         = "pending"
	PaymentStatusRequiresPayment = "requires_payment"
	PaymentStatusSucceeded       = "succeeded"
	PaymentStatusRefunded        = "refunded"
)

const DefaultRefundReason = "requested_by_customer"

type IntentRequest struct {
	PackageID    string
	PackageTitle string
	UserID       string
	UserEmail    string
	Amount       float64
	Currency     string
}

type PaymentIntent struct {
	ClientSecret    string  `json:"client_secret"`
	PaymentIntentID string  `json:"payment_intent_id"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Status          string  `json:"status"`
	PaymentMethod   string  `json:"payment_method,omitempty"`
	// PackageID is the package the intent was created for, as recorded by the provider.
	PackageID string `json:"package_id,omitempty"`
}

func (p *PaymentIntent) Succeeded() bool {
	return p.Status == PaymentStatusSucceeded
}

type RefundRequest struct {
	PaymentID string
	BookingID string
	// Amount of zero refunds the whole charge.
	Amount float64
	Reason string
}

type Refund struct {
	ID        string  `json:"id"`
	PaymentID string  `json:"payment_id"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
}

type PackageStat struct {
	PackageID    string  `json:"package_id"`
	PackageTitle string  `json:"package_title"`
	Bookings     int64   `json:"bookings"`
	Revenue      float64 `json:"revenue"`
}

type PaymentAnalytics struct {
	TotalRevenue        float64       `json:"total_revenue"`
	TotalBookings       int64         `json:"total_bookings"`
	AverageBookingValue float64       `json:"average_booking_value"`
	PackageStats        []PackageStat `json:"package_stats"`
}

// AnalyticsRange bounds analytics by booking creation time; zero values are open.
type AnalyticsRange struct {
	Start time.Time
	End   time.Time
}
