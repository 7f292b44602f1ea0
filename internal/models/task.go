package models

import "time"

const (
	TaskTypeRefund     = "refund"
	TaskTypeSheetsSync = "sheets_sync"
	TaskTypeRelease    = "inventory_release"
)

const (
	TaskStatusPending   = "pending"
	TaskStatusRetry     = "retry"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// Task is a persisted unit of background work.
type Task struct {
	ID          int64      `json:"id"`
	TaskType    string     `json:"task_type"`
	BookingID   string     `json:"booking_id"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}

// ReleaseTaskPayload is the JSON body of an inventory_release task, queued
// when an inline release fails after the booking already changed state.
type ReleaseTaskPayload struct {
	PackageID string `json:"package_id"`
	Count     int64  `json:"count"`
}

// RefundTaskPayload is the JSON body of a refund task.
type RefundTaskPayload struct {
	PaymentID string  `json:"payment_id"`
	Amount    float64 `json:"amount,omitempty"`
	Reason    string  `json:"reason"`
}
