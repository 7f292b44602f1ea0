package models

import (
	"fmt"
	"strings"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "Pending"
	StatusConfirmed BookingStatus = "Confirmed"
	StatusCancelled BookingStatus = "Cancelled"
	StatusRefunded  BookingStatus = "Refunded"
)

var validTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusRefunded},
	StatusCancelled: {},
	StatusRefunded:  {},
}

func (s BookingStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo reports whether target is reachable from s in one step.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible.
func (s BookingStatus) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	return !exists || len(allowed) == 0
}

// IsInitial reports whether a booking may be created in this status.
func (s BookingStatus) IsInitial() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s BookingStatus) String() string {
	return string(s)
}

// ParseBookingStatus accepts the canonical names case-insensitively.
func ParseBookingStatus(s string) (BookingStatus, error) {
	for status := range validTransitions {
		if strings.EqualFold(string(status), strings.TrimSpace(s)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("invalid booking status: %s", s)
}
