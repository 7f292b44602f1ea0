package domain

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced by the booking workflow. Callers match them with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrValidation          = errors.New("validation failed")
	ErrOutOfStock          = errors.New("package out of stock")
	ErrPaymentNotSucceeded = errors.New("payment not succeeded")
	ErrUpstreamPayment     = errors.New("payment provider error")
	ErrConflict            = errors.New("conflict")
)

// ErrConcurrentModification is returned when a versioned update loses the race.
var ErrConcurrentModification = fmt.Errorf("%w: concurrent modification", ErrConflict)

// Errorf wraps kind with a formatted message so errors.Is(err, kind) holds.
func Errorf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Kind returns the failure kind of err, or nil when err is not one of ours.
func Kind(err error) error {
	for _, kind := range []error{
		ErrUnauthenticated,
		ErrForbidden,
		ErrNotFound,
		ErrValidation,
		ErrOutOfStock,
		ErrPaymentNotSucceeded,
		ErrUpstreamPayment,
		ErrConflict,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsRetryable reports whether the caller may retry the same request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstreamPayment)
}
