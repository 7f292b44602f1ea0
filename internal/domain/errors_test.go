package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	err := Errorf(ErrValidation, "rating %d out of range", 7)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation failed: rating 7 out of range", err.Error())
}

func TestKind(t *testing.T) {
	wrapped := fmt.Errorf("confirm payment b1: %w", ErrConcurrentModification)

	assert.Equal(t, ErrConflict, Kind(wrapped))
	assert.Equal(t, ErrOutOfStock, Kind(Errorf(ErrOutOfStock, "p1")))
	assert.Nil(t, Kind(errors.New("disk full")))
	assert.Nil(t, Kind(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("create intent: %w", ErrUpstreamPayment)))
	assert.False(t, IsRetryable(ErrPaymentNotSucceeded))
}
