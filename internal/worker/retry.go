package worker

import (
	"time"

	"travelbooking/internal/config"
)

const (
	defaultInitialDelay = time.Second
	defaultBackoff      = 2.0
)

// RetryPolicy is the exponential backoff applied to failed outbox tasks.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// RetryPolicyFromConfig maps the worker section onto a RetryPolicy.
func RetryPolicyFromConfig(cfg config.WorkerConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:    cfg.MaxRetries,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      cfg.MaxDelay,
		BackoffFactor: cfg.Multiplier,
	}
}

// Exhausted reports whether a task that just failed its attempt-th run
// (1-based) should be given up on.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= r.MaxRetries
}

// NextDelay returns the wait before retry number attempt (1-based), capped at MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	initial := r.InitialDelay
	if initial <= 0 {
		initial = defaultInitialDelay
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = defaultBackoff
	}

	delay := float64(initial)
	for i := 1; i < attempt; i++ {
		delay *= factor
		if r.MaxDelay > 0 && delay >= float64(r.MaxDelay) {
			return r.MaxDelay
		}
	}
	if r.MaxDelay > 0 && time.Duration(delay) > r.MaxDelay {
		return r.MaxDelay
	}
	return time.Duration(delay)
}
