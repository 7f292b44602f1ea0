package repository

import (
	"context"
	"sync/atomic"
	"time"

	"travelbooking/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStore uses primary until it errors, then serves from fallback and
// retries primary once per recovery interval.
type FailoverStore struct {
	primary   domain.IdempotencyStore
	fallback  domain.IdempotencyStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverStore(primary, fallback domain.IdempotencyStore, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether primary should be tried for this call.
func (r *FailoverStore) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return r.now().Sub(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverStore) observe(err error) {
	if err == nil {
		if r.isDown.CompareAndSwap(true, false) {
			r.logger.Info().Msg("Primary store recovered")
		}
		return
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary store failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if r.usePrimary() {
		val, ok, err := r.primary.Get(ctx, key)
		r.observe(err)
		if err == nil {
			return val, ok, nil
		}
	}
	return r.fallback.Get(ctx, key)
}

func (r *FailoverStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.usePrimary() {
		err := r.primary.Put(ctx, key, value, ttl)
		r.observe(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.Put(ctx, key, value, ttl)
}

func (r *FailoverStore) Claim(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if r.usePrimary() {
		ok, err := r.primary.Claim(ctx, key, value, ttl)
		r.observe(err)
		if err == nil {
			return ok, nil
		}
	}
	return r.fallback.Claim(ctx, key, value, ttl)
}

// Delete clears both stores; a claim may have landed in either one.
func (r *FailoverStore) Delete(ctx context.Context, key string) error {
	if r.usePrimary() {
		r.observe(r.primary.Delete(ctx, key))
	}
	return r.fallback.Delete(ctx, key)
}

func (r *FailoverStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		r.observe(err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
