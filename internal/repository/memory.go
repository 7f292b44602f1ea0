package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps idempotency records and rate-limit windows in process.
type MemoryStore struct {
	records sync.Map

	mu         sync.Mutex
	rateLimits map[string]*rateLimitEntry
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rateLimits: make(map[string]*rateLimitEntry), now: time.Now}
}

type memoryRecord struct {
	value     []byte
	expiresAt time.Time
}

func (r *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, ok := r.records.Load(key)
	if !ok {
		return nil, false, nil
	}
	rec := val.(*memoryRecord)
	if !rec.expiresAt.IsZero() && r.now().After(rec.expiresAt) {
		r.records.Delete(key)
		return nil, false, nil
	}
	return rec.value, true, nil
}

func (r *MemoryStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	rec := &memoryRecord{value: append([]byte(nil), value...)}
	if ttl > 0 {
		rec.expiresAt = r.now().Add(ttl)
	}
	r.records.Store(key, rec)
	return nil
}

// Claim behaves like SET NX: an expired record counts as absent.
func (r *MemoryStore) Claim(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	rec := &memoryRecord{value: append([]byte(nil), value...)}
	if ttl > 0 {
		rec.expiresAt = r.now().Add(ttl)
	}
	for {
		existing, loaded := r.records.LoadOrStore(key, rec)
		if !loaded {
			return true, nil
		}
		old := existing.(*memoryRecord)
		if old.expiresAt.IsZero() || !r.now().After(old.expiresAt) {
			return false, nil
		}
		r.records.CompareAndDelete(key, existing)
	}
}

func (r *MemoryStore) Delete(ctx context.Context, key string) error {
	r.records.Delete(key)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// CheckRateLimit counts a hit for key in a fixed window and reports whether it is within limit.
func (r *MemoryStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	switch {
	case !ok:
		entry = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	case now.After(entry.expiresAt):
		entry.count = 1
		entry.expiresAt = now.Add(window)
	default:
		entry.count++
	}
	return entry.count <= limit, nil
}
