package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"travelbooking/internal/auth"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
)

type storedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// inFlightTTL bounds how long an abandoned claim blocks retries of its key.
const inFlightTTL = 2 * time.Minute

// inFlight marks a key whose first request has not finished yet.
var inFlight = []byte(`{"status":0}`)

// idempotent replays the stored response when a request repeats an
// Idempotency-Key within the configured TTL. The first request claims the key
// before running; a duplicate that arrives while it runs gets 409. Server
// errors and 429s drop the claim so the client can retry them.
func (s *HTTPServer) idempotent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
		if key == "" || s.idem == nil {
			next(w, r)
			return
		}

		ctx := r.Context()
		scope := idempotencyScope(r, key)
		ttl := s.cfg.IdempotencyTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}

		claimed, err := s.idem.Claim(ctx, scope, inFlight, min(ttl, inFlightTTL))
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("idempotency claim failed")
			next(w, r)
			return
		}
		if !claimed {
			s.replay(w, r, scope, key)
			return
		}

		// Detached so a client hang-up does not leave the claim behind.
		storeCtx := context.WithoutCancel(ctx)
		settled := false
		defer func() {
			if !settled {
				s.releaseClaim(storeCtx, scope, key)
			}
		}()

		rec := &bodyRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		if rec.status >= http.StatusInternalServerError || rec.status == http.StatusTooManyRequests {
			return
		}

		data, err := json.Marshal(storedResponse{Status: rec.status, Body: rec.body.Bytes()})
		if err != nil {
			return
		}
		if err := s.idem.Put(storeCtx, scope, data, ttl); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("idempotency store failed")
			return
		}
		settled = true
	}
}

// replay answers a request whose key is already claimed.
func (s *HTTPServer) replay(w http.ResponseWriter, r *http.Request, scope, key string) {
	raw, ok, err := s.idem.Get(r.Context(), scope)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("idempotency lookup failed")
	}
	var stored storedResponse
	if !ok || json.Unmarshal(raw, &stored) != nil || stored.Status == 0 {
		writeJSON(w, http.StatusConflict, errorBody{
			Error:     "a request with this Idempotency-Key is still in progress",
			Code:      "CONFLICT",
			Retryable: true,
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

func (s *HTTPServer) releaseClaim(ctx context.Context, scope, key string) {
	if err := s.idem.Delete(ctx, scope); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("idempotency release failed")
	}
}

// idempotencyScope keeps keys from different callers and routes apart.
func idempotencyScope(r *http.Request, key string) string {
	owner := "anonymous"
	if caller := auth.CallerFrom(r.Context()); caller != nil {
		owner = caller.UserID
	}
	return owner + ":" + r.Method + ":" + r.URL.Path + ":" + key
}

type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *bodyRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *bodyRecorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
