package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"travelbooking/internal/auth"
	"travelbooking/internal/config"
	"travelbooking/internal/database"
	"travelbooking/internal/domain"
	"travelbooking/internal/events"
	"travelbooking/internal/export"
	"travelbooking/internal/models"
	"travelbooking/internal/payment"
	"travelbooking/internal/repository"
	"travelbooking/internal/service"
	"travelbooking/internal/worker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	db      *database.DB
	sandbox *payment.Sandbox
	gate    *auth.Gate
	svc     Services
	server  *HTTPServer
	ts      *httptest.Server
}

func newTestEnv(t *testing.T, rl config.APIRateLimitConfig) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sandbox := payment.NewSandbox(false)
	gate := auth.NewGate("test-secret", time.Hour)
	tasks := worker.NewTaskWorker(db, nil, worker.Options{}, &logger)

	svc := Services{
		Users:    service.NewUserService(db, gate, bcrypt.MinCost, &logger),
		Packages: service.NewPackageService(db, &logger),
		Bookings: service.NewBookingService(service.BookingDeps{
			Ledger:   db,
			Bookings: db,
			Packages: db,
			Users:    db,
			Gateway:  payment.Wrap(sandbox, time.Second, &logger),
			Events:   events.NewEventBus(&logger),
			Tasks:    tasks,
		}, service.BookingOptions{}, &logger),
		Analytics: service.NewAnalyticsService(db, db, &logger),
		Exporter:  export.NewExporter(t.TempDir(), &logger),
	}

	cfg := config.APIConfig{RateLimit: rl, IdempotencyTTL: time.Hour}
	srv := NewHTTPServer(cfg, svc, gate, repository.NewMemoryStore(), &logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{db: db, sandbox: sandbox, gate: gate, svc: svc, server: srv, ts: ts}
}

// tokenFor creates a user with role directly in storage and returns a bearer token.
func (e *testEnv) tokenFor(t *testing.T, name string, role models.Role) (string, *models.User) {
	t.Helper()
	user := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "x", Role: role}
	require.NoError(t, e.db.CreateUser(context.Background(), user))
	token, err := e.gate.Issue(user)
	require.NoError(t, err)
	return token, user
}

func (e *testEnv) seedPackage(t *testing.T, availability int64) *models.TravelPackage {
	t.Helper()
	pkg := &models.TravelPackage{Title: "Spiti Valley", Price: 900, Destination: "Kaza", Availability: availability}
	require.NoError(t, e.db.CreatePackage(context.Background(), pkg))
	return pkg
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) decode(t *testing.T, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, dst), "body: %s", r.body)
}

func (r response) errorCode(t *testing.T) string {
	t.Helper()
	var body errorBody
	r.decode(t, &body)
	return body.Code
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers ...string) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, header: resp.Header, body: raw}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})
	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.JSONEq(t, `{"status":"ok"}`, string(resp.body))
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})

	resp := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "meera", "email": "Meera@Example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var user models.User
	resp.decode(t, &user)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotContains(t, string(resp.body), "password")

	resp = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "meera@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	var login struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	resp.decode(t, &login)
	caller, err := env.gate.Authorize(login.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, caller.UserID)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "meera@example.com", "password": "wrong-one",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "UNAUTHENTICATED", resp.errorCode(t))

	// self sign-up cannot pick a privileged role
	resp = env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "eve", "email": "eve@example.com", "password": "secret123", "role": "admin",
	})
	assert.Equal(t, http.StatusForbidden, resp.status)
}

func TestLoginThrottled(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})
	creds := map[string]string{"email": "nobody@example.com", "password": "whatever"}

	for i := 0; i < loginAttemptsPerWindow; i++ {
		resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", creds)
		require.Equal(t, http.StatusUnauthorized, resp.status)
	}
	resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, resp.status)
}

func TestPackageManagement(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})
	adminToken, _ := env.tokenFor(t, "root", models.RoleAdmin)
	userToken, _ := env.tokenFor(t, "ravi", models.RoleUser)

	newPkg := map[string]any{"title": "Ladakh", "price": 1500, "availability": 4, "destination": "Leh"}
	resp := env.do(t, http.MethodPost, "/api/v1/packages", userToken, newPkg)
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = env.do(t, http.MethodPost, "/api/v1/packages", adminToken, newPkg)
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var pkg models.TravelPackage
	resp.decode(t, &pkg)
	require.NotEmpty(t, pkg.ID)

	resp = env.do(t, http.MethodGet, "/api/v1/packages", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	var list struct {
		Packages []models.TravelPackage `json:"packages"`
	}
	resp.decode(t, &list)
	assert.Len(t, list.Packages, 1)

	resp = env.do(t, http.MethodPut, "/api/v1/packages/"+pkg.ID, adminToken, map[string]any{
		"title": "Ladakh Deluxe", "price": 1800, "availability": 4,
	})
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	resp = env.do(t, http.MethodGet, "/api/v1/packages/"+pkg.ID, "", nil)
	resp.decode(t, &pkg)
	assert.Equal(t, "Ladakh Deluxe", pkg.Title)

	resp = env.do(t, http.MethodPost, "/api/v1/packages", adminToken, map[string]any{"title": "Free", "price": 0})
	assert.Equal(t, http.StatusBadRequest, resp.status)

	resp = env.do(t, http.MethodDelete, "/api/v1/packages/"+pkg.ID, adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.status)
	resp = env.do(t, http.MethodGet, "/api/v1/packages/"+pkg.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestBookingPaymentLifecycle(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})
	token, user := env.tokenFor(t, "anita", models.RoleUser)
	adminToken, _ := env.tokenFor(t, "ops", models.RoleAdmin)
	pkg := env.seedPackage(t, 2)

	resp := env.do(t, http.MethodPost, "/api/v1/bookings", token, map[string]any{
		"package_id": pkg.ID, "date": "2026-12-20",
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var booking models.Booking
	resp.decode(t, &booking)
	assert.Equal(t, models.StatusPending, booking.Status)
	assert.Equal(t, user.ID, booking.UserID)

	resp = env.do(t, http.MethodPost, "/api/v1/payments/intents", token, map[string]any{
		"package_id": pkg.ID, "booking_id": booking.ID,
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var intent models.PaymentIntent
	resp.decode(t, &intent)
	assert.Equal(t, 900.0, intent.Amount)

	// not paid yet
	resp = env.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/confirm-payment", token,
		map[string]string{"payment_intent_id": intent.PaymentIntentID})
	assert.Equal(t, http.StatusPaymentRequired, resp.status)
	assert.Equal(t, "PAYMENT_NOT_SUCCEEDED", resp.errorCode(t))

	require.NoError(t, env.sandbox.Succeed(intent.PaymentIntentID, "card"))
	resp = env.do(t, http.MethodGet, "/api/v1/payments/intents/"+intent.PaymentIntentID, token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	resp.decode(t, &intent)
	assert.True(t, intent.Succeeded())

	resp = env.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/confirm-payment", token,
		map[string]string{"payment_intent_id": intent.PaymentIntentID})
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	resp.decode(t, &booking)
	assert.Equal(t, models.StatusConfirmed, booking.Status)
	assert.True(t, booking.Reserved)

	got, err := env.db.GetPackage(context.Background(), pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Availability)

	resp = env.do(t, http.MethodGet, "/api/v1/users/"+user.ID+"/bookings", token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	var history struct {
		Bookings []models.Booking `json:"bookings"`
	}
	resp.decode(t, &history)
	assert.Len(t, history.Bookings, 1)

	resp = env.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/cancel", token, map[string]bool{"process_refund": true})
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	var cancelled service.CancelResult
	resp.decode(t, &cancelled)
	assert.Equal(t, models.StatusCancelled, cancelled.Booking.Status)
	require.NotNil(t, cancelled.RefundTask)
	assert.Equal(t, models.TaskTypeRefund, cancelled.RefundTask.TaskType)

	got, err = env.db.GetPackage(context.Background(), pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Availability)

	resp = env.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/cancel", token, nil)
	assert.Equal(t, http.StatusConflict, resp.status)

	resp = env.do(t, http.MethodGet, "/api/v1/bookings/"+booking.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
}

func TestOutOfStockMapsToConflict(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})
	token, _ := env.tokenFor(t, "kiran", models.RoleUser)
	adminToken, _ := env.tokenFor(t, "ops", models.RoleAdmin)
	pkg := env.seedPackage(t, 0)

	resp := env.do(t, http.MethodPost, "/api/v1/bookings", token, map[string]any{"package_id": pkg.ID, "date": "2026-12-20"})
	require.Equal(t, http.StatusCreated, resp.status)
	var booking models.Booking
	resp.decode(t, &booking)

	resp = env.do(t, http.MethodPut, "/api/v1/bookings/"+booking.ID+"/status", adminToken, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusConflict, resp.status)
	assert.Equal(t, "OUT_OF_STOCK", resp.errorCode(t))
}

func TestReviewAndStatusOverride(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})
	token, _ := env.tokenFor(t, "sara", models.RoleUser)
	agentToken, _ := env.tokenFor(t, "desk", models.RoleAgent)
	pkg := env.seedPackage(t, 3)

	resp := env.do(t, http.MethodPost, "/api/v1/bookings", token, map[string]any{"package_id": pkg.ID, "date": "2026-10-01"})
	var booking models.Booking
	resp.decode(t, &booking)

	resp = env.do(t, http.MethodPatch, "/api/v1/bookings/"+booking.ID+"/status", token, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = env.do(t, http.MethodPut, "/api/v1/bookings/"+booking.ID+"/status", agentToken, map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	resp.decode(t, &booking)
	assert.Equal(t, models.StatusConfirmed, booking.Status)

	resp = env.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/review", token, map[string]any{"rating": 9})
	assert.Equal(t, http.StatusBadRequest, resp.status)

	resp = env.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/review", token, map[string]any{"rating": 5, "review": "Loved it"})
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	resp.decode(t, &booking)
	require.NotNil(t, booking.Rating)
	assert.Equal(t, 5, *booking.Rating)

	resp = env.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/review", token, map[string]any{"rating": 4})
	assert.Equal(t, http.StatusConflict, resp.status)
}

func TestAuthErrors(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})
	userToken, _ := env.tokenFor(t, "guest", models.RoleUser)
	adminToken, _ := env.tokenFor(t, "boss", models.RoleAdmin)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"anonymous list", http.MethodGet, "/api/v1/bookings", "", nil, http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/v1/packages", "not-a-jwt", nil, http.StatusUnauthorized},
		{"user lists all", http.MethodGet, "/api/v1/bookings", userToken, nil, http.StatusForbidden},
		{"user analytics", http.MethodGet, "/api/v1/analytics/payments", userToken, nil, http.StatusForbidden},
		{"missing booking", http.MethodGet, "/api/v1/bookings/nope", adminToken, nil, http.StatusNotFound},
		{"bad status filter", http.MethodGet, "/api/v1/bookings?status=lost", adminToken, nil, http.StatusBadRequest},
		{"bad date range", http.MethodGet, "/api/v1/analytics/payments?start_date=2026-05-01&end_date=2026-04-01", adminToken, nil, http.StatusBadRequest},
		{"unparseable date", http.MethodGet, "/api/v1/analytics/payments?start_date=yesterday", adminToken, nil, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/v1/bookings", userToken, map[string]string{"bogus": "x"}, http.StatusBadRequest},
		{"payment not found", http.MethodGet, "/api/v1/payments/intents/pi_missing", userToken, nil, http.StatusBadGateway},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(t, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.want, resp.status, string(resp.body))
		})
	}
}

func TestIdempotencyKeyReplays(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})
	token, _ := env.tokenFor(t, "repeat", models.RoleUser)
	pkg := env.seedPackage(t, 5)
	body := map[string]any{"package_id": pkg.ID, "date": "2026-12-24"}

	first := env.do(t, http.MethodPost, "/api/v1/bookings", token, body, idempotencyHeader, "key-1")
	require.Equal(t, http.StatusCreated, first.status)
	assert.Empty(t, first.header.Get(replayedHeader))

	second := env.do(t, http.MethodPost, "/api/v1/bookings", token, body, idempotencyHeader, "key-1")
	require.Equal(t, http.StatusCreated, second.status)
	assert.Equal(t, "true", second.header.Get(replayedHeader))
	assert.JSONEq(t, string(first.body), string(second.body))

	third := env.do(t, http.MethodPost, "/api/v1/bookings", token, body, idempotencyHeader, "key-2")
	require.Equal(t, http.StatusCreated, third.status)

	all, err := env.db.ListAllBookings(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestIdempotencyKeyConcurrentDuplicates(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})
	token, _ := env.tokenFor(t, "eager", models.RoleUser)
	pkg := env.seedPackage(t, 5)
	env.sandbox.SetDelay(50 * time.Millisecond)

	raw, err := json.Marshal(map[string]any{"package_id": pkg.ID})
	require.NoError(t, err)

	const n = 8
	statuses := make([]int, n)
	bodies := make([][]byte, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/api/v1/payments/intents", bytes.NewReader(raw))
			if !assert.NoError(t, err) {
				return
			}
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(idempotencyHeader, "intent-1")
			resp, err := http.DefaultClient.Do(req)
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()
			statuses[i] = resp.StatusCode
			bodies[i], _ = io.ReadAll(resp.Body)
		}(i)
	}
	wg.Wait()

	created := 0
	ids := map[string]bool{}
	for i, status := range statuses {
		switch status {
		case http.StatusCreated:
			created++
			var intent models.PaymentIntent
			require.NoError(t, json.Unmarshal(bodies[i], &intent))
			ids[intent.PaymentIntentID] = true
		case http.StatusConflict:
		default:
			t.Errorf("unexpected status %d: %s", status, bodies[i])
		}
	}
	assert.GreaterOrEqual(t, created, 1)
	assert.Len(t, ids, 1, "every success must carry the same intent")

	env.sandbox.SetDelay(0)
	again := env.do(t, http.MethodPost, "/api/v1/payments/intents", token, map[string]any{"package_id": pkg.ID}, idempotencyHeader, "intent-1")
	require.Equal(t, http.StatusCreated, again.status)
	assert.Equal(t, "true", again.header.Get(replayedHeader))
	var replayed models.PaymentIntent
	again.decode(t, &replayed)
	assert.True(t, ids[replayed.PaymentIntentID])
}

func TestIdempotencyKeyReleasedAfterServerError(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})
	token, _ := env.tokenFor(t, "unlucky", models.RoleUser)
	pkg := env.seedPackage(t, 5)
	body := map[string]any{"package_id": pkg.ID}

	env.sandbox.FailNext(errors.New("provider unavailable"))
	first := env.do(t, http.MethodPost, "/api/v1/payments/intents", token, body, idempotencyHeader, "retry-1")
	require.GreaterOrEqual(t, first.status, http.StatusInternalServerError, string(first.body))

	second := env.do(t, http.MethodPost, "/api/v1/payments/intents", token, body, idempotencyHeader, "retry-1")
	require.Equal(t, http.StatusCreated, second.status, string(second.body))
	assert.Empty(t, second.header.Get(replayedHeader))
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{RPS: 0.001, Burst: 2})

	for i := 0; i < 2; i++ {
		resp := env.do(t, http.MethodGet, "/api/v1/packages", "", nil)
		require.Equal(t, http.StatusOK, resp.status)
	}
	resp := env.do(t, http.MethodGet, "/api/v1/packages", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.status)
}

func TestPaymentAnalyticsAndExport(t *testing.T) {
	env := newTestEnv(t, config.APIRateLimitConfig{})
	token, _ := env.tokenFor(t, "payer", models.RoleUser)
	adminToken, _ := env.tokenFor(t, "finance", models.RoleAdmin)
	pkg := env.seedPackage(t, 3)

	resp := env.do(t, http.MethodPost, "/api/v1/bookings", token, map[string]any{"package_id": pkg.ID, "date": "2026-11-11"})
	var booking models.Booking
	resp.decode(t, &booking)
	resp = env.do(t, http.MethodPost, "/api/v1/payments/intents", token, map[string]any{"package_id": pkg.ID, "booking_id": booking.ID})
	var intent models.PaymentIntent
	resp.decode(t, &intent)
	require.NoError(t, env.sandbox.Succeed(intent.PaymentIntentID, "upi"))
	resp = env.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/confirm-payment", token,
		map[string]string{"payment_intent_id": intent.PaymentIntentID})
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))

	today := time.Now().UTC().Format(models.DateLayout)
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/analytics/payments?start_date=%s&end_date=%s", today, today), adminToken, nil)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	var analytics models.PaymentAnalytics
	resp.decode(t, &analytics)
	assert.Equal(t, int64(1), analytics.TotalBookings)
	assert.InDelta(t, 900.0, analytics.TotalRevenue, 0.001)

	resp = env.do(t, http.MethodGet, "/api/v1/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	var users struct {
		Users []models.UserBookingCount `json:"users"`
	}
	resp.decode(t, &users)
	assert.Len(t, users.Users, 2)

	resp = env.do(t, http.MethodGet, "/api/v1/admin/bookings/export", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = env.do(t, http.MethodGet, "/api/v1/admin/bookings/export", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.header.Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(resp.body))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.Errorf(domain.ErrUnauthenticated, "x"), http.StatusUnauthorized},
		{domain.Errorf(domain.ErrForbidden, "x"), http.StatusForbidden},
		{domain.Errorf(domain.ErrNotFound, "x"), http.StatusNotFound},
		{domain.Errorf(domain.ErrValidation, "x"), http.StatusBadRequest},
		{domain.ErrConcurrentModification, http.StatusConflict},
		{domain.Errorf(domain.ErrOutOfStock, "x"), http.StatusConflict},
		{domain.Errorf(domain.ErrPaymentNotSucceeded, "x"), http.StatusPaymentRequired},
		{fmt.Errorf("wrapped: %w", domain.ErrUpstreamPayment), http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, httpStatus(tc.err), tc.err.Error())
	}
}
