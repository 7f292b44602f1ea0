package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"travelbooking/internal/auth"
	"travelbooking/internal/config"
	"travelbooking/internal/domain"
	"travelbooking/internal/export"
	"travelbooking/internal/metrics"
	"travelbooking/internal/service"

	"github.com/rs/zerolog"
)

// Services are the workflow entry points exposed over HTTP.
type Services struct {
	Users     *service.UserService
	Packages  *service.PackageService
	Bookings  *service.BookingService
	Analytics *service.AnalyticsService
	Exporter  *export.Exporter
}

// HTTPServer exposes the booking workflow as a JSON API.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     Services
	gate    *auth.Gate
	idem    domain.IdempotencyStore
	limiter *rateLimiter
	mux     *http.ServeMux
	server  *http.Server
	logger  *zerolog.Logger
}

// NewHTTPServer wires routes and middleware. idem may be nil, which disables
// Idempotency-Key replay and login throttling.
func NewHTTPServer(cfg config.APIConfig, svc Services, gate *auth.Gate, idem domain.IdempotencyStore, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	srv := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		gate:    gate,
		idem:    idem,
		limiter: newRateLimiter(cfg.RateLimit),
		logger:  logger,
	}

	srv.mux = http.NewServeMux()
	srv.routes(srv.mux)

	handler := srv.loggingMiddleware(srv.authenticate(srv.rateLimit(srv.mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/v1/auth/register", s.idempotent(s.handleRegister))
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)

	mux.HandleFunc("GET /api/v1/packages", s.handleListPackages)
	mux.HandleFunc("POST /api/v1/packages", s.idempotent(s.handleCreatePackage))
	mux.HandleFunc("GET /api/v1/packages/{id}", s.handleGetPackage)
	mux.HandleFunc("PUT /api/v1/packages/{id}", s.handleUpdatePackage)
	mux.HandleFunc("DELETE /api/v1/packages/{id}", s.handleDeletePackage)

	mux.HandleFunc("POST /api/v1/bookings", s.idempotent(s.handleBookPackage))
	mux.HandleFunc("GET /api/v1/bookings", s.handleListBookings)
	mux.HandleFunc("GET /api/v1/bookings/{id}", s.handleGetBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/confirm-payment", s.idempotent(s.handleConfirmPayment))
	mux.HandleFunc("POST /api/v1/bookings/{id}/refund", s.idempotent(s.handleRefund))
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", s.idempotent(s.handleCancel))
	mux.HandleFunc("PUT /api/v1/bookings/{id}/status", s.handleUpdateStatus)
	mux.HandleFunc("PATCH /api/v1/bookings/{id}/status", s.handleUpdateStatus)
	mux.HandleFunc("POST /api/v1/bookings/{id}/review", s.handleReview)

	mux.HandleFunc("POST /api/v1/payments/intents", s.idempotent(s.handleCreateIntent))
	mux.HandleFunc("GET /api/v1/payments/intents/{id}", s.handlePaymentStatus)

	mux.HandleFunc("GET /api/v1/users/{id}", s.handleGetUser)
	mux.HandleFunc("GET /api/v1/users/{id}/bookings", s.handleBookingHistory)

	mux.HandleFunc("GET /api/v1/analytics/payments", s.handlePaymentAnalytics)
	mux.HandleFunc("GET /api/v1/admin/users", s.handleListUsers)
	mux.HandleFunc("GET /api/v1/admin/bookings/export", s.handleExport)
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// authenticate resolves the bearer token, if any, into the request context.
// Requests without a token continue anonymously; the workflow decides whether
// that is enough.
func (s *HTTPServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		caller, err := s.gate.Authorize(header)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), caller)))
	})
}

func (s *HTTPServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(httpClientKey(r)) {
			writeError(w, http.StatusTooManyRequests, errRateLimited.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		_, pattern := s.mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.IncHTTP(pattern)

		event := s.logger.Info()
		if recorder.status >= http.StatusInternalServerError {
			event = s.logger.Warn()
		}
		event.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorBody{Error: message, Code: http.StatusText(statusCode)})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched
// when optional is set.
func decodeJSON(r *http.Request, dst any, optional bool) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return domain.Errorf(domain.ErrValidation, "invalid JSON body: %v", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
