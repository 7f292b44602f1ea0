package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"travelbooking/internal/auth"
	"travelbooking/internal/domain"
	"travelbooking/internal/models"
	"travelbooking/internal/service"
)

const (
	loginAttemptsPerWindow = 10
	loginWindow            = time.Minute
)

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(r, &in, false); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	user, err := s.svc.Users.Register(r.Context(), auth.CallerFrom(r.Context()), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if s.idem != nil {
		key := "login:" + httpClientKey(r)
		allowed, err := s.idem.CheckRateLimit(r.Context(), key, loginAttemptsPerWindow, loginWindow)
		if err != nil {
			s.logger.Warn().Err(err).Msg("login throttle check failed")
		} else if !allowed {
			writeError(w, http.StatusTooManyRequests, "too many login attempts")
			return
		}
	}

	token, user, err := s.svc.Users.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Users.GetUser(r.Context(), auth.CallerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleListPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := s.svc.Packages.List(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"packages": packages})
}

func (s *HTTPServer) handleGetPackage(w http.ResponseWriter, r *http.Request) {
	pkg, err := s.svc.Packages.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

func (s *HTTPServer) handleCreatePackage(w http.ResponseWriter, r *http.Request) {
	var pkg models.TravelPackage
	if err := decodeJSON(r, &pkg, false); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	created, err := s.svc.Packages.Create(r.Context(), auth.CallerFrom(r.Context()), &pkg)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleUpdatePackage(w http.ResponseWriter, r *http.Request) {
	var pkg models.TravelPackage
	if err := decodeJSON(r, &pkg, false); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	pkg.ID = r.PathValue("id")
	updated, err := s.svc.Packages.Update(r.Context(), auth.CallerFrom(r.Context()), &pkg)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *HTTPServer) handleDeletePackage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.Packages.Delete(r.Context(), auth.CallerFrom(r.Context()), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "message": "Package deleted"})
}

func (s *HTTPServer) handleBookPackage(w http.ResponseWriter, r *http.Request) {
	var req service.BookRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	booking, err := s.svc.Bookings.BookPackage(r.Context(), auth.CallerFrom(r.Context()), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())

	var (
		bookings []*models.Booking
		err      error
	)
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		bookings, err = s.svc.Analytics.GetBookingsByStatus(r.Context(), caller, status)
	} else {
		bookings, err = s.svc.Analytics.GetAllBookings(r.Context(), caller)
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": nonNil(bookings)})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.svc.Analytics.GetBookingByID(r.Context(), auth.CallerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleBookingHistory(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.Analytics.GetBookingHistory(r.Context(), auth.CallerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": nonNil(bookings)})
}

func (s *HTTPServer) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	var in service.IntentInput
	if err := decodeJSON(r, &in, false); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	intent, err := s.svc.Bookings.CreatePaymentIntent(r.Context(), auth.CallerFrom(r.Context()), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

func (s *HTTPServer) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	intent, err := s.svc.Bookings.GetPaymentStatus(r.Context(), auth.CallerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (s *HTTPServer) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PaymentIntentID string `json:"payment_intent_id"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	booking, err := s.svc.Bookings.ConfirmPayment(r.Context(), auth.CallerFrom(r.Context()), r.PathValue("id"), body.PaymentIntentID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleRefund(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount *float64 `json:"amount"`
		Reason string   `json:"reason"`
	}
	if err := decodeJSON(r, &body, true); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	result, err := s.svc.Bookings.ProcessRefund(r.Context(), auth.CallerFrom(r.Context()), r.PathValue("id"), body.Amount, body.Reason)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProcessRefund bool `json:"process_refund"`
	}
	if err := decodeJSON(r, &body, true); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	result, err := s.svc.Bookings.CancelBooking(r.Context(), auth.CallerFrom(r.Context()), r.PathValue("id"), body.ProcessRefund)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	booking, err := s.svc.Bookings.UpdateBookingStatus(r.Context(), auth.CallerFrom(r.Context()), r.PathValue("id"), body.Status)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleReview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rating int    `json:"rating"`
		Review string `json:"review"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	booking, err := s.svc.Bookings.RateBooking(r.Context(), auth.CallerFrom(r.Context()), r.PathValue("id"), body.Rating, body.Review)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handlePaymentAnalytics(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	analytics, err := s.svc.Analytics.GetPaymentAnalytics(r.Context(), auth.CallerFrom(r.Context()), rng)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	if packageID := strings.TrimSpace(r.URL.Query().Get("package_id")); packageID != "" {
		users, err := s.svc.Analytics.UsersByPackage(r.Context(), caller, packageID)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": nonNil(users)})
		return
	}

	users, err := s.svc.Analytics.UsersWithBookingCounts(r.Context(), caller)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": nonNil(users)})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.svc.Exporter == nil {
		writeError(w, http.StatusNotImplemented, "export is not configured")
		return
	}
	caller := auth.CallerFrom(r.Context())
	rng, err := parseRange(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	bookings, err := s.svc.Analytics.GetAllBookings(r.Context(), caller)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	analytics, err := s.svc.Analytics.GetPaymentAnalytics(r.Context(), caller, rng)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	filename := fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := s.svc.Exporter.Write(w, bookings, analytics); err != nil {
		// headers are gone by now
		s.logger.Error().Err(err).Msg("export write failed")
	}
}

// parseRange reads start_date and end_date as YYYY-MM-DD or RFC 3339. A bare
// end date covers that whole day.
func parseRange(r *http.Request) (models.AnalyticsRange, error) {
	var rng models.AnalyticsRange
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("start_date")); raw != "" {
		t, _, err := parseInstant(raw)
		if err != nil {
			return rng, domain.Errorf(domain.ErrValidation, "invalid start_date %q", raw)
		}
		rng.Start = t
	}
	if raw := strings.TrimSpace(q.Get("end_date")); raw != "" {
		t, dateOnly, err := parseInstant(raw)
		if err != nil {
			return rng, domain.Errorf(domain.ErrValidation, "invalid end_date %q", raw)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		rng.End = t
	}
	return rng, nil
}

func parseInstant(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(models.DateLayout, raw); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	return t, false, err
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
