package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"travelbooking/internal/auth"
	"travelbooking/internal/domain"
	"travelbooking/internal/events"
	"travelbooking/internal/metrics"
	"travelbooking/internal/models"

	"github.com/rs/zerolog"
)

// BookingDeps are the collaborators of the booking workflow.
type BookingDeps struct {
	Ledger   domain.InventoryLedger
	Bookings domain.BookingStore
	Packages domain.PackageStore
	Users    domain.UserStore
	Gateway  domain.PaymentGateway
	Events   domain.EventPublisher
	Tasks    domain.TaskQueue
}

type BookingOptions struct {
	// AdminOverrideIgnoresStock lets a Confirmed override proceed on a sold-out
	// package. Such bookings never hold a unit.
	AdminOverrideIgnoresStock bool
	Currency                  string
	// SyncSheets queues a sheets_sync task after every change.
	SyncSheets bool
}

// BookingService drives bookings through their lifecycle while keeping package
// availability consistent: a booking holds at most one unit, taken when it
// becomes Confirmed and returned when it leaves Confirmed.
type BookingService struct {
	BookingDeps
	opts   BookingOptions
	logger *zerolog.Logger
}

func NewBookingService(deps BookingDeps, opts BookingOptions, logger *zerolog.Logger) *BookingService {
	if opts.Currency == "" {
		opts.Currency = models.DefaultCurrency
	}
	return &BookingService{BookingDeps: deps, opts: opts, logger: logger}
}

type BookRequest struct {
	// UserID defaults to the caller.
	UserID      string   `json:"user_id"`
	PackageID   string   `json:"package_id"`
	Date        string   `json:"date"`
	Status      string   `json:"status"`
	TotalAmount *float64 `json:"total_amount"`
}

func (s *BookingService) BookPackage(ctx context.Context, caller *auth.Caller, req BookRequest) (*models.Booking, error) {
	userID := req.UserID
	if userID == "" && caller != nil {
		userID = caller.UserID
	}
	if err := auth.Can(caller, auth.CapBook, userID); err != nil {
		return nil, err
	}

	req.PackageID = strings.TrimSpace(req.PackageID)
	if req.PackageID == "" {
		return nil, domain.Errorf(domain.ErrValidation, "packageId is required")
	}
	if err := validateDate(req.Date); err != nil {
		return nil, err
	}

	status := models.StatusPending
	if req.Status != "" {
		parsed, err := models.ParseBookingStatus(req.Status)
		if err != nil || !parsed.IsInitial() {
			return nil, domain.Errorf(domain.ErrValidation, "a booking can only be created Pending or Confirmed")
		}
		status = parsed
	}

	pkg, err := s.Packages.GetPackage(ctx, req.PackageID)
	if err != nil {
		return nil, err
	}
	user, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := pkg.Price
	if req.TotalAmount != nil {
		if *req.TotalAmount < 0 {
			return nil, domain.Errorf(domain.ErrValidation, "totalAmount must not be negative")
		}
		total = *req.TotalAmount
	}

	booking := &models.Booking{
		UserID:        user.ID,
		PackageID:     pkg.ID,
		Date:          req.Date,
		Status:        status,
		PaymentStatus: models.StringPtr(models.PaymentStatusPending),
		TotalAmount:   total,
		Reserved:      status == models.StatusConfirmed,
	}

	if booking.Reserved {
		if _, err := s.Ledger.Reserve(ctx, pkg.ID, 1); err != nil {
			return nil, err
		}
	}

	if err := s.Bookings.CreateBooking(ctx, booking); err != nil {
		if booking.Reserved {
			s.release(ctx, booking.ID, pkg.ID)
		}
		return nil, fmt.Errorf("book package %s: %w", pkg.ID, err)
	}

	booking.Package = pkg
	booking.User = publicUser(user)

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("package_id", pkg.ID).
		Str("user_id", user.ID).
		Str("status", string(status)).
		Msg("Booking created")

	metrics.IncTransition("", string(status))
	s.publish(events.EventBookingCreated, booking, "", caller)
	s.enqueueSync(ctx, booking)
	return booking, nil
}

type IntentInput struct {
	PackageID string   `json:"package_id"`
	UserID    string   `json:"user_id"`
	Amount    *float64 `json:"amount"`
	Currency  string   `json:"currency"`
	// BookingID, when set, records the intent on that Pending booking.
	BookingID string `json:"booking_id"`
}

func (s *BookingService) CreatePaymentIntent(ctx context.Context, caller *auth.Caller, in IntentInput) (*models.PaymentIntent, error) {
	userID := in.UserID
	if userID == "" && caller != nil {
		userID = caller.UserID
	}
	if err := auth.Can(caller, auth.CapPay, userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.PackageID) == "" {
		return nil, domain.Errorf(domain.ErrValidation, "packageId is required")
	}

	pkg, err := s.Packages.GetPackage(ctx, in.PackageID)
	if err != nil {
		return nil, err
	}
	user, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var booking *models.Booking
	if in.BookingID != "" {
		booking, err = s.Bookings.GetBooking(ctx, in.BookingID)
		if err != nil {
			return nil, err
		}
		if err := auth.Can(caller, auth.CapPay, booking.UserID); err != nil {
			return nil, err
		}
		if booking.PackageID != pkg.ID {
			return nil, domain.Errorf(domain.ErrValidation, "booking %s is for a different package", booking.ID)
		}
		if booking.Status != models.StatusPending {
			return nil, domain.Errorf(domain.ErrConflict, "booking %s is %s", booking.ID, booking.Status)
		}
	}

	amount := pkg.Price
	if in.Amount != nil {
		amount = *in.Amount
	}
	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.opts.Currency
	}

	intent, err := s.Gateway.CreateIntent(ctx, models.IntentRequest{
		PackageID:    pkg.ID,
		PackageTitle: pkg.Title,
		UserID:       user.ID,
		UserEmail:    user.Email,
		Amount:       amount,
		Currency:     currency,
	})
	if err != nil {
		return nil, err
	}

	if booking != nil {
		err := s.Bookings.SetPaymentFields(ctx, booking.ID, booking.Version, intent.PaymentIntentID, models.PaymentStatusRequiresPayment)
		if err != nil {
			// the client still holds the intent id and can confirm with it
			s.logger.Warn().Err(err).Str("booking_id", booking.ID).Str("payment_intent_id", intent.PaymentIntentID).
				Msg("Failed to record payment intent on booking")
		}
	}

	s.logger.Info().
		Str("package_id", pkg.ID).
		Str("user_id", user.ID).
		Str("payment_intent_id", intent.PaymentIntentID).
		Float64("amount", intent.Amount).
		Msg("Payment intent created")
	return intent, nil
}

// GetPaymentStatus returns the provider's current view of an intent.
func (s *BookingService) GetPaymentStatus(ctx context.Context, caller *auth.Caller, intentID string) (*models.PaymentIntent, error) {
	if caller == nil || caller.UserID == "" {
		return nil, domain.Errorf(domain.ErrUnauthenticated, "sign in required")
	}
	if strings.TrimSpace(intentID) == "" {
		return nil, domain.Errorf(domain.ErrValidation, "paymentIntentId is required")
	}
	return s.Gateway.GetIntent(ctx, intentID)
}

func (s *BookingService) ConfirmPayment(ctx context.Context, caller *auth.Caller, bookingID, intentID string) (*models.Booking, error) {
	if caller == nil || caller.UserID == "" {
		return nil, domain.Errorf(domain.ErrUnauthenticated, "sign in required")
	}
	if strings.TrimSpace(intentID) == "" {
		return nil, domain.Errorf(domain.ErrValidation, "paymentIntentId is required")
	}

	booking, err := s.Bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := auth.Can(caller, auth.CapPay, booking.UserID); err != nil {
		return nil, err
	}
	if !booking.Status.CanTransitionTo(models.StatusConfirmed) {
		return nil, domain.Errorf(domain.ErrConflict, "booking %s is %s", booking.ID, booking.Status)
	}
	if booking.HasPayment() && *booking.PaymentID != intentID {
		return nil, domain.Errorf(domain.ErrValidation, "payment intent %s does not belong to booking %s", intentID, booking.ID)
	}
	if !booking.HasPayment() {
		if err := s.ensureIntentUnused(ctx, intentID, booking.ID); err != nil {
			return nil, err
		}
	}

	intent, err := s.Gateway.GetIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if !intent.Succeeded() {
		return nil, domain.Errorf(domain.ErrPaymentNotSucceeded, "payment intent %s is %s", intentID, intent.Status)
	}
	if intent.PackageID != "" && intent.PackageID != booking.PackageID {
		return nil, domain.Errorf(domain.ErrValidation, "payment intent %s was created for another package", intentID)
	}

	reservedNow := false
	if !booking.Reserved {
		if _, err := s.Ledger.Reserve(ctx, booking.PackageID, 1); err != nil {
			if errors.Is(err, domain.ErrOutOfStock) {
				s.logger.Error().Str("booking_id", booking.ID).Str("payment_intent_id", intentID).
					Msg("Payment succeeded for a sold-out package")
			}
			return nil, err
		}
		reservedNow = true
	}

	tr := models.BookingTransition{
		BookingID:     booking.ID,
		FromVersion:   booking.Version,
		FromStatus:    booking.Status,
		ToStatus:      models.StatusConfirmed,
		PaymentID:     models.StringPtr(intent.PaymentIntentID),
		PaymentStatus: models.StringPtr(intent.Status),
		TotalAmount:   &intent.Amount,
		Reserved:      true,
	}
	if intent.PaymentMethod != "" {
		tr.PaymentMethod = models.StringPtr(intent.PaymentMethod)
	}

	updated, err := s.Bookings.TransitionBooking(ctx, tr)
	if err != nil {
		if reservedNow {
			s.release(ctx, booking.ID, booking.PackageID)
		}
		return nil, fmt.Errorf("confirm payment %s: %w", booking.ID, err)
	}

	s.logger.Info().Str("booking_id", updated.ID).Str("payment_intent_id", intentID).Msg("Payment confirmed")
	s.transitioned(ctx, events.EventBookingConfirmed, booking.Status, updated, caller)
	return updated, nil
}

// ensureIntentUnused rejects an intent already recorded on a different booking.
// The unique payment_id index settles races between two confirmations.
func (s *BookingService) ensureIntentUnused(ctx context.Context, intentID, bookingID string) error {
	other, err := s.Bookings.GetBookingByPaymentID(ctx, intentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check payment intent %s: %w", intentID, err)
	case other.ID != bookingID:
		return domain.Errorf(domain.ErrConflict, "payment intent %s is already used by another booking", intentID)
	default:
		return nil
	}
}

type CancelResult struct {
	Booking *models.Booking `json:"booking"`
	// RefundTask is the queued best-effort refund, when one was requested.
	RefundTask *models.Task `json:"refund,omitempty"`
	Message    string       `json:"message"`
}

func (s *BookingService) CancelBooking(ctx context.Context, caller *auth.Caller, bookingID string, processRefund bool) (*CancelResult, error) {
	booking, err := s.Bookings.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) && (caller == nil || caller.UserID == "") {
			return nil, domain.Errorf(domain.ErrUnauthenticated, "sign in required")
		}
		return nil, err
	}
	if err := auth.Can(caller, auth.CapCancel, booking.UserID); err != nil {
		return nil, err
	}
	if !booking.Status.CanTransitionTo(models.StatusCancelled) {
		return nil, domain.Errorf(domain.ErrConflict, "booking %s is already %s", booking.ID, booking.Status)
	}

	tr := models.BookingTransition{
		BookingID:   booking.ID,
		FromVersion: booking.Version,
		FromStatus:  booking.Status,
		ToStatus:    models.StatusCancelled,
		Reserved:    false,
	}
	if booking.HasPayment() {
		tr.PaymentStatus = models.StringPtr(models.PaymentStatusRefunded)
	}

	updated, err := s.Bookings.TransitionBooking(ctx, tr)
	if err != nil {
		return nil, fmt.Errorf("cancel booking %s: %w", booking.ID, err)
	}
	if booking.Reserved {
		s.release(ctx, booking.ID, booking.PackageID)
	}

	result := &CancelResult{Booking: updated, Message: "Booking cancelled successfully"}
	switch {
	case !processRefund || !booking.HasPayment():
	case !booking.PaymentSucceeded():
		s.logger.Info().Str("booking_id", booking.ID).Str("payment_id", *booking.PaymentID).
			Msg("Payment was never captured, no refund queued")
	case s.Tasks == nil:
		s.logger.Error().Str("booking_id", booking.ID).Msg("No task queue configured, refund not queued")
	default:
		task, err := s.Tasks.Enqueue(ctx, models.TaskTypeRefund, booking.ID, models.RefundTaskPayload{
			PaymentID: *booking.PaymentID,
			Reason:    models.DefaultRefundReason,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("Failed to queue refund for cancelled booking")
		} else {
			result.RefundTask = task
		}
	}

	s.logger.Info().Str("booking_id", booking.ID).Bool("refund_requested", processRefund).Msg("Booking cancelled")
	s.transitioned(ctx, events.EventBookingCancelled, booking.Status, updated, caller)
	return result, nil
}

type RefundResult struct {
	Booking *models.Booking `json:"booking"`
	Refund  *models.Refund  `json:"refund"`
}

func (s *BookingService) ProcessRefund(ctx context.Context, caller *auth.Caller, bookingID string, amount *float64, reason string) (*RefundResult, error) {
	if err := auth.Can(caller, auth.CapRefund, ""); err != nil {
		return nil, err
	}

	booking, err := s.Bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.HasPayment() {
		return nil, domain.Errorf(domain.ErrValidation, "no payment found for this booking")
	}
	if !booking.Status.CanTransitionTo(models.StatusRefunded) {
		return nil, domain.Errorf(domain.ErrConflict, "booking %s is %s", booking.ID, booking.Status)
	}

	req := models.RefundRequest{
		PaymentID: *booking.PaymentID,
		BookingID: booking.ID,
		Reason:    strings.TrimSpace(reason),
	}
	if req.Reason == "" {
		req.Reason = models.DefaultRefundReason
	}
	if amount != nil {
		if *amount <= 0 || *amount > booking.TotalAmount {
			return nil, domain.Errorf(domain.ErrValidation, "refund amount must be in (0, %.2f]", booking.TotalAmount)
		}
		req.Amount = *amount
	}

	refund, err := s.Gateway.Refund(ctx, req)
	if err != nil {
		return nil, err
	}

	updated, err := s.Bookings.TransitionBooking(ctx, models.BookingTransition{
		BookingID:     booking.ID,
		FromVersion:   booking.Version,
		FromStatus:    booking.Status,
		ToStatus:      models.StatusRefunded,
		PaymentStatus: models.StringPtr(models.PaymentStatusRefunded),
		Reserved:      false,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Str("refund_id", refund.ID).
			Msg("Refund issued but booking update failed")
		return nil, fmt.Errorf("process refund %s: %w", booking.ID, err)
	}
	if booking.Reserved {
		s.release(ctx, booking.ID, booking.PackageID)
	}

	s.logger.Info().Str("booking_id", booking.ID).Str("refund_id", refund.ID).Float64("amount", refund.Amount).Msg("Booking refunded")
	s.transitioned(ctx, events.EventBookingRefunded, booking.Status, updated, caller)
	return &RefundResult{Booking: updated, Refund: refund}, nil
}

// UpdateBookingStatus is the staff override. It follows the same transition
// table and inventory rules as the customer flows.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, caller *auth.Caller, bookingID, status string) (*models.Booking, error) {
	if err := auth.Can(caller, auth.CapOverrideStatus, ""); err != nil {
		return nil, err
	}
	target, err := models.ParseBookingStatus(status)
	if err != nil {
		return nil, domain.Errorf(domain.ErrValidation, "%v", err)
	}

	booking, err := s.Bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.Status.CanTransitionTo(target) {
		return nil, domain.Errorf(domain.ErrConflict, "cannot move booking %s from %s to %s", booking.ID, booking.Status, target)
	}

	tr := models.BookingTransition{
		BookingID:   booking.ID,
		FromVersion: booking.Version,
		FromStatus:  booking.Status,
		ToStatus:    target,
	}

	reservedNow := false
	switch target {
	case models.StatusConfirmed:
		tr.Reserved = booking.Reserved
		if !booking.Reserved {
			_, err := s.Ledger.Reserve(ctx, booking.PackageID, 1)
			switch {
			case err == nil:
				tr.Reserved = true
				reservedNow = true
			case errors.Is(err, domain.ErrOutOfStock) && s.opts.AdminOverrideIgnoresStock:
				s.logger.Warn().Str("booking_id", booking.ID).Str("package_id", booking.PackageID).
					Msg("Confirming sold-out booking without inventory")
			default:
				return nil, err
			}
		}
	case models.StatusCancelled:
		if booking.HasPayment() {
			tr.PaymentStatus = models.StringPtr(models.PaymentStatusRefunded)
		}
	case models.StatusRefunded:
		tr.PaymentStatus = models.StringPtr(models.PaymentStatusRefunded)
	}

	updated, err := s.Bookings.TransitionBooking(ctx, tr)
	if err != nil {
		if reservedNow {
			s.release(ctx, booking.ID, booking.PackageID)
		}
		return nil, fmt.Errorf("update booking status %s: %w", booking.ID, err)
	}
	if booking.Reserved && !updated.Reserved {
		s.release(ctx, booking.ID, booking.PackageID)
	}

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("from", string(booking.Status)).
		Str("to", string(target)).
		Str("by", caller.UserID).
		Msg("Booking status overridden")
	s.transitioned(ctx, events.EventBookingStatusChanged, booking.Status, updated, caller)
	return updated, nil
}

func (s *BookingService) RateBooking(ctx context.Context, caller *auth.Caller, bookingID string, rating int, review string) (*models.Booking, error) {
	if caller == nil || caller.UserID == "" {
		return nil, domain.Errorf(domain.ErrUnauthenticated, "sign in required")
	}
	booking, err := s.Bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := auth.Can(caller, auth.CapRate, booking.UserID); err != nil {
		return nil, err
	}
	if rating < models.MinRating || rating > models.MaxRating {
		return nil, domain.Errorf(domain.ErrValidation, "rating must be between %d and %d", models.MinRating, models.MaxRating)
	}

	updated, err := s.Bookings.SetRatingReview(ctx, booking.ID, caller.UserID, rating, strings.TrimSpace(review))
	if err != nil {
		return nil, err
	}
	s.publish(events.EventBookingRated, updated, "", caller)
	return updated, nil
}

// release returns one unit for a booking. A failed inline release is queued
// for the worker so the unit is not lost.
func (s *BookingService) release(ctx context.Context, bookingID, packageID string) {
	_, err := s.Ledger.Release(ctx, packageID, 1)
	if err == nil {
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn().Str("booking_id", bookingID).Str("package_id", packageID).Msg("Release skipped, package deleted")
		return
	}

	s.logger.Error().Err(err).Str("booking_id", bookingID).Str("package_id", packageID).Msg("Inventory release failed, queueing retry")
	if s.Tasks == nil {
		return
	}
	// detached so a cancelled request still records the retry
	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, qerr := s.Tasks.Enqueue(qctx, models.TaskTypeRelease, bookingID, models.ReleaseTaskPayload{PackageID: packageID, Count: 1}); qerr != nil {
		s.logger.Error().Err(qerr).Str("booking_id", bookingID).Msg("Failed to queue inventory release")
	}
}

func (s *BookingService) transitioned(ctx context.Context, eventType string, from models.BookingStatus, b *models.Booking, caller *auth.Caller) {
	metrics.IncTransition(string(from), string(b.Status))
	s.publish(eventType, b, from, caller)
	s.enqueueSync(ctx, b)
}

func (s *BookingService) publish(eventType string, b *models.Booking, from models.BookingStatus, caller *auth.Caller) {
	if s.Events == nil {
		return
	}
	payload := events.NewBookingPayload(b, from)
	if caller != nil {
		payload.ChangedByID = caller.UserID
		payload.ChangedByRole = string(caller.Role)
	}
	if err := s.Events.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", b.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, b *models.Booking) {
	if !s.opts.SyncSheets || s.Tasks == nil {
		return
	}
	if _, err := s.Tasks.Enqueue(ctx, models.TaskTypeSheetsSync, b.ID, nil); err != nil {
		s.logger.Error().Err(err).Str("booking_id", b.ID).Msg("sheets enqueue error")
	}
}

func validateDate(date string) error {
	if strings.TrimSpace(date) == "" {
		return domain.Errorf(domain.ErrValidation, "date is required")
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return domain.Errorf(domain.ErrValidation, "date must be YYYY-MM-DD")
	}
	return nil
}

func publicUser(u *models.User) *models.User {
	return &models.User{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}
