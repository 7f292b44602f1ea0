package service

import (
	"context"

	"travelbooking/internal/auth"
	"travelbooking/internal/domain"
	"travelbooking/internal/models"

	"github.com/rs/zerolog"
)

// AnalyticsService serves the read side: single bookings, histories, staff
// listings and revenue reports.
type AnalyticsService struct {
	bookings domain.BookingStore
	users    domain.UserStore
	logger   *zerolog.Logger
}

func NewAnalyticsService(bookings domain.BookingStore, users domain.UserStore, logger *zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{bookings: bookings, users: users, logger: logger}
}

func (s *AnalyticsService) GetBookingByID(ctx context.Context, caller *auth.Caller, id string) (*models.Booking, error) {
	if caller == nil || caller.UserID == "" {
		return nil, domain.Errorf(domain.ErrUnauthenticated, "sign in required")
	}
	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Can(caller, auth.CapViewBooking, booking.UserID); err != nil {
		return nil, err
	}
	return booking, nil
}

// GetBookingHistory lists a user's bookings in the order they were made.
func (s *AnalyticsService) GetBookingHistory(ctx context.Context, caller *auth.Caller, userID string) ([]*models.Booking, error) {
	if userID == "" && caller != nil {
		userID = caller.UserID
	}
	if err := auth.Can(caller, auth.CapViewHistory, userID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.bookings.ListBookingsByUser(ctx, userID)
}

func (s *AnalyticsService) GetBookingsByStatus(ctx context.Context, caller *auth.Caller, status string) ([]*models.Booking, error) {
	if err := auth.Can(caller, auth.CapListByStatus, ""); err != nil {
		return nil, err
	}
	parsed, err := models.ParseBookingStatus(status)
	if err != nil {
		return nil, domain.Errorf(domain.ErrValidation, "%v", err)
	}
	return s.bookings.ListBookingsByStatus(ctx, parsed)
}

func (s *AnalyticsService) GetAllBookings(ctx context.Context, caller *auth.Caller) ([]*models.Booking, error) {
	if err := auth.Can(caller, auth.CapListAll, ""); err != nil {
		return nil, err
	}
	return s.bookings.ListAllBookings(ctx)
}

func (s *AnalyticsService) GetPaymentAnalytics(ctx context.Context, caller *auth.Caller, r models.AnalyticsRange) (*models.PaymentAnalytics, error) {
	if err := auth.Can(caller, auth.CapViewAnalytics, ""); err != nil {
		return nil, err
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return nil, domain.Errorf(domain.ErrValidation, "endDate must not be before startDate")
	}
	return s.bookings.PaymentAnalytics(ctx, r)
}

func (s *AnalyticsService) UsersWithBookingCounts(ctx context.Context, caller *auth.Caller) ([]*models.UserBookingCount, error) {
	if err := auth.Can(caller, auth.CapViewUsers, ""); err != nil {
		return nil, err
	}
	return s.users.ListUsersWithBookingCounts(ctx)
}

func (s *AnalyticsService) UsersByPackage(ctx context.Context, caller *auth.Caller, packageID string) ([]*models.User, error) {
	if err := auth.Can(caller, auth.CapViewUsers, ""); err != nil {
		return nil, err
	}
	return s.users.ListUsersByPackage(ctx, packageID)
}
