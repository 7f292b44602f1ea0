package payment

import (
	"context"
	"fmt"
	"strings"

	"travelbooking/internal/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Stripe adapts PaymentIntents and Refunds.
type Stripe struct {
	api *client.API
}

// NewStripe builds an adapter. backends may be nil to use api.stripe.com.
func NewStripe(secretKey string, backends *stripe.Backends) *Stripe {
	return &Stripe{api: client.New(secretKey, backends)}
}

func (s *Stripe) Name() string {
	return "stripe"
}

func (s *Stripe) CreateIntent(ctx context.Context, req models.IntentRequest) (*models.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(ToMinorUnits(req.Amount)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String(fmt.Sprintf("Booking for %s", req.PackageTitle)),
	}
	if req.UserEmail != "" {
		params.ReceiptEmail = stripe.String(req.UserEmail)
	}
	params.Context = ctx
	params.AddMetadata("packageId", req.PackageID)
	params.AddMetadata("userId", req.UserID)
	params.AddMetadata("packageTitle", req.PackageTitle)
	params.AddMetadata("userEmail", req.UserEmail)

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return intentFromStripe(pi), nil
}

func (s *Stripe) GetIntent(ctx context.Context, intentID string) (*models.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get payment intent %s: %w", intentID, err)
	}
	return intentFromStripe(pi), nil
}

func (s *Stripe) Refund(ctx context.Context, req models.RefundRequest) (*models.Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentID),
		Reason:        stripe.String(req.Reason),
	}
	if req.Amount > 0 {
		params.Amount = stripe.Int64(ToMinorUnits(req.Amount))
	}
	params.Context = ctx
	params.AddMetadata("bookingId", req.BookingID)

	r, err := s.api.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe refund %s: %w", req.PaymentID, err)
	}
	return &models.Refund{
		ID:        r.ID,
		PaymentID: req.PaymentID,
		Amount:    FromMinorUnits(r.Amount),
		Status:    string(r.Status),
	}, nil
}

func intentFromStripe(pi *stripe.PaymentIntent) *models.PaymentIntent {
	intent := &models.PaymentIntent{
		ClientSecret:    pi.ClientSecret,
		PaymentIntentID: pi.ID,
		Amount:          FromMinorUnits(pi.Amount),
		Currency:        string(pi.Currency),
		Status:          string(pi.Status),
		PackageID:       pi.Metadata["packageId"],
	}
	if len(pi.PaymentMethodTypes) > 0 {
		intent.PaymentMethod = pi.PaymentMethodTypes[0]
	}
	return intent
}
