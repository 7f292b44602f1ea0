package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"travelbooking/internal/models"

	"github.com/google/uuid"
)

var errSandboxUnknownIntent = errors.New("sandbox: unknown payment intent")

// Sandbox is an in-memory provider for development and tests.
type Sandbox struct {
	mu          sync.Mutex
	intents     map[string]*models.PaymentIntent
	refunded    map[string]float64
	autoSucceed bool

	failNext error
	delay    time.Duration
}

func NewSandbox(autoSucceed bool) *Sandbox {
	return &Sandbox{
		intents:     make(map[string]*models.PaymentIntent),
		refunded:    make(map[string]float64),
		autoSucceed: autoSucceed,
	}
}

func (s *Sandbox) Name() string {
	return "sandbox"
}

// Succeed marks an intent as paid by method, as a provider webhook would.
func (s *Sandbox) Succeed(intentID, method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[intentID]
	if !ok {
		return errSandboxUnknownIntent
	}
	intent.Status = models.PaymentStatusSucceeded
	intent.PaymentMethod = method
	return nil
}

// FailNext makes the next call return err.
func (s *Sandbox) FailNext(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

// SetDelay makes every call wait d or until the context ends.
func (s *Sandbox) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// Refunded returns the total refunded for an intent.
func (s *Sandbox) Refunded(intentID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refunded[intentID]
}

func (s *Sandbox) begin(ctx context.Context) error {
	s.mu.Lock()
	delay := s.delay
	err := s.failNext
	s.failNext = nil
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (s *Sandbox) CreateIntent(ctx context.Context, req models.IntentRequest) (*models.PaymentIntent, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("sandbox: invalid amount %v", req.Amount)
	}

	id := "pi_sandbox_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	intent := &models.PaymentIntent{
		ClientSecret:    id + "_secret",
		PaymentIntentID: id,
		Amount:          FromMinorUnits(ToMinorUnits(req.Amount)),
		Currency:        strings.ToLower(req.Currency),
		Status:          "requires_payment_method",
		PackageID:       req.PackageID,
	}
	if s.autoSucceed {
		intent.Status = models.PaymentStatusSucceeded
		intent.PaymentMethod = "card"
	}

	s.mu.Lock()
	s.intents[id] = intent
	s.mu.Unlock()

	out := *intent
	return &out, nil
}

func (s *Sandbox) GetIntent(ctx context.Context, intentID string) (*models.PaymentIntent, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.intents[intentID]
	if !ok {
		return nil, errSandboxUnknownIntent
	}
	out := *intent
	return &out, nil
}

func (s *Sandbox) Refund(ctx context.Context, req models.RefundRequest) (*models.Refund, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.intents[req.PaymentID]
	if !ok {
		return nil, errSandboxUnknownIntent
	}
	if intent.Status != models.PaymentStatusSucceeded {
		return nil, fmt.Errorf("sandbox: intent %s is %s", req.PaymentID, intent.Status)
	}

	amount := req.Amount
	if amount <= 0 {
		amount = intent.Amount - s.refunded[req.PaymentID]
	}
	if s.refunded[req.PaymentID]+amount > intent.Amount+1e-9 {
		return nil, fmt.Errorf("sandbox: refund exceeds charge on %s", req.PaymentID)
	}
	s.refunded[req.PaymentID] += amount

	return &models.Refund{
		ID:        "re_sandbox_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		PaymentID: req.PaymentID,
		Amount:    amount,
		Status:    "succeeded",
	}, nil
}
