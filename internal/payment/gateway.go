package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"travelbooking/internal/config"
	"travelbooking/internal/domain"
	"travelbooking/internal/metrics"
	"travelbooking/internal/models"

	"github.com/rs/zerolog"
)

// New builds the provider adapter named in cfg, wrapped with timeouts and error mapping.
func New(cfg config.PaymentConfig, logger *zerolog.Logger) (*Gateway, error) {
	var provider domain.PaymentGateway
	switch cfg.Provider {
	case config.ProviderStripe:
		provider = NewStripe(cfg.SecretKey, nil)
	case config.ProviderRazorpay:
		provider = NewRazorpay(cfg.KeyID, cfg.SecretKey)
	case config.ProviderSandbox, "":
		provider = NewSandbox(cfg.SandboxAutoSucceed)
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
	return Wrap(provider, cfg.Timeout, logger), nil
}

// Gateway decorates a provider adapter: every call gets a deadline, is counted,
// and any provider failure surfaces as domain.ErrUpstreamPayment.
type Gateway struct {
	provider domain.PaymentGateway
	timeout  time.Duration
	logger   *zerolog.Logger
}

func Wrap(provider domain.PaymentGateway, timeout time.Duration, logger *zerolog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{provider: provider, timeout: timeout, logger: logger}
}

func (g *Gateway) Name() string {
	return g.provider.Name()
}

// Provider returns the wrapped adapter.
func (g *Gateway) Provider() domain.PaymentGateway {
	return g.provider
}

func (g *Gateway) CreateIntent(ctx context.Context, req models.IntentRequest) (*models.PaymentIntent, error) {
	if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return nil, domain.Errorf(domain.ErrUpstreamPayment, "amount must be positive, got %v", req.Amount)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	intent, err := g.provider.CreateIntent(ctx, req)
	return intent, g.finish("create_intent", req.PackageID, err)
}

func (g *Gateway) GetIntent(ctx context.Context, intentID string) (*models.PaymentIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	intent, err := g.provider.GetIntent(ctx, intentID)
	return intent, g.finish("get_intent", intentID, err)
}

func (g *Gateway) Refund(ctx context.Context, req models.RefundRequest) (*models.Refund, error) {
	if req.Reason == "" {
		req.Reason = models.DefaultRefundReason
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	refund, err := g.provider.Refund(ctx, req)
	return refund, g.finish("refund", req.PaymentID, err)
}

func (g *Gateway) finish(op, ref string, err error) error {
	metrics.IncGatewayCall(g.provider.Name(), op, err)
	if err == nil {
		return nil
	}

	g.logger.Warn().Err(err).Str("provider", g.provider.Name()).Str("op", op).Str("ref", ref).Msg("Payment provider call failed")
	if errors.Is(err, domain.ErrUpstreamPayment) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w: timed out", op, ref, domain.ErrUpstreamPayment)
	}
	return fmt.Errorf("%s %s: %w: %v", op, ref, domain.ErrUpstreamPayment, err)
}

// ToMinorUnits converts a currency amount to the provider's smallest unit.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}

// runWithContext runs fn in its own goroutine so SDKs without context support
// still honor the caller's deadline.
func runWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
