package payment

import (
	"context"
	"testing"

	"travelbooking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandboxLifecycle(t *testing.T) {
	sb := NewSandbox(false)
	ctx := context.Background()

	intent, err := sb.CreateIntent(ctx, models.IntentRequest{Amount: 100, Currency: "INR"})
	require.NoError(t, err)
	assert.Equal(t, "inr", intent.Currency)
	assert.NotEmpty(t, intent.ClientSecret)
	assert.False(t, intent.Succeeded())

	_, err = sb.Refund(ctx, models.RefundRequest{PaymentID: intent.PaymentIntentID})
	assert.Error(t, err, "unpaid intents cannot be refunded")

	require.NoError(t, sb.Succeed(intent.PaymentIntentID, "upi"))
	got, err := sb.GetIntent(ctx, intent.PaymentIntentID)
	require.NoError(t, err)
	assert.True(t, got.Succeeded())
	assert.Equal(t, "upi", got.PaymentMethod)

	_, err = sb.Refund(ctx, models.RefundRequest{PaymentID: intent.PaymentIntentID, Amount: 40})
	require.NoError(t, err)
	_, err = sb.Refund(ctx, models.RefundRequest{PaymentID: intent.PaymentIntentID, Amount: 70})
	assert.Error(t, err)
	assert.Equal(t, 40.0, sb.Refunded(intent.PaymentIntentID))

	assert.Error(t, sb.Succeed("pi_missing", "card"))
}

func TestSandboxAutoSucceed(t *testing.T) {
	sb := NewSandbox(true)
	intent, err := sb.CreateIntent(context.Background(), models.IntentRequest{Amount: 1, Currency: "inr"})
	require.NoError(t, err)
	assert.True(t, intent.Succeeded())
	assert.Equal(t, "card", intent.PaymentMethod)
}
