package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"travelbooking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRazorpayAPI struct {
	mock.Mock
}

func (m *mockRazorpayAPI) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	args := m.Called(data)
	return mapOrNil(args.Get(0)), args.Error(1)
}

func (m *mockRazorpayAPI) FetchOrder(orderID string) (map[string]interface{}, error) {
	args := m.Called(orderID)
	return mapOrNil(args.Get(0)), args.Error(1)
}

func (m *mockRazorpayAPI) OrderPayments(orderID string) (map[string]interface{}, error) {
	args := m.Called(orderID)
	return mapOrNil(args.Get(0)), args.Error(1)
}

func (m *mockRazorpayAPI) RefundPayment(paymentID string, amount int, data map[string]interface{}) (map[string]interface{}, error) {
	args := m.Called(paymentID, amount, data)
	return mapOrNil(args.Get(0)), args.Error(1)
}

func mapOrNil(v interface{}) map[string]interface{} {
	if v == nil {
		return nil
	}
	return v.(map[string]interface{})
}

func capturedPayments() map[string]interface{} {
	return map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"id": "pay_failed", "status": "failed", "method": "card", "amount": float64(50000)},
			map[string]interface{}{"id": "pay_1", "status": "captured", "method": "upi", "amount": float64(50000)},
		},
	}
}

func TestRazorpayCreateIntent(t *testing.T) {
	api := &mockRazorpayAPI{}
	rz := newRazorpay(api)
	rz.now = func() time.Time { return time.UnixMilli(1700000000000) }

	api.On("CreateOrder", mock.MatchedBy(func(data map[string]interface{}) bool {
		return data["amount"] == int64(50000) && data["currency"] == "INR" && data["receipt"] == "receipt_order_1700000000000"
	})).Return(map[string]interface{}{"id": "order_1", "amount": float64(50000), "currency": "INR", "status": "created"}, nil)

	intent, err := rz.CreateIntent(context.Background(), models.IntentRequest{PackageID: "p1", Amount: 500, Currency: "inr"})
	require.NoError(t, err)
	assert.Equal(t, "order_1", intent.PaymentIntentID)
	assert.Equal(t, "order_1", intent.ClientSecret)
	assert.Equal(t, 500.0, intent.Amount)
	assert.Equal(t, "inr", intent.Currency)
	assert.False(t, intent.Succeeded())
	api.AssertExpectations(t)
}

func TestRazorpayGetIntentPaid(t *testing.T) {
	api := &mockRazorpayAPI{}
	rz := newRazorpay(api)

	api.On("FetchOrder", "order_1").Return(map[string]interface{}{
		"id": "order_1", "amount": float64(50000), "currency": "INR", "status": "paid",
		"notes": map[string]interface{}{"packageId": "p1"},
	}, nil)
	api.On("OrderPayments", "order_1").Return(capturedPayments(), nil)

	intent, err := rz.GetIntent(context.Background(), "order_1")
	require.NoError(t, err)
	assert.True(t, intent.Succeeded())
	assert.Equal(t, "upi", intent.PaymentMethod)
	assert.Equal(t, "p1", intent.PackageID)
}

func TestRazorpayGetIntentError(t *testing.T) {
	api := &mockRazorpayAPI{}
	rz := newRazorpay(api)
	api.On("FetchOrder", "order_x").Return(nil, errors.New("BAD_REQUEST_ERROR"))

	_, err := rz.GetIntent(context.Background(), "order_x")
	assert.Error(t, err)
}

func TestRazorpayRefund(t *testing.T) {
	api := &mockRazorpayAPI{}
	rz := newRazorpay(api)

	api.On("OrderPayments", "order_1").Return(capturedPayments(), nil)
	api.On("RefundPayment", "pay_1", 20000, mock.Anything).
		Return(map[string]interface{}{"id": "rfnd_1", "amount": float64(20000), "status": "processed"}, nil)

	refund, err := rz.Refund(context.Background(), models.RefundRequest{PaymentID: "order_1", Amount: 200, Reason: "requested_by_customer"})
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", refund.ID)
	assert.Equal(t, 200.0, refund.Amount)
	assert.Equal(t, "order_1", refund.PaymentID)
	api.AssertExpectations(t)
}

func TestRazorpayRefundFullAmountAndNoCapture(t *testing.T) {
	api := &mockRazorpayAPI{}
	rz := newRazorpay(api)

	api.On("OrderPayments", "order_1").Return(capturedPayments(), nil)
	api.On("RefundPayment", "pay_1", 50000, mock.Anything).
		Return(map[string]interface{}{"id": "rfnd_2", "amount": float64(50000), "status": "processed"}, nil)
	_, err := rz.Refund(context.Background(), models.RefundRequest{PaymentID: "order_1"})
	require.NoError(t, err)

	api.On("OrderPayments", "order_2").Return(map[string]interface{}{"items": []interface{}{}}, nil)
	_, err = rz.Refund(context.Background(), models.RefundRequest{PaymentID: "order_2"})
	assert.Error(t, err)
}
