package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"travelbooking/internal/models"

	razorpay "github.com/razorpay/razorpay-go"
)

// razorpayAPI is the subset of the Razorpay SDK the adapter calls.
type razorpayAPI interface {
	CreateOrder(data map[string]interface{}) (map[string]interface{}, error)
	FetchOrder(orderID string) (map[string]interface{}, error)
	OrderPayments(orderID string) (map[string]interface{}, error)
	RefundPayment(paymentID string, amount int, data map[string]interface{}) (map[string]interface{}, error)
}

type razorpaySDK struct {
	client *razorpay.Client
}

func (s razorpaySDK) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	return s.client.Order.Create(data, nil)
}

func (s razorpaySDK) FetchOrder(orderID string) (map[string]interface{}, error) {
	return s.client.Order.Fetch(orderID, nil, nil)
}

func (s razorpaySDK) OrderPayments(orderID string) (map[string]interface{}, error) {
	return s.client.Order.Payments(orderID, nil, nil)
}

func (s razorpaySDK) RefundPayment(paymentID string, amount int, data map[string]interface{}) (map[string]interface{}, error) {
	return s.client.Payment.Refund(paymentID, amount, data, nil)
}

// Razorpay adapts Orders as payment intents. The order id is the intent id and
// also the client secret handed to Checkout.
type Razorpay struct {
	api razorpayAPI
	now func() time.Time
}

func NewRazorpay(keyID, secret string) *Razorpay {
	return newRazorpay(razorpaySDK{client: razorpay.NewClient(keyID, secret)})
}

func newRazorpay(api razorpayAPI) *Razorpay {
	return &Razorpay{api: api, now: time.Now}
}

func (r *Razorpay) Name() string {
	return "razorpay"
}

func (r *Razorpay) CreateIntent(ctx context.Context, req models.IntentRequest) (*models.PaymentIntent, error) {
	data := map[string]interface{}{
		"amount":   ToMinorUnits(req.Amount),
		"currency": strings.ToUpper(req.Currency),
		"receipt":  fmt.Sprintf("receipt_order_%d", r.now().UnixMilli()),
		"notes": map[string]interface{}{
			"packageId":    req.PackageID,
			"userId":       req.UserID,
			"packageTitle": req.PackageTitle,
			"userEmail":    req.UserEmail,
		},
	}

	order, err := runWithContext(ctx, func() (map[string]interface{}, error) {
		return r.api.CreateOrder(data)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	return intentFromOrder(order, "")
}

func (r *Razorpay) GetIntent(ctx context.Context, intentID string) (*models.PaymentIntent, error) {
	order, err := runWithContext(ctx, func() (map[string]interface{}, error) {
		return r.api.FetchOrder(intentID)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay fetch order %s: %w", intentID, err)
	}

	method := ""
	if str(order, "status") == "paid" {
		if p, err := r.capturedPayment(ctx, intentID); err == nil {
			method = str(p, "method")
		}
	}
	return intentFromOrder(order, method)
}

func (r *Razorpay) Refund(ctx context.Context, req models.RefundRequest) (*models.Refund, error) {
	payment, err := r.capturedPayment(ctx, req.PaymentID)
	if err != nil {
		return nil, err
	}

	amount := int(num(payment, "amount"))
	if req.Amount > 0 {
		amount = int(ToMinorUnits(req.Amount))
	}
	data := map[string]interface{}{
		"notes": map[string]interface{}{
			"reason":    req.Reason,
			"bookingId": req.BookingID,
		},
	}

	resp, err := runWithContext(ctx, func() (map[string]interface{}, error) {
		return r.api.RefundPayment(str(payment, "id"), amount, data)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay refund %s: %w", req.PaymentID, err)
	}
	return &models.Refund{
		ID:        str(resp, "id"),
		PaymentID: req.PaymentID,
		Amount:    FromMinorUnits(int64(num(resp, "amount"))),
		Status:    str(resp, "status"),
	}, nil
}

func (r *Razorpay) capturedPayment(ctx context.Context, orderID string) (map[string]interface{}, error) {
	resp, err := runWithContext(ctx, func() (map[string]interface{}, error) {
		return r.api.OrderPayments(orderID)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay order payments %s: %w", orderID, err)
	}

	items, _ := resp["items"].([]interface{})
	for _, item := range items {
		p, ok := item.(map[string]interface{})
		if ok && str(p, "status") == "captured" {
			return p, nil
		}
	}
	return nil, errors.New("razorpay: no captured payment for order " + orderID)
}

func intentFromOrder(order map[string]interface{}, method string) (*models.PaymentIntent, error) {
	id := str(order, "id")
	if id == "" {
		return nil, errors.New("razorpay: order response without id")
	}

	status := "requires_payment_method"
	if str(order, "status") == "paid" {
		status = models.PaymentStatusSucceeded
	}
	notes, _ := order["notes"].(map[string]interface{})
	return &models.PaymentIntent{
		ClientSecret:    id,
		PaymentIntentID: id,
		Amount:          FromMinorUnits(int64(num(order, "amount"))),
		Currency:        strings.ToLower(str(order, "currency")),
		Status:          status,
		PaymentMethod:   method,
		PackageID:       str(notes, "packageId"),
	}, nil
}

func str(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func num(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
