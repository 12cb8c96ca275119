package payment

import (
	"context"
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"go.uber.org/zap"

	"github.com/rentx-marketplace/service-rental/internal/platform/domain"
)

// Order is a provider-side order the checkout widget pays against.
type Order struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

// Gateway creates orders with the payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, amountCents int64, currency string) (*Order, error)
}

// RazorpayGateway implements Gateway on the Razorpay orders API.
type RazorpayGateway struct {
	client *razorpay.Client
	logger *zap.Logger
}

// NewRazorpayGateway creates a gateway authenticated with the key pair.
func NewRazorpayGateway(keyID, keySecret string, logger *zap.Logger) *RazorpayGateway {
	return &RazorpayGateway{
		client: razorpay.NewClient(keyID, keySecret),
		logger: logger,
	}
}

// CreateOrder opens an order for amountCents minor units.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountCents int64, currency string) (*Order, error) {
	if amountCents <= 0 {
		return nil, domain.NewValidationError("amount must be positive")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	receipt := fmt.Sprintf("receipt_order_%d", time.Now().UnixMilli())
	body, err := g.client.Order.Create(map[string]interface{}{
		"amount":   amountCents,
		"currency": currency,
		"receipt":  receipt,
	}, nil)
	if err != nil {
		g.logger.Error("razorpay order creation failed",
			zap.Int64("amount_cents", amountCents),
			zap.Error(err),
		)
		return nil, domain.NewUpstreamError("razorpay", err)
	}

	order := &Order{
		AmountCents: amountCents,
		Currency:    currency,
		Receipt:     receipt,
	}
	if id, ok := body["id"].(string); ok {
		order.ID = id
	}
	if status, ok := body["status"].(string); ok {
		order.Status = status
	}
	if order.ID == "" {
		return nil, domain.NewUpstreamError("razorpay", fmt.Errorf("order response missing id"))
	}
	return order, nil
}
