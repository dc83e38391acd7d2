// Package gateway holds payment gateway client wiring. Real Razorpay or
// Stripe clients satisfy models.PaymentGateway; Local stands in when no
// gateway is configured and lets the rest of the billing flow run.
package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gitlab.com/commonsward/commune/internal/models"
)

type Local struct{}

func (Local) CreateOrder(ctx context.Context, amountMinor int64, currency models.Currency) (string, error) {
	if amountMinor <= 0 {
		return "", fmt.Errorf("order amount must be positive, got %d", amountMinor)
	}
	return "local_" + uuid.New().String(), nil
}
