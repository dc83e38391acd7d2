package models

import (
	"context"
	"time"
)

// PaymentGateway is the narrow seam to Razorpay/Stripe clients. The core
// only supplies the post-credit amount; gateway protocols live outside.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency Currency) (orderRef string, err error)
}

type PaymentStatus string

const (
	PaymentPendingGateway PaymentStatus = "pending_gateway"
	PaymentSatisfied      PaymentStatus = "satisfied"
)

// Payment records the outcome of applying credits to an amount due.
// When Status is satisfied the gateway was never contacted and the
// consumed points are already debited; when pending_gateway the debit
// waits for gateway confirmation.
type Payment struct {
	ID             string
	UserID         string
	Currency       Currency
	AmountDue      int64 `db:"amount_due"`
	CreditApplied  int64 `db:"credit_applied"`
	AmountToCharge int64 `db:"amount_to_charge"`
	OrderRef       string
	Status         PaymentStatus
	CreatedAt      time.Time
}
