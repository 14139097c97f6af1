// Package payment talks to the payment gateway and checks the signatures
// it hands back to clients and webhooks.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderRequest opens a gateway order for a local pending order.
type OrderRequest struct {
	Amount   decimal.Decimal
	Currency string
	Receipt  string // local order id
	Notes    map[string]string
}

// Order is the gateway's view of an order.
type Order struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// SubscriptionRequest opens a recurring gateway subscription.
type SubscriptionRequest struct {
	PlanID         string
	TotalCount     int
	CustomerNotify bool
	Notes          map[string]string
}

type Subscription struct {
	ID     string `json:"id"`
	PlanID string `json:"plan_id"`
	Status string `json:"status"`
}

// Gateway is the outbound half of the payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Subscription, error)
}

// MinorUnits converts a currency amount to the smallest unit (paise, cents).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
