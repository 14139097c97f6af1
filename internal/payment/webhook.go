package payment

import (
	"encoding/json"
	"fmt"
)

// Webhook event names handled by the service.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventRefundProcessed = "refund.processed"
)

// WebhookEvent is the envelope of a gateway webhook delivery. Only the
// entities this service acts on are decoded.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment,omitempty"`
		Refund *struct {
			Entity RefundEntity `json:"entity"`
		} `json:"refund,omitempty"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

type PaymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
}

type RefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
}

// ParseWebhook decodes and shape-checks a delivery. Unknown event names
// parse fine; the entity required by a known event must be present.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("malformed webhook body: %w", err)
	}
	if ev.Event == "" {
		return nil, fmt.Errorf("webhook body has no event name")
	}
	switch ev.Event {
	case EventPaymentCaptured, EventPaymentFailed:
		if ev.Payload.Payment == nil || ev.Payload.Payment.Entity.OrderID == "" {
			return nil, fmt.Errorf("%s webhook without payment order id", ev.Event)
		}
	case EventRefundProcessed:
		if ev.Payload.Refund == nil || ev.Payload.Refund.Entity.PaymentID == "" {
			return nil, fmt.Errorf("%s webhook without refund payment id", ev.Event)
		}
	}
	return &ev, nil
}

// EntityID is the id of the entity the event is about, if any.
func (e *WebhookEvent) EntityID() string {
	switch {
	case e.Payload.Payment != nil:
		return e.Payload.Payment.Entity.ID
	case e.Payload.Refund != nil:
		return e.Payload.Refund.Entity.ID
	}
	return ""
}
