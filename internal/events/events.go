// Package events carries order lifecycle notifications over the message bus.
package events

import (
	"context"
	"time"

	"academy/internal/models"
	"academy/pkg/rabbitmq"

	"github.com/shopspring/decimal"
)

// Exchange is the topic exchange order events are published to.
const Exchange = "academy.orders"

// Routing keys.
const (
	OrderCreated   = "order.created"
	OrderCompleted = "order.completed"
	OrderFailed    = "order.failed"
	OrderRefunded  = "order.refunded"
)

// OrderEvent is the message body for every order routing key.
type OrderEvent struct {
	Type             string          `json:"type"`
	OrderID          string          `json:"order_id"`
	UserID           string          `json:"user_id"`
	Status           string          `json:"status"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Currency         string          `json:"currency"`
	CourseIDs        []string        `json:"course_ids"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

// NewOrderEvent snapshots order under the given routing key.
func NewOrderEvent(eventType string, order *models.Order) OrderEvent {
	ev := OrderEvent{
		Type:        eventType,
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		CourseIDs:   order.CourseIDs(),
		OccurredAt:  time.Now().UTC(),
	}
	if order.PaymentGatewayPaymentID != nil {
		ev.GatewayPaymentID = *order.PaymentGatewayPaymentID
	}
	return ev
}

// Publisher emits order events.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, ev OrderEvent) error
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderEvent(context.Context, OrderEvent) error { return nil }

// AMQPPublisher publishes events to RabbitMQ.
type AMQPPublisher struct {
	client *rabbitmq.Client
}

func NewAMQPPublisher(client *rabbitmq.Client) *AMQPPublisher {
	return &AMQPPublisher{client: client}
}

func (p *AMQPPublisher) PublishOrderEvent(ctx context.Context, ev OrderEvent) error {
	return p.client.PublishJSON(ctx, ev.Type, ev)
}
