package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"academy/internal/models"
	"academy/internal/notify"
	"academy/internal/repositories"

	amqp "github.com/streadway/amqp"
)

// ReceiptQueue receives completed orders for receipt mail.
const ReceiptQueue = "academy.receipts"

// ReceiptConsumer mails a receipt for every completed order.
type ReceiptConsumer struct {
	users  repositories.UserRepository
	orders repositories.OrderRepository
	mailer notify.Mailer
}

func NewReceiptConsumer(users repositories.UserRepository, orders repositories.OrderRepository, mailer notify.Mailer) *ReceiptConsumer {
	return &ReceiptConsumer{users: users, orders: orders, mailer: mailer}
}

// Deliver adapts Handle to the rabbitmq consumer signature.
func (c *ReceiptConsumer) Deliver(msg amqp.Delivery) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return c.Handle(ctx, msg.Body)
}

// Handle processes one order event body. Events other than
// order.completed are acknowledged without action.
func (c *ReceiptConsumer) Handle(ctx context.Context, body []byte) error {
	var ev OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		// Malformed messages would fail forever; drop them.
		slog.Error("discarding malformed order event", "error", err)
		return nil
	}
	if ev.Type != OrderCompleted {
		return nil
	}

	order, err := c.orders.GetByID(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("loading order %s: %w", ev.OrderID, err)
	}
	if order.Status != models.OrderStatusCompleted {
		slog.Warn("receipt skipped, order no longer completed", "order_id", order.ID, "status", order.Status)
		return nil
	}
	user, err := c.users.GetByID(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("loading user %s: %w", order.UserID, err)
	}

	receipt := notify.Receipt{
		ToEmail:  user.Email,
		ToName:   user.Name,
		OrderID:  order.ID,
		Currency: order.Currency,
		Total:    order.TotalAmount,
	}
	for _, it := range order.Items {
		title := it.CourseID
		if it.Course != nil {
			title = it.Course.Title
		}
		receipt.Lines = append(receipt.Lines, notify.ReceiptLine{Title: title, Price: it.Price})
	}
	return c.mailer.SendReceipt(ctx, receipt)
}
