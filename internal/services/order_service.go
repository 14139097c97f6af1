package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"academy/internal/apperrors"
	"academy/internal/events"
	"academy/internal/models"
	"academy/internal/payment"
	"academy/internal/repositories"

	"gorm.io/datatypes"
)

// PaymentFailedMessage is what a learner sees when verification fails.
const PaymentFailedMessage = "Payment failed, please contact support"

// Checkout is the result of creating an order: what the client needs to
// open the gateway's payment widget.
type Checkout struct {
	Order          *models.Order `json:"-"`
	OrderID        string        `json:"orderId"`
	GatewayOrderID string        `json:"gatewayOrderId"`
	Amount         int64         `json:"amount"` // minor units
	Currency       string        `json:"currency"`
	KeyID          string        `json:"keyId,omitempty"`
}

// VerifyInput is the payload the client returns after checkout.
type VerifyInput struct {
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// OrderServiceDeps wires an OrderService.
type OrderServiceDeps struct {
	Orders     repositories.OrderRepository
	Courses    repositories.CourseRepository
	Webhooks   repositories.WebhookEventRepository
	Gateway    payment.Gateway
	Verifier   *payment.Verifier
	Publisher  events.Publisher
	Currency   string
	KeyID      string
	PendingTTL time.Duration
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	courseRepo  repositories.CourseRepository
	webhookRepo repositories.WebhookEventRepository
	gateway     payment.Gateway
	verifier    *payment.Verifier
	publisher   events.Publisher
	currency    string
	keyID       string
	pendingTTL  time.Duration
}

// NewOrderService creates a new OrderService.
func NewOrderService(d OrderServiceDeps) *OrderService {
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	return &OrderService{
		orderRepo:   d.Orders,
		courseRepo:  d.Courses,
		webhookRepo: d.Webhooks,
		gateway:     d.Gateway,
		verifier:    d.Verifier,
		publisher:   d.Publisher,
		currency:    d.Currency,
		keyID:       d.KeyID,
		pendingTTL:  d.PendingTTL,
	}
}

// CreateOrder prices courseIDs from the catalog, stores a pending order
// and opens the matching gateway order. If the gateway call fails the
// local order stays pending without a gateway id until reconciliation
// fails it.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, courseIDs []string) (*Checkout, error) {
	courses, err := priceCourses(ctx, s.courseRepo, courseIDs)
	if err != nil {
		return nil, err
	}
	if err := ensureNotOwned(ctx, s.orderRepo, userID, courses); err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:   userID,
		Currency: s.currency,
		Status:   models.OrderStatusPending,
	}
	for _, c := range courses {
		order.Items = append(order.Items, models.OrderItem{CourseID: c.ID, Price: c.Price})
		order.TotalAmount = order.TotalAmount.Add(c.Price)
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}
	s.publish(ctx, events.OrderCreated, order)

	gwOrder, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		Amount:   order.TotalAmount,
		Currency: order.Currency,
		Receipt:  order.ID,
		Notes:    map[string]string{"user_id": userID},
	})
	if err != nil {
		return nil, apperrors.Internal("gateway order creation failed for order "+order.ID, err)
	}
	if err := s.orderRepo.SetGatewayOrderID(ctx, order.ID, gwOrder.ID); err != nil {
		return nil, err
	}
	order.PaymentGatewayOrderID = &gwOrder.ID

	slog.Info("order created", "order_id", order.ID, "user_id", userID,
		"gateway_order_id", gwOrder.ID, "total", order.TotalAmount.String())

	return &Checkout{
		Order:          order,
		OrderID:        order.ID,
		GatewayOrderID: gwOrder.ID,
		Amount:         payment.MinorUnits(order.TotalAmount),
		Currency:       order.Currency,
		KeyID:          s.keyID,
	}, nil
}

// VerifyPayment checks the client-returned signature and completes the
// order. A bad signature leaves the order untouched so the client can retry.
func (s *OrderService) VerifyPayment(ctx context.Context, userID string, in VerifyInput) (*models.Order, error) {
	order, err := s.GetOrder(ctx, userID, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentGatewayOrderID == nil || *order.PaymentGatewayOrderID != in.GatewayOrderID {
		slog.Warn("verification for mismatched gateway order", "order_id", order.ID, "gateway_order_id", in.GatewayOrderID)
		return nil, apperrors.InvalidSignature(PaymentFailedMessage)
	}
	if !s.verifier.VerifyPayment(in.GatewayOrderID, in.GatewayPaymentID, in.Signature) {
		slog.Warn("payment signature mismatch", "order_id", order.ID, "gateway_payment_id", in.GatewayPaymentID)
		return nil, apperrors.InvalidSignature(PaymentFailedMessage)
	}

	return s.complete(ctx, order, in.GatewayPaymentID)
}

// complete moves a pending order to completed. Repeating the call for
// the same payment returns the completed order.
func (s *OrderService) complete(ctx context.Context, order *models.Order, paymentID string) (*models.Order, error) {
	if order.Status == models.OrderStatusPending {
		changed, err := s.orderRepo.Transition(ctx, order.ID, models.OrderStatusPending, models.OrderStatusCompleted, &paymentID)
		if err != nil {
			return nil, err
		}
		if order, err = s.orderRepo.GetByID(ctx, order.ID); err != nil {
			return nil, err
		}
		if changed {
			slog.Info("order completed", "order_id", order.ID, "gateway_payment_id", paymentID)
			s.publish(ctx, events.OrderCompleted, order)
			return order, nil
		}
	}

	if order.Status == models.OrderStatusCompleted && order.PaymentGatewayPaymentID != nil && *order.PaymentGatewayPaymentID == paymentID {
		return order, nil
	}
	slog.Error("payment for order that cannot complete, manual refund needed",
		"order_id", order.ID, "status", order.Status, "gateway_payment_id", paymentID)
	return nil, apperrors.Conflict(fmt.Sprintf("order %s is %s", order.ID, order.Status))
}

// HandleWebhook authenticates and applies a gateway webhook. Only a bad
// signature is returned as an error; everything else is logged so the
// gateway does not retry non-retryable deliveries.
func (s *OrderService) HandleWebhook(ctx context.Context, body []byte, signature, eventID string) error {
	if !s.verifier.VerifyWebhook(body, signature) {
		slog.Warn("webhook signature mismatch")
		return apperrors.InvalidSignature("invalid webhook signature")
	}

	ev, err := payment.ParseWebhook(body)
	if err != nil {
		slog.Error("unreadable webhook", "error", err)
		return nil
	}
	if eventID == "" {
		eventID = ev.Event + ":" + ev.EntityID()
	}
	log := slog.With("event", ev.Event, "event_id", eventID)

	seen, err := s.webhookRepo.Exists(ctx, eventID)
	if err != nil {
		log.Error("webhook ledger lookup failed", "error", err)
		return nil
	}
	if seen {
		log.Info("webhook already processed")
		return nil
	}

	if err := s.applyWebhook(ctx, ev); err != nil {
		log.Error("webhook processing failed", "error", err)
		return nil
	}

	if err := s.webhookRepo.Record(ctx, &models.WebhookEvent{
		EventID:   eventID,
		EventType: ev.Event,
		Payload:   datatypes.JSON(body),
	}); err != nil {
		log.Error("failed to record webhook", "error", err)
	}
	return nil
}

func (s *OrderService) applyWebhook(ctx context.Context, ev *payment.WebhookEvent) error {
	switch ev.Event {
	case payment.EventPaymentCaptured:
		p := ev.Payload.Payment.Entity
		order, err := s.orderRepo.GetByGatewayOrderID(ctx, p.OrderID)
		if err != nil {
			return ignoreNotFound(err, "captured payment for unknown gateway order", p.OrderID)
		}
		if order.Status == models.OrderStatusCompleted {
			return nil
		}
		_, err = s.complete(ctx, order, p.ID)
		if errors.Is(err, apperrors.ErrConflict) {
			return nil
		}
		return err

	case payment.EventPaymentFailed:
		p := ev.Payload.Payment.Entity
		order, err := s.orderRepo.GetByGatewayOrderID(ctx, p.OrderID)
		if err != nil {
			return ignoreNotFound(err, "failed payment for unknown gateway order", p.OrderID)
		}
		return s.transition(ctx, order, models.OrderStatusPending, models.OrderStatusFailed, events.OrderFailed)

	case payment.EventRefundProcessed:
		r := ev.Payload.Refund.Entity
		order, err := s.orderRepo.GetByGatewayPaymentID(ctx, r.PaymentID)
		if err != nil {
			return ignoreNotFound(err, "refund for unknown payment", r.PaymentID)
		}
		return s.transition(ctx, order, models.OrderStatusCompleted, models.OrderStatusRefunded, events.OrderRefunded)

	default:
		slog.Info("ignoring webhook event", "event", ev.Event)
		return nil
	}
}

// transition applies from -> to and publishes eventType when it took effect.
// An order in any other state is left alone.
func (s *OrderService) transition(ctx context.Context, order *models.Order, from, to models.OrderStatus, eventType string) error {
	changed, err := s.orderRepo.Transition(ctx, order.ID, from, to, nil)
	if err != nil {
		return err
	}
	if !changed {
		slog.Info("order transition skipped", "order_id", order.ID, "from", from, "to", to)
		return nil
	}
	order.Status = to
	slog.Info("order transitioned", "order_id", order.ID, "from", from, "to", to)
	s.publish(ctx, eventType, order)
	return nil
}

func ignoreNotFound(err error, msg, ref string) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		slog.Warn(msg, "ref", ref)
		return nil
	}
	return err
}

// ReconcileStalePending fails orders left pending longer than the pending
// TTL. It returns how many orders it failed.
func (s *OrderService) ReconcileStalePending(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.orderRepo.ListPendingBefore(ctx, now.Add(-s.pendingTTL))
	if err != nil {
		return 0, err
	}
	failed := 0
	for i := range stale {
		order := &stale[i]
		changed, err := s.orderRepo.Transition(ctx, order.ID, models.OrderStatusPending, models.OrderStatusFailed, nil)
		if err != nil {
			return failed, err
		}
		if !changed {
			continue
		}
		failed++
		order.Status = models.OrderStatusFailed
		s.publish(ctx, events.OrderFailed, order)
	}
	if failed > 0 {
		slog.Info("abandoned orders failed", "count", failed, "older_than", s.pendingTTL.String())
	}
	return failed, nil
}

// ListOrders returns the user's orders, optionally filtered by status.
func (s *OrderService) ListOrders(ctx context.Context, userID, status string) ([]models.Order, error) {
	st := models.OrderStatus(status)
	switch st {
	case "", models.OrderStatusPending, models.OrderStatusCompleted, models.OrderStatusFailed, models.OrderStatusRefunded:
	default:
		return nil, apperrors.InvalidRequest("unknown order status %q", status)
	}
	return s.orderRepo.ListByUser(ctx, userID, st)
}

// GetOrder returns one of the user's orders. Other users' orders look missing.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperrors.NotFound("order %s not found", orderID)
	}
	return order, nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *models.Order) {
	if err := s.publisher.PublishOrderEvent(ctx, events.NewOrderEvent(eventType, order)); err != nil {
		slog.Error("failed to publish order event", "event", eventType, "order_id", order.ID, "error", err)
	}
}
