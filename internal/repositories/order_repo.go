package repositories

import (
	"context"
	"time"

	"academy/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Create stores the order together with its items.
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string, status models.OrderStatus) ([]models.Order, error)
	// SetGatewayOrderID links a pending order to its gateway order.
	SetGatewayOrderID(ctx context.Context, id, gatewayOrderID string) error
	// Transition moves the order from -> to only if it is currently in from.
	// It reports whether a row changed. paymentID, when non-nil, is stored
	// in the same statement.
	Transition(ctx context.Context, id string, from, to models.OrderStatus, paymentID *string) (bool, error)
	HasCompletedPurchase(ctx context.Context, userID, courseID string) (bool, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}
