package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"academy/internal/apperrors"
	"academy/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
		order.Items[i].OrderID = order.ID
	}
	// gorm inserts the order and its items in one transaction.
	if err := r.db.WithContext(ctx).Omit("Items.Course").Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *GORMOrderRepository) first(ctx context.Context, query string, arg string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Course").
		First(&order, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GORMOrderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	return r.first(ctx, "payment_gateway_order_id = ?", gatewayOrderID)
}

func (r *GORMOrderRepository) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.Order, error) {
	return r.first(ctx, "payment_gateway_payment_id = ?", gatewayPaymentID)
}

func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID string, status models.OrderStatus) ([]models.Order, error) {
	var orders []models.Order
	q := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Course").
		Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders for user %s: %w", userID, err)
	}
	return orders, nil
}

func (r *GORMOrderRepository) SetGatewayOrderID(ctx context.Context, id, gatewayOrderID string) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ? AND payment_gateway_order_id IS NULL", id, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"payment_gateway_order_id": gatewayOrderID,
			"updated_at":               time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to link gateway order for order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Conflict(fmt.Sprintf("order %s is no longer awaiting a gateway order", id))
	}
	return nil
}

func (r *GORMOrderRepository) Transition(ctx context.Context, id string, from, to models.OrderStatus, paymentID *string) (bool, error) {
	if !models.CanTransition(from, to) {
		return false, fmt.Errorf("illegal order transition %s -> %s", from, to)
	}
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if paymentID != nil {
		updates["payment_gateway_payment_id"] = *paymentID
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to transition order %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GORMOrderRepository) HasCompletedPurchase(ctx context.Context, userID, courseID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.course_id = ?",
			userID, models.OrderStatusCompleted, courseID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check purchase of course %s: %w", courseID, err)
	}
	return count > 0, nil
}

func (r *GORMOrderRepository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.OrderStatusPending, cutoff).
		Order("created_at asc").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale pending orders: %w", err)
	}
	return orders, nil
}
