package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// CanTransition reports whether from -> to is a legal order transition.
// pending -> completed | failed, completed -> refunded; nothing else.
func CanTransition(from, to OrderStatus) bool {
	switch from {
	case OrderStatusPending:
		return to == OrderStatusCompleted || to == OrderStatusFailed
	case OrderStatusCompleted:
		return to == OrderStatusRefunded
	default:
		return false
	}
}

// OrderItem is a price snapshot of one course at purchase time.
type OrderItem struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string          `json:"order_id" gorm:"type:varchar(36);index;not null"`
	CourseID  string          `json:"course_id" gorm:"type:varchar(36);index;not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"` // Price at the time of order
	Course    *Course         `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	CreatedAt time.Time       `json:"created_at"`
}

// Order represents a checkout. TotalAmount is computed server-side at
// creation and never changes.
type Order struct {
	ID                      string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID                  string          `json:"user_id" gorm:"type:varchar(36);index;not null"`
	Items                   []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TotalAmount             decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	Currency                string          `json:"currency" gorm:"type:varchar(8);not null"`
	Status                  OrderStatus     `json:"status" gorm:"type:varchar(20);index;not null"`
	PaymentGatewayOrderID   *string         `json:"payment_gateway_order_id" gorm:"type:varchar(64);uniqueIndex"`
	PaymentGatewayPaymentID *string         `json:"payment_gateway_payment_id" gorm:"type:varchar(64);index"`
	CreatedAt               time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// CourseIDs lists the course of every item in the order.
func (o *Order) CourseIDs() []string {
	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.CourseID)
	}
	return ids
}
