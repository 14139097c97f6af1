package models

import "time"

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription is a user's recurring plan. A user has at most one.
type Subscription struct {
	ID                    string             `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID                string             `json:"user_id" gorm:"type:varchar(36);uniqueIndex;not null"`
	Plan                  string             `json:"plan" gorm:"type:varchar(30);not null"`
	Status                SubscriptionStatus `json:"status" gorm:"type:varchar(20);index;not null"`
	GatewaySubscriptionID string             `json:"gateway_subscription_id" gorm:"type:varchar(64)"`
	CurrentPeriodStart    time.Time          `json:"current_period_start"`
	CurrentPeriodEnd      time.Time          `json:"current_period_end" gorm:"index"`
	CancelAtPeriodEnd     bool               `json:"cancel_at_period_end" gorm:"default:false"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}
