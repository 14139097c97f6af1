package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent records a processed gateway webhook delivery.
type WebhookEvent struct {
	EventID     string         `json:"event_id" gorm:"primaryKey;type:varchar(128)"`
	EventType   string         `json:"event_type" gorm:"type:varchar(64);index"`
	Payload     datatypes.JSON `json:"payload"`
	ProcessedAt time.Time      `json:"processed_at"`
	CreatedAt   time.Time      `json:"created_at"`
}

// All lists every model for migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&CourseModule{},
		&Order{},
		&OrderItem{},
		&UserProgress{},
		&Subscription{},
		&WebhookEvent{},
	}
}
