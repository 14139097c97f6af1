package repositories

import (
	"context"

	"academy/internal/models"
)

// WebhookEventRepository records processed gateway webhook deliveries.
type WebhookEventRepository interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	// Record stores the event; a duplicate id is silently kept as-is.
	Record(ctx context.Context, event *models.WebhookEvent) error
}
