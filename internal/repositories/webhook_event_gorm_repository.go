package repositories

import (
	"context"
	"fmt"
	"time"

	"academy/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GORMWebhookEventRepository struct {
	db *gorm.DB
}

func NewGORMWebhookEventRepository(db *gorm.DB) *GORMWebhookEventRepository {
	return &GORMWebhookEventRepository{db: db}
}

func (r *GORMWebhookEventRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up webhook event %s: %w", eventID, err)
	}
	return count > 0, nil
}

func (r *GORMWebhookEventRepository) Record(ctx context.Context, event *models.WebhookEvent) error {
	if event.ProcessedAt.IsZero() {
		event.ProcessedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error; err != nil {
		return fmt.Errorf("failed to record webhook event %s: %w", event.EventID, err)
	}
	return nil
}
