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

// GORMSubscriptionRepository is a GORM implementation of SubscriptionRepository.
type GORMSubscriptionRepository struct {
	db *gorm.DB
}

func NewGORMSubscriptionRepository(db *gorm.DB) *GORMSubscriptionRepository {
	return &GORMSubscriptionRepository{db: db}
}

func (r *GORMSubscriptionRepository) GetByUser(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).First(&sub, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("no subscription for user %s", userID)
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

func (r *GORMSubscriptionRepository) Save(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND id <> ?", sub.UserID, sub.ID).
			Delete(&models.Subscription{}).Error; err != nil {
			return err
		}
		return tx.Save(sub).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

func (r *GORMSubscriptionRepository) SetStatus(ctx context.Context, id string, from, to models.SubscriptionStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return false, fmt.Errorf("failed to update subscription %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GORMSubscriptionRepository) SetCancelAtPeriodEnd(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, models.SubscriptionActive).
		Updates(map[string]interface{}{"cancel_at_period_end": true, "updated_at": time.Now()})
	if res.Error != nil {
		return false, fmt.Errorf("failed to schedule cancellation of subscription %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GORMSubscriptionRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, step := range []struct {
			cancelAtEnd bool
			to          models.SubscriptionStatus
		}{
			{true, models.SubscriptionCancelled},
			{false, models.SubscriptionExpired},
		} {
			res := tx.Model(&models.Subscription{}).
				Where("status = ? AND current_period_end < ? AND cancel_at_period_end = ?",
					models.SubscriptionActive, now, step.cancelAtEnd).
				Updates(map[string]interface{}{"status": step.to, "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
			total += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	return total, nil
}
