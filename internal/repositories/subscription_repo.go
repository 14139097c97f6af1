package repositories

import (
	"context"
	"time"

	"academy/internal/models"
)

// SubscriptionRepository defines the interface for subscription data access.
type SubscriptionRepository interface {
	GetByUser(ctx context.Context, userID string) (*models.Subscription, error)
	// Save stores sub as the user's only subscription, replacing any other.
	Save(ctx context.Context, sub *models.Subscription) error
	// SetStatus changes status only when the row is currently in from.
	SetStatus(ctx context.Context, id string, from, to models.SubscriptionStatus) (bool, error)
	SetCancelAtPeriodEnd(ctx context.Context, id string) (bool, error)
	// ExpireDue closes active subscriptions whose period ended before now.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}
