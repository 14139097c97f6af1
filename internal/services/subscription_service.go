package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"academy/internal/apperrors"
	"academy/internal/models"
	"academy/internal/payment"
	"academy/internal/repositories"

	"github.com/shopspring/decimal"
)

// Plan is a subscription tier.
type Plan struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// GatewayPlanID is the gateway-side plan this tier bills against.
func (p Plan) GatewayPlanID() string { return "plan_" + p.Name }

var plans = map[string]Plan{
	"basic":      {Name: "basic", Price: decimal.NewFromInt(999)},
	"premium":    {Name: "premium", Price: decimal.NewFromInt(1999)},
	"enterprise": {Name: "enterprise", Price: decimal.NewFromInt(4999)},
}

const (
	billingPeriod = 30 * 24 * time.Hour
	billingCycles = 12
)

// Plans lists the tiers by price.
func Plans() []Plan {
	out := make([]Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out
}

// SubscriptionService manages recurring plans.
type SubscriptionService struct {
	subRepo repositories.SubscriptionRepository
	gateway payment.Gateway
}

func NewSubscriptionService(subRepo repositories.SubscriptionRepository, gateway payment.Gateway) *SubscriptionService {
	return &SubscriptionService{subRepo: subRepo, gateway: gateway}
}

func (s *SubscriptionService) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	return s.subRepo.GetByUser(ctx, userID)
}

// Subscribe starts plan for the user. A user with an active subscription
// gets Conflict.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID, planName string) (*models.Subscription, error) {
	plan, ok := plans[planName]
	if !ok {
		return nil, apperrors.Validation(map[string]string{"plan": "must be one of basic, premium, enterprise"})
	}

	current, err := s.subRepo.GetByUser(ctx, userID)
	switch {
	case err == nil && current.Status == models.SubscriptionActive:
		return nil, apperrors.Conflict("already have an active subscription")
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}

	gwSub, err := s.gateway.CreateSubscription(ctx, payment.SubscriptionRequest{
		PlanID:         plan.GatewayPlanID(),
		TotalCount:     billingCycles,
		CustomerNotify: true,
		Notes:          map[string]string{"user_id": userID},
	})
	if err != nil {
		return nil, apperrors.Internal("gateway subscription creation failed", err)
	}

	now := time.Now()
	sub := &models.Subscription{
		UserID:                userID,
		Plan:                  plan.Name,
		Status:                models.SubscriptionActive,
		GatewaySubscriptionID: gwSub.ID,
		CurrentPeriodStart:    now,
		CurrentPeriodEnd:      now.Add(billingPeriod),
	}
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}
	slog.Info("subscription started", "user_id", userID, "plan", plan.Name, "gateway_subscription_id", gwSub.ID)
	return sub, nil
}

// Cancel ends the subscription now when immediate, otherwise at the end
// of the current period.
func (s *SubscriptionService) Cancel(ctx context.Context, userID string, immediate bool) (*models.Subscription, error) {
	sub, err := s.subRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubscriptionActive {
		return nil, apperrors.NotFound("no active subscription")
	}

	var changed bool
	if immediate {
		changed, err = s.subRepo.SetStatus(ctx, sub.ID, models.SubscriptionActive, models.SubscriptionCancelled)
	} else {
		changed, err = s.subRepo.SetCancelAtPeriodEnd(ctx, sub.ID)
	}
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperrors.Conflict("subscription changed concurrently, retry")
	}
	return s.subRepo.GetByUser(ctx, userID)
}

// ExpireDue closes subscriptions whose period has ended.
func (s *SubscriptionService) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.subRepo.ExpireDue(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("subscriptions closed at period end", "count", n)
	}
	return n, nil
}
