package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"academy/internal/apperrors"
	"academy/internal/database"
	"academy/internal/models"
	"academy/internal/payment"
	"academy/internal/repositories"
	"academy/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newSubscriptionService(t *testing.T) (*services.SubscriptionService, *MockGateway, *repositories.GORMSubscriptionRepository) {
	repo := repositories.NewGORMSubscriptionRepository(database.OpenTest(t))
	gw := new(MockGateway)
	return services.NewSubscriptionService(repo, gw), gw, repo
}

func TestSubscribe(t *testing.T) {
	svc, gw, _ := newSubscriptionService(t)
	ctx := context.Background()
	gw.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(r payment.SubscriptionRequest) bool {
		return r.PlanID == "plan_premium" && r.TotalCount == 12
	})).Return(&payment.Subscription{ID: "sub_1"}, nil).Once()

	sub, err := svc.Subscribe(ctx, "u1", "premium")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, "sub_1", sub.GatewaySubscriptionID)
	assert.WithinDuration(t, sub.CurrentPeriodStart.Add(30*24*time.Hour), sub.CurrentPeriodEnd, time.Second)

	_, err = svc.Subscribe(ctx, "u1", "basic")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = svc.Subscribe(ctx, "u2", "platinum")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	gw.AssertExpectations(t)
}

func TestSubscribeGatewayFailure(t *testing.T) {
	svc, gw, _ := newSubscriptionService(t)
	gw.On("CreateSubscription", mock.Anything, mock.Anything).Return(nil, errors.New("503"))

	_, err := svc.Subscribe(context.Background(), "u1", "basic")
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
	_, err = svc.GetSubscription(context.Background(), "u1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCancelSubscription(t *testing.T) {
	svc, gw, _ := newSubscriptionService(t)
	ctx := context.Background()
	gw.On("CreateSubscription", mock.Anything, mock.Anything).Return(&payment.Subscription{ID: "sub_x"}, nil)

	_, err := svc.Cancel(ctx, "u1", false)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.Subscribe(ctx, "u1", "basic")
	require.NoError(t, err)
	sub, err := svc.Cancel(ctx, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.True(t, sub.CancelAtPeriodEnd)

	sub, err = svc.Cancel(ctx, "u1", true)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, sub.Status)

	// A cancelled user can subscribe again.
	sub, err = svc.Subscribe(ctx, "u1", "enterprise")
	require.NoError(t, err)
	assert.Equal(t, "enterprise", sub.Plan)
	assert.False(t, sub.CancelAtPeriodEnd)
}

func TestExpireDueSubscriptions(t *testing.T) {
	svc, _, repo := newSubscriptionService(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)
	require.NoError(t, repo.Save(ctx, &models.Subscription{UserID: "a", Plan: "basic", Status: models.SubscriptionActive, CurrentPeriodEnd: past}))
	require.NoError(t, repo.Save(ctx, &models.Subscription{UserID: "b", Plan: "basic", Status: models.SubscriptionActive, CurrentPeriodEnd: past, CancelAtPeriodEnd: true}))
	require.NoError(t, repo.Save(ctx, &models.Subscription{UserID: "c", Plan: "basic", Status: models.SubscriptionActive, CurrentPeriodEnd: time.Now().Add(time.Hour)}))

	n, err := svc.ExpireDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for user, want := range map[string]models.SubscriptionStatus{
		"a": models.SubscriptionExpired,
		"b": models.SubscriptionCancelled,
		"c": models.SubscriptionActive,
	} {
		sub, err := repo.GetByUser(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, want, sub.Status, user)
	}
}

func TestPlans(t *testing.T) {
	plans := services.Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, "basic", plans[0].Name)
	assert.Equal(t, "plan_enterprise", plans[2].GatewayPlanID())
}
