package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"academy/internal/apperrors"
	"academy/internal/events"
	"academy/internal/models"
	"academy/internal/payment"
	"academy/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderPricesFromCatalog(t *testing.T) {
	e := newEnv(t)
	e.gatewayOrders()
	c1 := e.seedCourse(t, "go", "50")
	c2 := e.seedCourse(t, "rust", "75")

	co := e.checkout(t, c1, c2, c1)
	assert.Equal(t, int64(12500), co.Amount)
	assert.Equal(t, "INR", co.Currency)
	assert.NotEmpty(t, co.GatewayOrderID)

	order, err := e.orders.GetByID(context.Background(), co.OrderID)
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(125)))
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Len(t, order.Items, 2, "duplicate ids collapse")
	require.NotNil(t, order.PaymentGatewayOrderID)
	assert.Equal(t, co.GatewayOrderID, *order.PaymentGatewayOrderID)
	assert.Equal(t, 1, e.publisher.count(events.OrderCreated, order.ID))

	e.gateway.AssertCalled(t, "CreateOrder", mock.Anything, mock.MatchedBy(func(req payment.OrderRequest) bool {
		return req.Receipt == order.ID && req.Amount.Equal(decimal.NewFromInt(125))
	}))
}

func TestCreateOrderRejectsBadCarts(t *testing.T) {
	e := newEnv(t)
	e.gatewayOrders()
	ctx := context.Background()
	c := e.seedCourse(t, "go", "50")
	draft := &models.Course{Slug: "draft", Title: "Draft", Price: decimal.NewFromInt(10)}
	require.NoError(t, e.courses.Create(ctx, draft))
	free := e.seedCourse(t, "free", "0")

	cases := map[string][]string{
		"empty":       {},
		"blank ids":   {""},
		"unknown":     {c.ID, "no-such-course"},
		"unpublished": {draft.ID},
		"zero price":  {c.ID, free.ID},
	}
	for name, ids := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.orderSvc.CreateOrder(ctx, e.user.ID, ids)
			assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
		})
	}
	e.gateway.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)

	orders, err := e.orderSvc.ListOrders(ctx, e.user.ID, "")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrderGatewayFailureLeavesPending(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.seedCourse(t, "go", "50")
	e.gateway.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, errors.New("gateway timeout"))

	_, err := e.orderSvc.CreateOrder(ctx, e.user.ID, []string{c.ID})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))

	orders, err := e.orders.ListByUser(ctx, e.user.ID, "")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderStatusPending, orders[0].Status)
	assert.Nil(t, orders[0].PaymentGatewayOrderID)

	has, err := e.access.HasAccess(ctx, e.user.ID, c.Modules[1].ID)
	require.NoError(t, err)
	assert.False(t, has)

	// Reconciliation abandons it once it is older than the TTL.
	n, err := e.orderSvc.ReconcileStalePending(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	n, err = e.orderSvc.ReconcileStalePending(ctx, time.Now().Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.OrderStatusFailed, e.status(t, orders[0].ID))
	assert.Equal(t, 1, e.publisher.count(events.OrderFailed, orders[0].ID))
}

// Two courses at 50 and 75, correct signature, both unlocked.
func TestPurchaseGrantsAccessToEveryCourse(t *testing.T) {
	e := newEnv(t)
	e.gatewayOrders()
	ctx := context.Background()
	c1 := e.seedCourse(t, "go", "50")
	c2 := e.seedCourse(t, "rust", "75")

	co := e.checkout(t, c1, c2)
	order := e.pay(t, co, "pay_A")
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(125)))
	require.NotNil(t, order.PaymentGatewayPaymentID)
	assert.Equal(t, "pay_A", *order.PaymentGatewayPaymentID)

	for _, c := range []*models.Course{c1, c2} {
		has, err := e.access.HasAccess(ctx, e.user.ID, c.Modules[1].ID)
		require.NoError(t, err)
		assert.True(t, has, c.Slug)
	}
	assert.Equal(t, 1, e.publisher.count(events.OrderCompleted, co.OrderID))

	// Verifying again is an idempotent success.
	again := e.pay(t, co, "pay_A")
	assert.Equal(t, models.OrderStatusCompleted, again.Status)
	assert.Equal(t, 1, e.publisher.count(events.OrderCompleted, co.OrderID))
}

func TestVerifyWithWrongSecretKeepsPending(t *testing.T) {
	e := newEnv(t)
	e.gatewayOrders()
	ctx := context.Background()
	co := e.checkout(t, e.seedCourse(t, "go", "50"))

	_, err := e.orderSvc.VerifyPayment(ctx, e.user.ID, services.VerifyInput{
		OrderID:          co.OrderID,
		GatewayOrderID:   co.GatewayOrderID,
		GatewayPaymentID: "pay_B",
		Signature:        payment.PaymentSignature("wrong_secret", co.GatewayOrderID, "pay_B"),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)
	assert.Equal(t, services.PaymentFailedMessage, err.Error())
	assert.Equal(t, models.OrderStatusPending, e.status(t, co.OrderID))

	// A signature for another gateway order is rejected too.
	_, err = e.orderSvc.VerifyPayment(ctx, e.user.ID, services.VerifyInput{
		OrderID:          co.OrderID,
		GatewayOrderID:   "order_other",
		GatewayPaymentID: "pay_B",
		Signature:        payment.PaymentSignature(keySecret, "order_other", "pay_B"),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)
	assert.Equal(t, models.OrderStatusPending, e.status(t, co.OrderID))

	// The client may retry with the right payload.
	order := e.pay(t, co, "pay_B")
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
}

func TestVerifyOtherUsersOrder(t *testing.T) {
	e := newEnv(t)
	e.gatewayOrders()
	co := e.checkout(t, e.seedCourse(t, "go", "50"))

	_, err := e.orderSvc.VerifyPayment(context.Background(), "someone-else", services.VerifyInput{
		OrderID:          co.OrderID,
		GatewayOrderID:   co.GatewayOrderID,
		GatewayPaymentID: "pay_X",
		Signature:        payment.PaymentSignature(keySecret, co.GatewayOrderID, "pay_X"),
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, models.OrderStatusPending, e.status(t, co.OrderID))
}

func TestWebhookAfterClientCallback(t *testing.T) {
	e := newEnv(t)
	e.gatewayOrders()
	ctx := context.Background()
	co := e.checkout(t, e.seedCourse(t, "go", "50"))
	e.pay(t, co, "pay_C")

	body, sig := signedWebhook(payment.EventPaymentCaptured, paymentEntity(co.GatewayOrderID, "pay_C"))
	require.NoError(t, e.orderSvc.HandleWebhook(ctx, body, sig, "evt_C"))

	assert.Equal(t, models.OrderStatusCompleted, e.status(t, co.OrderID))
	assert.Equal(t, 1, e.publisher.count(events.OrderCompleted, co.OrderID))
}

func TestCapturedWebhookIsIdempotent(t *testing.T) {
	e := newEnv(t)
	e.gatewayOrders()
	ctx := context.Background()
	co := e.checkout(t, e.seedCourse(t, "go", "50"))
	body, sig := signedWebhook(payment.EventPaymentCaptured, paymentEntity(co.GatewayOrderID, "pay_D"))

	for i := 0; i < 3; i++ {
		assert.NoError(t, e.orderSvc.HandleWebhook(ctx, body, sig, "evt_D"))
	}
	// Without an event id header the ledger key is derived from the body.
	for i := 0; i < 2; i++ {
		assert.NoError(t, e.orderSvc.HandleWebhook(ctx, body, sig, ""))
	}

	order, err := e.orders.GetByID(ctx, co.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.Equal(t, "pay_D", *order.PaymentGatewayPaymentID)
	assert.Equal(t, 1, e.publisher.count(events.OrderCompleted, co.OrderID))
}

func TestWebhookAndCallbackRace(t *testing.T) {
	e := newEnv(t)
	e.gatewayOrders()
	ctx := context.Background()
	co := e.checkout(t, e.seedCourse(t, "go", "50"))
	body, sig := signedWebhook(payment.EventPaymentCaptured, paymentEntity(co.GatewayOrderID, "pay_R"))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, e.orderSvc.HandleWebhook(ctx, body, sig, fmt.Sprintf("evt_R_%d", i)))
		}(i)
		go func() {
			defer wg.Done()
			_, err := e.orderSvc.VerifyPayment(ctx, e.user.ID, services.VerifyInput{
				OrderID:          co.OrderID,
				GatewayOrderID:   co.GatewayOrderID,
				GatewayPaymentID: "pay_R",
				Signature:        payment.PaymentSignature(keySecret, co.GatewayOrderID, "pay_R"),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, models.OrderStatusCompleted, e.status(t, co.OrderID))
	assert.Equal(t, 1, e.publisher.count(events.OrderCompleted, co.OrderID))
}

func TestFailedWebhook(t *testing.T) {
	e := newEnv(t)
	e.gatewayOrders()
	ctx := context.Background()
	c := e.seedCourse(t, "go", "50")

	pending := e.checkout(t, c)
	body, sig := signedWebhook(payment.EventPaymentFailed, paymentEntity(pending.GatewayOrderID, "pay_F1"))
	require.NoError(t, e.orderSvc.HandleWebhook(ctx, body, sig, "evt_F1"))
	assert.Equal(t, models.OrderStatusFailed, e.status(t, pending.OrderID))

	// A late failure never overrides a completed order.
	done := e.checkout(t, c)
	e.pay(t, done, "pay_F2")
	body, sig = signedWebhook(payment.EventPaymentFailed, paymentEntity(done.GatewayOrderID, "pay_F2"))
	require.NoError(t, e.orderSvc.HandleWebhook(ctx, body, sig, "evt_F2"))
	assert.Equal(t, models.OrderStatusCompleted, e.status(t, done.OrderID))
}

func TestRefundWebhookRevokesAccess(t *testing.T) {
	e := newEnv(t)
	e.gatewayOrders()
	ctx := context.Background()
	c := e.seedCourse(t, "go", "50")
	co := e.checkout(t, c)
	e.pay(t, co, "pay_refund")

	body, sig := signedWebhook(payment.EventRefundProcessed, `{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_refund","amount":5000}}}`)
	require.NoError(t, e.orderSvc.HandleWebhook(ctx, body, sig, ""))

	assert.Equal(t, models.OrderStatusRefunded, e.status(t, co.OrderID))
	assert.Equal(t, 1, e.publisher.count(events.OrderRefunded, co.OrderID))
	has, err := e.access.HasAccess(ctx, e.user.ID, c.Modules[1].ID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestWebhookRejectsBadSignatureOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	body, _ := signedWebhook(payment.EventPaymentCaptured, paymentEntity("order_x", "pay_x"))
	err := e.orderSvc.HandleWebhook(ctx, body, payment.Sign([]byte(keySecret), body), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)
	assert.ErrorIs(t, e.orderSvc.HandleWebhook(ctx, body, "", ""), apperrors.ErrInvalidSignature)

	// Unknown gateway order, unknown event type and garbage are all acknowledged.
	_, sig := signedWebhook(payment.EventPaymentCaptured, paymentEntity("order_x", "pay_x"))
	assert.NoError(t, e.orderSvc.HandleWebhook(ctx, body, sig, ""))
	unknown, usig := signedWebhook("subscription.charged", `{}`)
	assert.NoError(t, e.orderSvc.HandleWebhook(ctx, unknown, usig, ""))
	garbage := []byte("not json")
	assert.NoError(t, e.orderSvc.HandleWebhook(ctx, garbage, payment.Sign([]byte(webhookSecret), garbage), ""))
}

func TestCapturedAfterReconcileStaysFailed(t *testing.T) {
	e := newEnv(t)
	e.gatewayOrders()
	ctx := context.Background()
	co := e.checkout(t, e.seedCourse(t, "go", "50"))

	n, err := e.orderSvc.ReconcileStalePending(ctx, time.Now().Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	body, sig := signedWebhook(payment.EventPaymentCaptured, paymentEntity(co.GatewayOrderID, "pay_late"))
	require.NoError(t, e.orderSvc.HandleWebhook(ctx, body, sig, ""))
	assert.Equal(t, models.OrderStatusFailed, e.status(t, co.OrderID))

	_, err = e.orderSvc.VerifyPayment(ctx, e.user.ID, services.VerifyInput{
		OrderID:          co.OrderID,
		GatewayOrderID:   co.GatewayOrderID,
		GatewayPaymentID: "pay_late",
		Signature:        payment.PaymentSignature(keySecret, co.GatewayOrderID, "pay_late"),
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestAlreadyOwnedCourse(t *testing.T) {
	e := newEnv(t)
	e.gatewayOrders()
	ctx := context.Background()
	c := e.seedCourse(t, "go", "50")
	e.pay(t, e.checkout(t, c), "pay_own")

	_, err := e.orderSvc.CreateOrder(ctx, e.user.ID, []string{c.ID})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	_, err = e.cart.AddItem(ctx, e.user.ID, c.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestListAndGetOrders(t *testing.T) {
	e := newEnv(t)
	e.gatewayOrders()
	ctx := context.Background()
	c := e.seedCourse(t, "go", "50")
	first := e.checkout(t, c)
	e.pay(t, first, "pay_L")
	e.checkout(t, e.seedCourse(t, "rust", "75"))

	all, err := e.orderSvc.ListOrders(ctx, e.user.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	done, err := e.orderSvc.ListOrders(ctx, e.user.ID, "completed")
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, first.OrderID, done[0].ID)

	_, err = e.orderSvc.ListOrders(ctx, e.user.ID, "shipped")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	_, err = e.orderSvc.GetOrder(ctx, "intruder", first.OrderID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
