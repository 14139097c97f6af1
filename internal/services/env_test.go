package services_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"academy/internal/database"
	"academy/internal/models"
	"academy/internal/payment"
	"academy/internal/repositories"
	"academy/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	keySecret     = "key_secret"
	webhookSecret = "webhook_secret"
)

// env runs services against in-memory SQLite with a mocked gateway.
type env struct {
	courses  *repositories.GORMCourseRepository
	orders   *repositories.GORMOrderRepository
	progress *repositories.GORMProgressRepository

	gateway   *MockGateway
	publisher *recordingPublisher

	orderSvc    *services.OrderService
	access      *services.AccessService
	cart        *services.CartService
	progressSvc *services.ProgressService

	user *models.User
}

var gatewaySeq int64

func newEnv(t *testing.T) *env {
	db := database.OpenTest(t)
	e := &env{
		courses:   repositories.NewGORMCourseRepository(db),
		orders:    repositories.NewGORMOrderRepository(db),
		progress:  repositories.NewGORMProgressRepository(db),
		gateway:   new(MockGateway),
		publisher: &recordingPublisher{},
	}
	users := repositories.NewGORMUserRepository(db)

	e.orderSvc = services.NewOrderService(services.OrderServiceDeps{
		Orders:     e.orders,
		Courses:    e.courses,
		Webhooks:   repositories.NewGORMWebhookEventRepository(db),
		Gateway:    e.gateway,
		Verifier:   payment.NewVerifier(keySecret, webhookSecret),
		Publisher:  e.publisher,
		Currency:   "INR",
		PendingTTL: 24 * time.Hour,
	})
	e.access = services.NewAccessService(e.courses, e.orders)
	e.cart = services.NewCartService(e.courses, e.orders)
	e.progressSvc = services.NewProgressService(e.access, e.progress)

	e.user = &models.User{Name: "Learner", Email: "learner@example.com", Password: "x"}
	require.NoError(t, users.Create(context.Background(), e.user))
	return e
}

// gatewayOrders makes the gateway mock hand out unique order ids.
func (e *env) gatewayOrders() {
	e.gateway.On("CreateOrder", mock.Anything, mock.Anything).Return(func(req payment.OrderRequest) *payment.Order {
		n := atomic.AddInt64(&gatewaySeq, 1)
		return &payment.Order{
			ID:       fmt.Sprintf("order_gw_%d", n),
			Amount:   payment.MinorUnits(req.Amount),
			Currency: req.Currency,
			Receipt:  req.Receipt,
		}
	}, nil)
}

func (e *env) seedCourse(t *testing.T, slug, price string) *models.Course {
	c := &models.Course{
		Slug:        slug,
		Title:       "Course " + slug,
		Price:       decimal.RequireFromString(price),
		IsPublished: true,
		Modules: []models.CourseModule{
			{Title: "Preview", Order: 1, IsPreview: true, Content: "# Preview"},
			{Title: "Paid", Order: 2, Content: "# Paid"},
		},
	}
	require.NoError(t, e.courses.Create(context.Background(), c))
	return c
}

func (e *env) checkout(t *testing.T, courses ...*models.Course) *services.Checkout {
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	co, err := e.orderSvc.CreateOrder(context.Background(), e.user.ID, ids)
	require.NoError(t, err)
	return co
}

func (e *env) pay(t *testing.T, co *services.Checkout, paymentID string) *models.Order {
	order, err := e.orderSvc.VerifyPayment(context.Background(), e.user.ID, services.VerifyInput{
		OrderID:          co.OrderID,
		GatewayOrderID:   co.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        payment.PaymentSignature(keySecret, co.GatewayOrderID, paymentID),
	})
	require.NoError(t, err)
	return order
}

func (e *env) status(t *testing.T, orderID string) models.OrderStatus {
	o, err := e.orders.GetByID(context.Background(), orderID)
	require.NoError(t, err)
	return o.Status
}

func signedWebhook(event, entity string) ([]byte, string) {
	body := []byte(fmt.Sprintf(`{"event":%q,"payload":%s,"created_at":1700000000}`, event, entity))
	return body, payment.Sign([]byte(webhookSecret), body)
}

func paymentEntity(gatewayOrderID, paymentID string) string {
	return fmt.Sprintf(`{"payment":{"entity":{"id":%q,"order_id":%q,"amount":100,"status":"captured"}}}`, paymentID, gatewayOrderID)
}
