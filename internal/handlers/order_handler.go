package handlers

import (
	"academy/internal/middleware"
	"academy/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles checkout, payment verification, the gateway
// webhook and order history.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the payment and order routes. The webhook is
// authenticated by its signature, not by a session.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	payments := router.Group("/payments")
	payments.Post("/create", auth, h.HandleCreateOrder)
	payments.Post("/verify", auth, h.HandleVerifyPayment)
	payments.Post("/webhook", h.HandleWebhook)

	orders := router.Group("/orders")
	orders.Get("/", auth, h.HandleGetOrders)
	orders.Get("/:id", auth, h.HandleGetOrderByID)
}

// CreateOrderRequest lists the courses to buy. Anything else the client
// sends, prices included, is ignored.
type CreateOrderRequest struct {
	CourseIDs []string `json:"courseIds" validate:"required,min=1,dive,required"`
}

// HandleCreateOrder creates a pending order and its gateway order.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	checkout, err := h.service.CreateOrder(c.UserContext(), middleware.UserID(c), req.CourseIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(checkout)
}

// VerifyPaymentRequest is what the checkout widget hands back to the client.
type VerifyPaymentRequest struct {
	OrderID          string `json:"orderId" validate:"required"`
	GatewayOrderID   string `json:"gatewayOrderId" validate:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

// HandleVerifyPayment checks the checkout signature and completes the order.
func (h *OrderHandler) HandleVerifyPayment(c *fiber.Ctx) error {
	var req VerifyPaymentRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	order, err := h.service.VerifyPayment(c.UserContext(), middleware.UserID(c), services.VerifyInput{
		OrderID:          req.OrderID,
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"order":   order,
		"message": "Payment verified successfully",
	})
}

// HandleWebhook acknowledges every correctly signed delivery so the
// gateway does not retry events we chose to ignore.
func (h *OrderHandler) HandleWebhook(c *fiber.Ctx) error {
	// c.Body() is only valid for the lifetime of the handler.
	body := append([]byte(nil), c.Body()...)
	signature := c.Get("X-Razorpay-Signature")
	eventID := c.Get("X-Razorpay-Event-Id")

	if err := h.service.HandleWebhook(c.UserContext(), body, signature, eventID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// HandleGetOrders lists the caller's orders, optionally filtered by ?status=.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext(), middleware.UserID(c), c.Query("status"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order owned by the caller.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}
