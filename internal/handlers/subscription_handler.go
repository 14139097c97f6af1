package handlers

import (
	"academy/internal/middleware"
	"academy/internal/models"
	"academy/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type SubscriptionHandler struct {
	service  *services.SubscriptionService
	validate *validator.Validate
}

func NewSubscriptionHandler(service *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, validate: validator.New()}
}

func (h *SubscriptionHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	subs := router.Group("/subscriptions")
	subs.Get("/plans", h.HandleListPlans)
	subs.Get("/", auth, h.HandleGetSubscription)
	subs.Post("/", auth, h.HandleSubscribe)
	subs.Post("/cancel", auth, h.HandleCancel)
}

func (h *SubscriptionHandler) HandleListPlans(c *fiber.Ctx) error {
	return c.JSON(services.Plans())
}

func (h *SubscriptionHandler) HandleGetSubscription(c *fiber.Ctx) error {
	sub, err := h.service.GetSubscription(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sub)
}

type SubscribeRequest struct {
	Plan string `json:"plan" validate:"required"`
}

func (h *SubscriptionHandler) HandleSubscribe(c *fiber.Ctx) error {
	var req SubscribeRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}
	sub, err := h.service.Subscribe(c.UserContext(), middleware.UserID(c), req.Plan)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"subscription":          sub,
		"gatewaySubscriptionId": sub.GatewaySubscriptionID,
	})
}

type CancelRequest struct {
	Immediate bool `json:"immediate"`
}

func (h *SubscriptionHandler) HandleCancel(c *fiber.Ctx) error {
	var req CancelRequest
	// An empty body means cancel at period end.
	if len(c.Body()) > 0 {
		if err := parseBody(c, h.validate, &req); err != nil {
			return respondError(c, err)
		}
	}
	sub, err := h.service.Cancel(c.UserContext(), middleware.UserID(c), req.Immediate)
	if err != nil {
		return respondError(c, err)
	}

	message := "Subscription will be cancelled at the end of the current period"
	if sub.Status == models.SubscriptionCancelled {
		message = "Subscription cancelled"
	}
	return c.JSON(fiber.Map{"message": message, "subscription": sub})
}
