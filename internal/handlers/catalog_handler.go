package handlers

import (
	"academy/internal/middleware"
	"academy/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CatalogHandler serves the public course catalog and cart checks.
type CatalogHandler struct {
	catalog  *services.CatalogService
	cart     *services.CartService
	validate *validator.Validate
}

func NewCatalogHandler(catalog *services.CatalogService, cart *services.CartService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, cart: cart, validate: validator.New()}
}

func (h *CatalogHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Get("/courses", h.HandleListCourses)
	router.Get("/courses/:slug", h.HandleGetCourse)
	router.Post("/cart", auth, h.HandleAddToCart)
	router.Post("/cart/validate", auth, h.HandleValidateCart)
}

func (h *CatalogHandler) HandleListCourses(c *fiber.Ctx) error {
	courses, err := h.catalog.ListCourses(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(courses)
}

func (h *CatalogHandler) HandleGetCourse(c *fiber.Ctx) error {
	course, err := h.catalog.GetCourse(c.UserContext(), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(course)
}

type AddToCartRequest struct {
	CourseID string `json:"courseId" validate:"required"`
}

func (h *CatalogHandler) HandleAddToCart(c *fiber.Ctx) error {
	var req AddToCartRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}
	item, err := h.cart.AddItem(c.UserContext(), middleware.UserID(c), req.CourseID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Course added to cart", "item": item})
}

// CartRequest carries course ids only; prices are always looked up.
type CartRequest struct {
	CourseIDs []string `json:"courseIds" validate:"required,min=1,dive,required"`
}

func (h *CatalogHandler) HandleValidateCart(c *fiber.Ctx) error {
	var req CartRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}
	summary, err := h.cart.Validate(c.UserContext(), middleware.UserID(c), req.CourseIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}
