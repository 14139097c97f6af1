// Package server assembles the fiber application.
package server

import (
	"log/slog"
	"time"

	"academy/internal/database"
	"academy/internal/handlers"
	"academy/internal/middleware"
	"academy/internal/services"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Auth         *services.AuthService
	Catalog      *services.CatalogService
	Cart         *services.CartService
	Orders       *services.OrderService
	Content      *services.ContentService
	Progress     *services.ProgressService
	Subscription *services.SubscriptionService
}

// Options tunes the app. RateLimit is requests per minute per IP under
// /api/v1; zero disables limiting.
type Options struct {
	RateLimit  int
	AccessLogs bool
}

// New builds the fiber app with middleware and every route registered.
func New(db *gorm.DB, svc Services, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	if opts.AccessLogs {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		code, status, dbStatus := fiber.StatusOK, "healthy", "connected"
		if err := database.Ping(db); err != nil {
			slog.Error("health check: database unreachable", "error", err)
			code, status, dbStatus = fiber.StatusServiceUnavailable, "degraded", "unreachable"
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
			"db":     dbStatus,
		})
	})

	api := app.Group("/api/v1")
	if opts.RateLimit > 0 {
		api.Use(limiter.New(limiter.Config{
			Max:               opts.RateLimit,
			Expiration:        1 * time.Minute,
			LimiterMiddleware: limiter.SlidingWindow{},
			KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		}))
	}

	auth := middleware.AuthRequired(svc.Auth)

	handlers.NewAuthHandler(svc.Auth).RegisterRoutes(api, auth)
	handlers.NewCatalogHandler(svc.Catalog, svc.Cart).RegisterRoutes(api, auth)
	handlers.NewOrderHandler(svc.Orders).RegisterRoutes(api, auth)
	handlers.NewLearningHandler(svc.Content, svc.Progress).RegisterRoutes(api, auth)
	handlers.NewSubscriptionHandler(svc.Subscription).RegisterRoutes(api, auth)

	return app
}

// customErrorHandler catches errors handlers did not answer themselves,
// mostly fiber's own (404 routes, body limit, panics).
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code >= fiber.StatusInternalServerError {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"message": message,
	})
}
