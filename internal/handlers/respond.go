package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"academy/internal/apperrors"
	"academy/internal/middleware"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// respondError writes err as a JSON error response. Server errors are
// logged and reported but never shown to the client.
func respondError(c *fiber.Ctx, err error) error {
	kind := apperrors.KindOf(err)
	status := apperrors.HTTPStatus(kind)

	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"user_id", middleware.UserID(c),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"error", err)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.WithScope(func(scope *sentry.Scope) {
				scope.SetUser(sentry.User{ID: middleware.UserID(c)})
				hub.CaptureException(err)
			})
		}
		return c.Status(status).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}

	body := fiber.Map{
		"message": err.Error(),
		"error":   kind.String(),
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		body["message"] = appErr.Message
		if kind == apperrors.KindForbidden && appErr.Fields["upsell"] != "" {
			body["upsell"] = appErr.Fields["upsell"]
		} else if len(appErr.Fields) > 0 {
			body["errors"] = appErr.Fields
		}
	}
	return c.Status(status).JSON(body)
}

// parseBody decodes the JSON body into dst and runs its validate tags.
func parseBody(c *fiber.Ctx, validate *validator.Validate, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.InvalidRequest("Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return apperrors.InvalidRequest("Invalid request body")
		}
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return apperrors.Validation(errorMessages)
	}
	return nil
}
