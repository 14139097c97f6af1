package handlers

import (
	"academy/internal/middleware"
	"academy/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// LearningHandler serves module content and learner progress.
type LearningHandler struct {
	content  *services.ContentService
	progress *services.ProgressService
	validate *validator.Validate
}

func NewLearningHandler(content *services.ContentService, progress *services.ProgressService) *LearningHandler {
	return &LearningHandler{content: content, progress: progress, validate: validator.New()}
}

func (h *LearningHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Get("/content/:courseId/:moduleId", auth, h.HandleGetContent)
	router.Get("/user/progress", auth, h.HandleListProgress)
	router.Post("/user/progress", auth, h.HandleRecordProgress)
}

// HandleGetContent returns a module body if the caller may read it.
func (h *LearningHandler) HandleGetContent(c *fiber.Ctx) error {
	content, err := h.content.GetContent(c.UserContext(), middleware.UserID(c), c.Params("courseId"), c.Params("moduleId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(content)
}

func (h *LearningHandler) HandleListProgress(c *fiber.Ctx) error {
	rows, err := h.progress.ListProgress(c.UserContext(), middleware.UserID(c), c.Query("courseId"), c.QueryBool("recent"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

// ProgressRequest reports time spent on a module. TimeSpent is a delta
// in seconds, added to what is already stored.
type ProgressRequest struct {
	CourseID  string `json:"courseId" validate:"required"`
	ModuleID  string `json:"moduleId" validate:"required"`
	TimeSpent *int64 `json:"timeSpent" validate:"omitempty,min=0"`
	Completed *bool  `json:"completed"`
}

func (h *LearningHandler) HandleRecordProgress(c *fiber.Ctx) error {
	var req ProgressRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	row, err := h.progress.RecordProgress(c.UserContext(), middleware.UserID(c), services.ProgressInput{
		CourseID:  req.CourseID,
		ModuleID:  req.ModuleID,
		TimeSpent: req.TimeSpent,
		Completed: req.Completed,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(row)
}
