package repositories

import (
	"context"

	"academy/internal/models"
)

// CourseRepository defines the interface for catalog data access.
type CourseRepository interface {
	ListPublished(ctx context.Context) ([]models.Course, error)
	GetBySlug(ctx context.Context, slug string) (*models.Course, error)
	GetByID(ctx context.Context, id string) (*models.Course, error)
	// GetByIDs returns the courses that exist among ids, in no particular order.
	GetByIDs(ctx context.Context, ids []string) ([]models.Course, error)
	GetModule(ctx context.Context, moduleID string) (*models.CourseModule, error)
	Create(ctx context.Context, course *models.Course) error
	CreateModule(ctx context.Context, module *models.CourseModule) error
}
