package repositories

import (
	"context"
	"time"

	"academy/internal/models"
)

// ProgressDelta is one increment of learner progress on a module.
type ProgressDelta struct {
	UserID    string
	CourseID  string
	ModuleID  string
	TimeSpent int64
	Completed bool
	At        time.Time
}

// ProgressRepository defines the interface for progress data access.
type ProgressRepository interface {
	// Touch upserts the row and sets last_accessed_at.
	Touch(ctx context.Context, userID, courseID, moduleID string, at time.Time) error
	// Record adds delta.TimeSpent to the stored value in a single statement
	// and sets completed_at only if it is not already set.
	Record(ctx context.Context, delta ProgressDelta) (*models.UserProgress, error)
	Get(ctx context.Context, userID, courseID, moduleID string) (*models.UserProgress, error)
	ListByUser(ctx context.Context, userID, courseID string) ([]models.UserProgress, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.UserProgress, error)
}
