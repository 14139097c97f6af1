package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"academy/internal/apperrors"
	"academy/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var progressKey = []clause.Column{{Name: "user_id"}, {Name: "course_id"}, {Name: "module_id"}}

// GORMProgressRepository is a GORM implementation of ProgressRepository.
type GORMProgressRepository struct {
	db *gorm.DB
}

func NewGORMProgressRepository(db *gorm.DB) *GORMProgressRepository {
	return &GORMProgressRepository{db: db}
}

func (r *GORMProgressRepository) Touch(ctx context.Context, userID, courseID, moduleID string, at time.Time) error {
	row := models.UserProgress{
		UserID:         userID,
		CourseID:       courseID,
		ModuleID:       moduleID,
		LastAccessedAt: at,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   progressKey,
		DoUpdates: clause.AssignmentColumns([]string{"last_accessed_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to touch progress for module %s: %w", moduleID, err)
	}
	return nil
}

func (r *GORMProgressRepository) Record(ctx context.Context, delta ProgressDelta) (*models.UserProgress, error) {
	row := models.UserProgress{
		UserID:         delta.UserID,
		CourseID:       delta.CourseID,
		ModuleID:       delta.ModuleID,
		TimeSpent:      delta.TimeSpent,
		LastAccessedAt: delta.At,
	}
	if delta.Completed {
		at := delta.At
		row.CompletedAt = &at
	}

	// Both expressions read the existing row inside the upsert itself, so
	// concurrent increments cannot overwrite each other.
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: progressKey,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"time_spent":       gorm.Expr("user_progress.time_spent + excluded.time_spent"),
			"completed_at":     gorm.Expr("COALESCE(user_progress.completed_at, excluded.completed_at)"),
			"last_accessed_at": gorm.Expr("excluded.last_accessed_at"),
			"updated_at":       gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to record progress for module %s: %w", delta.ModuleID, err)
	}
	return r.Get(ctx, delta.UserID, delta.CourseID, delta.ModuleID)
}

func (r *GORMProgressRepository) Get(ctx context.Context, userID, courseID, moduleID string) (*models.UserProgress, error) {
	var p models.UserProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND module_id = ?", userID, courseID, moduleID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("no progress recorded for module %s", moduleID)
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &p, nil
}

func (r *GORMProgressRepository) ListByUser(ctx context.Context, userID, courseID string) ([]models.UserProgress, error) {
	var rows []models.UserProgress
	q := r.db.WithContext(ctx).
		Preload("Course").
		Preload("Module").
		Joins("JOIN course_modules ON course_modules.id = user_progress.module_id").
		Where("user_progress.user_id = ?", userID)
	if courseID != "" {
		q = q.Where("user_progress.course_id = ?", courseID)
	}
	if err := q.Order("user_progress.course_id asc, course_modules.sort_order asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list progress for user %s: %w", userID, err)
	}
	return rows, nil
}

func (r *GORMProgressRepository) ListRecent(ctx context.Context, userID string, limit int) ([]models.UserProgress, error) {
	var rows []models.UserProgress
	if err := r.db.WithContext(ctx).
		Preload("Course").
		Preload("Module").
		Where("user_id = ?", userID).
		Order("last_accessed_at desc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent progress for user %s: %w", userID, err)
	}
	return rows, nil
}
