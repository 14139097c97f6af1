package repositories

import (
	"context"
	"errors"
	"fmt"

	"academy/internal/apperrors"
	"academy/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCourseRepository is a GORM implementation of CourseRepository.
type GORMCourseRepository struct {
	db *gorm.DB
}

func NewGORMCourseRepository(db *gorm.DB) *GORMCourseRepository {
	return &GORMCourseRepository{db: db}
}

func (r *GORMCourseRepository) ListPublished(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.WithContext(ctx).
		Where("is_published = ?", true).
		Order("title asc").
		Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to list published courses: %w", err)
	}
	return courses, nil
}

func (r *GORMCourseRepository) GetBySlug(ctx context.Context, slug string) (*models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order asc") }).
		First(&course, "slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("course %s not found", slug)
		}
		return nil, fmt.Errorf("failed to get course by slug %s: %w", slug, err)
	}
	return &course, nil
}

func (r *GORMCourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("course with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get course by ID %s: %w", id, err)
	}
	return &course, nil
}

func (r *GORMCourseRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	var courses []models.Course
	if len(ids) == 0 {
		return courses, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to get courses: %w", err)
	}
	return courses, nil
}

func (r *GORMCourseRepository) GetModule(ctx context.Context, moduleID string) (*models.CourseModule, error) {
	var module models.CourseModule
	if err := r.db.WithContext(ctx).Preload("Course").First(&module, "id = ?", moduleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("module with ID %s not found", moduleID)
		}
		return nil, fmt.Errorf("failed to get module %s: %w", moduleID, err)
	}
	return &module, nil
}

func (r *GORMCourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.New().String()
	}
	for i := range course.Modules {
		if course.Modules[i].ID == "" {
			course.Modules[i].ID = uuid.New().String()
		}
	}
	if err := r.db.WithContext(ctx).Create(course).Error; err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

func (r *GORMCourseRepository) CreateModule(ctx context.Context, module *models.CourseModule) error {
	if module.ID == "" {
		module.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(module).Error; err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}
	return nil
}
