package services

import (
	"context"
	"errors"

	"academy/internal/apperrors"
	"academy/internal/models"
	"academy/internal/repositories"
)

// CourseDetail is the public view of a course: metadata plus the module
// listing, without content.
type CourseDetail struct {
	models.Course
	Modules []models.ModuleSummary `json:"modules"`
}

// CatalogService exposes published courses.
type CatalogService struct {
	courseRepo repositories.CourseRepository
}

func NewCatalogService(courseRepo repositories.CourseRepository) *CatalogService {
	return &CatalogService{courseRepo: courseRepo}
}

func (s *CatalogService) ListCourses(ctx context.Context) ([]models.Course, error) {
	return s.courseRepo.ListPublished(ctx)
}

// GetCourse returns a published course by slug. Drafts look missing.
func (s *CatalogService) GetCourse(ctx context.Context, slug string) (*CourseDetail, error) {
	course, err := s.courseRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished {
		return nil, apperrors.NotFound("course %s not found", slug)
	}

	detail := &CourseDetail{Course: *course, Modules: make([]models.ModuleSummary, 0, len(course.Modules))}
	for _, m := range course.Modules {
		detail.Modules = append(detail.Modules, m.Summary())
	}
	detail.Course.Modules = nil
	return detail, nil
}

// ImportResult counts what Import changed.
type ImportResult struct {
	CoursesCreated int `json:"coursesCreated"`
	ModulesAdded   int `json:"modulesAdded"`
	Unchanged      int `json:"unchanged"`
}

// Import loads courses keyed by slug. New slugs are created with their
// modules; for existing slugs only modules with an unseen title are
// added. Prices and other fields of existing courses are left alone so
// a re-run never reprices the catalog.
func (s *CatalogService) Import(ctx context.Context, courses []models.Course) (*ImportResult, error) {
	res := &ImportResult{}
	for i := range courses {
		in := &courses[i]
		if in.Slug == "" || in.Title == "" {
			return res, apperrors.InvalidRequest("course #%d needs a slug and a title", i+1)
		}
		if !in.Price.IsPositive() {
			return res, apperrors.InvalidRequest("course %s needs a price above zero", in.Slug)
		}

		existing, err := s.courseRepo.GetBySlug(ctx, in.Slug)
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := s.courseRepo.Create(ctx, in); err != nil {
				return res, err
			}
			res.CoursesCreated++
			continue
		}
		if err != nil {
			return res, err
		}

		titles := make(map[string]bool, len(existing.Modules))
		for _, m := range existing.Modules {
			titles[m.Title] = true
		}
		added := 0
		for _, m := range in.Modules {
			if titles[m.Title] {
				continue
			}
			m.ID = ""
			m.CourseID = existing.ID
			if err := s.courseRepo.CreateModule(ctx, &m); err != nil {
				return res, err
			}
			added++
		}
		if added == 0 {
			res.Unchanged++
		}
		res.ModulesAdded += added
	}
	return res, nil
}
