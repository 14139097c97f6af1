package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"academy/internal/apperrors"
	"academy/internal/models"
	"academy/internal/repositories"
	"academy/internal/storage"
)

const defaultContentFile = "content.md"

// ModuleContent is a module with its body, returned only after an access check.
type ModuleContent struct {
	CourseID    string               `json:"course_id"`
	CourseSlug  string               `json:"course_slug"`
	CourseTitle string               `json:"course_title"`
	Module      models.ModuleSummary `json:"module"`
	Format      string               `json:"format"`
	Content     string               `json:"content"`
}

// ContentService serves module bodies to learners with access.
type ContentService struct {
	access       *AccessService
	progressRepo repositories.ProgressRepository
	store        storage.ContentStore
}

// NewContentService wires the service. store may be nil when all content
// is inline.
func NewContentService(access *AccessService, progressRepo repositories.ProgressRepository, store storage.ContentStore) *ContentService {
	return &ContentService{access: access, progressRepo: progressRepo, store: store}
}

// GetContent checks access on every call, resolves the body and records
// the visit.
func (s *ContentService) GetContent(ctx context.Context, userID, courseID, moduleID string) (*ModuleContent, error) {
	module, err := s.access.authorizeModule(ctx, userID, courseID, moduleID)
	if err != nil {
		return nil, err
	}

	body, err := s.resolve(ctx, module)
	if err != nil {
		return nil, err
	}

	if err := s.progressRepo.Touch(ctx, userID, courseID, moduleID, time.Now()); err != nil {
		slog.Error("failed to record module access", "user_id", userID, "module_id", moduleID, "error", err)
	}

	out := &ModuleContent{
		CourseID: courseID,
		Module:   module.Summary(),
		Format:   "markdown",
		Content:  body,
	}
	if module.Course != nil {
		out.CourseSlug = module.Course.Slug
		out.CourseTitle = module.Course.Title
	}
	return out, nil
}

func (s *ContentService) resolve(ctx context.Context, module *models.CourseModule) (string, error) {
	defaultRef := storage.ObjectRef{Key: storage.ContentKey(module.CourseID, module.ID, defaultContentFile)}

	switch {
	case storage.IsObjectURI(module.Content):
		ref, err := storage.ParseObjectURI(module.Content)
		if err != nil {
			return "", apperrors.Internal("bad content reference on module "+module.ID, err)
		}
		if ref.Key == "" {
			ref.Key = defaultRef.Key
		}
		return s.fetch(ctx, ref)

	case module.Content == "" && s.store != nil:
		body, err := s.fetch(ctx, defaultRef)
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil
		}
		return body, err

	default:
		return module.Content, nil
	}
}

func (s *ContentService) fetch(ctx context.Context, ref storage.ObjectRef) (string, error) {
	if s.store == nil {
		return "", apperrors.Internal("content store not configured", fmt.Errorf("cannot fetch %s", ref))
	}
	return s.store.Fetch(ctx, ref)
}
