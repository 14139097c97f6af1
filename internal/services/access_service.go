package services

import (
	"context"
	"fmt"

	"academy/internal/apperrors"
	"academy/internal/models"
	"academy/internal/repositories"
)

// AccessService decides whether a user may see a module. Every call reads
// the datastore; results are never cached.
type AccessService struct {
	courseRepo repositories.CourseRepository
	orderRepo  repositories.OrderRepository
}

func NewAccessService(courseRepo repositories.CourseRepository, orderRepo repositories.OrderRepository) *AccessService {
	return &AccessService{courseRepo: courseRepo, orderRepo: orderRepo}
}

// CanAccess is true for preview modules and for modules of a course the
// user holds a completed order for.
func (s *AccessService) CanAccess(ctx context.Context, userID string, module *models.CourseModule) (bool, error) {
	if module.IsPreview {
		return true, nil
	}
	if userID == "" {
		return false, nil
	}
	owned, err := s.orderRepo.HasCompletedPurchase(ctx, userID, module.CourseID)
	if err != nil {
		return false, fmt.Errorf("checking purchase of course %s: %w", module.CourseID, err)
	}
	return owned, nil
}

// HasAccess looks up the module and applies CanAccess.
func (s *AccessService) HasAccess(ctx context.Context, userID, moduleID string) (bool, error) {
	module, err := s.courseRepo.GetModule(ctx, moduleID)
	if err != nil {
		return false, err
	}
	return s.CanAccess(ctx, userID, module)
}

// authorizeModule loads the module, checks it belongs to courseID and that
// userID may access it.
func (s *AccessService) authorizeModule(ctx context.Context, userID, courseID, moduleID string) (*models.CourseModule, error) {
	module, err := s.courseRepo.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if module.CourseID != courseID {
		return nil, apperrors.NotFound("module %s not found in course %s", moduleID, courseID)
	}
	ok, err := s.CanAccess(ctx, userID, module)
	if err != nil {
		return nil, err
	}
	if !ok {
		return module, accessDenied(module)
	}
	return module, nil
}

func accessDenied(module *models.CourseModule) error {
	e := &apperrors.Error{
		Kind:    apperrors.KindForbidden,
		Message: "Purchase this course to unlock the module",
	}
	if module.Course != nil {
		e.Fields = map[string]string{"upsell": "/courses/" + module.Course.Slug}
	}
	return e
}
