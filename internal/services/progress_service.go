package services

import (
	"context"
	"time"

	"academy/internal/apperrors"
	"academy/internal/models"
	"academy/internal/repositories"
)

// recentLimit is how many rows the recent progress view returns.
const recentLimit = 5

// ProgressInput is one progress report from the client. Nil fields were
// not sent.
type ProgressInput struct {
	CourseID  string
	ModuleID  string
	TimeSpent *int64
	Completed *bool
}

// ProgressService records learner progress on modules they can access.
type ProgressService struct {
	access       *AccessService
	progressRepo repositories.ProgressRepository
}

func NewProgressService(access *AccessService, progressRepo repositories.ProgressRepository) *ProgressService {
	return &ProgressService{access: access, progressRepo: progressRepo}
}

// RecordProgress adds time spent and marks completion. Completion is
// permanent; completed=false never clears it.
func (s *ProgressService) RecordProgress(ctx context.Context, userID string, in ProgressInput) (*models.UserProgress, error) {
	delta := int64(0)
	if in.TimeSpent != nil {
		if *in.TimeSpent < 0 {
			return nil, apperrors.Validation(map[string]string{"timeSpent": "must not be negative"})
		}
		delta = *in.TimeSpent
	}

	if _, err := s.access.authorizeModule(ctx, userID, in.CourseID, in.ModuleID); err != nil {
		return nil, err
	}

	return s.progressRepo.Record(ctx, repositories.ProgressDelta{
		UserID:    userID,
		CourseID:  in.CourseID,
		ModuleID:  in.ModuleID,
		TimeSpent: delta,
		Completed: in.Completed != nil && *in.Completed,
		At:        time.Now(),
	})
}

// ListProgress returns the user's progress, for one course when courseID
// is set, or the most recently accessed rows when recent is true.
func (s *ProgressService) ListProgress(ctx context.Context, userID, courseID string, recent bool) ([]models.UserProgress, error) {
	if recent {
		return s.progressRepo.ListRecent(ctx, userID, recentLimit)
	}
	return s.progressRepo.ListByUser(ctx, userID, courseID)
}
