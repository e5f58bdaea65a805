package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/events"
	"github.com/phrazzld/cramdeck/internal/platform/filestore"
	"github.com/phrazzld/cramdeck/internal/redact"
	"github.com/phrazzld/cramdeck/internal/store"
	"github.com/phrazzld/cramdeck/internal/task"
)

// EssayFiles stores uploaded essay files.
type EssayFiles interface {
	Save(ctx context.Context, r io.Reader) (filestore.Stored, error)
	Delete(path string) error
}

// EssayService handles essay uploads and grading requests.
type EssayService interface {
	Upload(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (*domain.Essay, error)
	// List returns the user's essays, newest first.
	List(ctx context.Context, userID uuid.UUID) ([]domain.Essay, error)
	Get(ctx context.Context, userID, essayID uuid.UUID) (*domain.Essay, error)
	// Grade moves the essay to grading and queues the background task.
	// The returned essay reflects the queued state.
	Grade(ctx context.Context, userID, essayID uuid.UUID) (*domain.Essay, error)
}

// EssayServiceImpl implements EssayService.
type EssayServiceImpl struct {
	essays         store.EssayStore
	files          EssayFiles
	emitter        events.EventEmitter
	gradingEnabled bool
	logger         *slog.Logger
}

// NewEssayService creates an EssayService. With gradingEnabled false every
// Grade call returns ErrGradingNotConfigured.
func NewEssayService(
	essays store.EssayStore,
	files EssayFiles,
	emitter events.EventEmitter,
	gradingEnabled bool,
	logger *slog.Logger,
) EssayService {
	return &EssayServiceImpl{
		essays:         essays,
		files:          files,
		emitter:        emitter,
		gradingEnabled: gradingEnabled,
		logger:         logger.With("component", "essay_service"),
	}
}

func (s *EssayServiceImpl) Upload(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (*domain.Essay, error) {
	stored, err := s.files.Save(ctx, r)
	if err != nil {
		return nil, err
	}

	essay, err := domain.NewEssay(userID, filename, stored.ContentType, stored.Path, stored.Size)
	if err == nil {
		err = s.essays.Create(ctx, essay)
	}
	if err != nil {
		if delErr := s.files.Delete(stored.Path); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", "error", redact.Error(delErr))
		}
		return nil, NewServiceError("essay", "upload", err)
	}

	s.logger.Info("essay uploaded",
		"essay_id", essay.ID,
		"user_id", userID,
		"content_type", essay.ContentType,
		"size_bytes", essay.SizeBytes,
		"pages", stored.Pages)
	return essay, nil
}

func (s *EssayServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]domain.Essay, error) {
	essays, err := s.essays.ListByUser(ctx, userID)
	if err != nil {
		return nil, NewServiceError("essay", "list", err)
	}
	return essays, nil
}

func (s *EssayServiceImpl) Get(ctx context.Context, userID, essayID uuid.UUID) (*domain.Essay, error) {
	essay, err := s.essays.GetByID(ctx, essayID)
	if err != nil {
		return nil, NewServiceError("essay", "get", err)
	}
	if essay.UserID != userID {
		return nil, ErrNotOwned
	}
	return essay, nil
}

func (s *EssayServiceImpl) Grade(ctx context.Context, userID, essayID uuid.UUID) (*domain.Essay, error) {
	if !s.gradingEnabled {
		return nil, ErrGradingNotConfigured
	}
	essay, err := s.Get(ctx, userID, essayID)
	if err != nil {
		return nil, err
	}
	if err := essay.BeginGrading(); err != nil {
		return nil, err
	}
	if err := s.essays.UpdateStatus(ctx, essay); err != nil {
		return nil, NewServiceError("essay", "grade", err)
	}

	eventID, err := events.Emit(ctx, s.emitter, events.TypeEssayGrading, task.EssayGradingPayload{EssayID: essay.ID})
	if err != nil {
		s.logger.Error("failed to queue essay grading", "essay_id", essay.ID, "error", redact.Error(err))
		essay.FailGrading("grading could not be started, please try again")
		if upErr := s.essays.UpdateStatus(ctx, essay); upErr != nil {
			s.logger.Error("failed to record grading failure", "essay_id", essay.ID, "error", redact.Error(upErr))
		}
		return nil, NewServiceError("essay", "grade", fmt.Errorf("queue grading: %w", err))
	}

	s.logger.Info("essay grading queued", "essay_id", essay.ID, "task_id", eventID)
	return essay, nil
}
