package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
)

// EssayRepository is the part of the essay store grading needs.
type EssayRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Essay, error)
	UpdateStatus(ctx context.Context, essay *domain.Essay) error
}

// EssayGrader produces written feedback for an essay file.
type EssayGrader interface {
	GradeEssay(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// EssayFileReader loads a stored upload.
type EssayFileReader interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

// Reasoner is implemented by errors that carry a message safe to show the
// essay's owner.
type Reasoner interface {
	Reason() string
}

// EssayGradingPayload is the persisted form of a grading request.
type EssayGradingPayload struct {
	EssayID uuid.UUID `json:"essay_id"`
}

// EssayGradingTask loads an essay, sends it to the grader and stores the
// feedback or the failure.
type EssayGradingTask struct {
	id      uuid.UUID
	essayID uuid.UUID
	status  TaskStatus

	essays EssayRepository
	grader EssayGrader
	files  EssayFileReader
	logger *slog.Logger
}

// NewEssayGradingTask creates a pending grading task.
func NewEssayGradingTask(
	id uuid.UUID,
	essayID uuid.UUID,
	essays EssayRepository,
	grader EssayGrader,
	files EssayFileReader,
	logger *slog.Logger,
) (*EssayGradingTask, error) {
	if essayID == uuid.Nil {
		return nil, fmt.Errorf("%w: essay id", domain.ErrInvalidID)
	}
	if essays == nil || grader == nil || files == nil {
		return nil, errors.New("essay grading task dependencies cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EssayGradingTask{
		id:      id,
		essayID: essayID,
		status:  TaskStatusPending,
		essays:  essays,
		grader:  grader,
		files:   files,
		logger:  logger.With("task_id", id, "task_type", TaskTypeEssayGrading, "essay_id", essayID),
	}, nil
}

// EssayGradingBuilder returns a Builder for TaskTypeEssayGrading.
func EssayGradingBuilder(
	essays EssayRepository,
	grader EssayGrader,
	files EssayFileReader,
	logger *slog.Logger,
) Builder {
	return func(id uuid.UUID, raw []byte) (Task, error) {
		var p EssayGradingPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode essay grading payload: %w", err)
		}
		return NewEssayGradingTask(id, p.EssayID, essays, grader, files, logger)
	}
}

// ID implements Task.
func (t *EssayGradingTask) ID() uuid.UUID { return t.id }

// Type implements Task.
func (t *EssayGradingTask) Type() string { return TaskTypeEssayGrading }

// Payload implements Task.
func (t *EssayGradingTask) Payload() []byte {
	data, _ := json.Marshal(EssayGradingPayload{EssayID: t.essayID})
	return data
}

// Status implements Task.
func (t *EssayGradingTask) Status() TaskStatus { return t.status }

// Execute grades the essay. An essay that is no longer in the grading state
// was settled by an earlier run and is left alone.
func (t *EssayGradingTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing

	essay, err := t.essays.GetByID(ctx, t.essayID)
	if err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to load essay: %w", err)
	}
	if essay.Status != domain.EssayStatusGrading {
		t.logger.Info("essay is not awaiting grading, skipping", "status", essay.Status)
		t.status = TaskStatusCompleted
		return nil
	}

	data, err := t.files.Read(ctx, essay.StoragePath)
	if err != nil {
		return t.fail(ctx, essay, "the uploaded file could not be read", fmt.Errorf("failed to read essay file: %w", err))
	}

	feedback, err := t.grader.GradeEssay(ctx, essay.Filename, essay.ContentType, data)
	if err != nil {
		return t.fail(ctx, essay, failureReason(err), fmt.Errorf("failed to grade essay: %w", err))
	}

	essay.CompleteGrading(feedback)
	if err := t.essays.UpdateStatus(ctx, essay); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to store essay feedback: %w", err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("essay graded", "feedback_length", len(feedback))
	return nil
}

func (t *EssayGradingTask) fail(ctx context.Context, essay *domain.Essay, reason string, cause error) error {
	t.status = TaskStatusFailed
	essay.FailGrading(reason)
	// The essay row is written even if the task context has expired.
	if err := t.essays.UpdateStatus(context.WithoutCancel(ctx), essay); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to record grading failure: %w", err))
	}
	return cause
}

func failureReason(err error) string {
	var r Reasoner
	switch {
	case errors.As(err, &r):
		return r.Reason()
	case errors.Is(err, context.DeadlineExceeded):
		return "grading timed out, please try again"
	default:
		return "grading failed, please try again"
	}
}
