package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
)

// MasteryRecorder applies one study mark to a user's card mastery.
type MasteryRecorder interface {
	Record(ctx context.Context, userID, cardID uuid.UUID, correct bool, at time.Time) (*domain.CardMastery, error)
}

// MissedTracker keeps the set of cards a user most recently got wrong.
type MissedTracker interface {
	Add(ctx context.Context, userID, cardID uuid.UUID) error
	Remove(ctx context.Context, userID, cardID uuid.UUID) error
}

// StudyMarkPayload is the persisted form of a study mark.
type StudyMarkPayload struct {
	UserID   uuid.UUID `json:"user_id"`
	CardID   uuid.UUID `json:"card_id"`
	Correct  bool      `json:"correct"`
	MarkedAt time.Time `json:"marked_at"`
}

// Validate checks the payload carries both ids.
func (p StudyMarkPayload) Validate() error {
	if p.UserID == uuid.Nil || p.CardID == uuid.Nil {
		return fmt.Errorf("%w: study mark needs user and card ids", domain.ErrInvalidID)
	}
	return nil
}

// StudyMarkTask records a correct or wrong mark outside the request that
// produced it.
type StudyMarkTask struct {
	id      uuid.UUID
	payload StudyMarkPayload
	status  TaskStatus

	mastery MasteryRecorder
	missed  MissedTracker
	logger  *slog.Logger
}

// NewStudyMarkTask creates a pending study mark task. missed may be nil
// when no tracker is configured.
func NewStudyMarkTask(
	id uuid.UUID,
	payload StudyMarkPayload,
	mastery MasteryRecorder,
	missed MissedTracker,
	logger *slog.Logger,
) (*StudyMarkTask, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if mastery == nil {
		return nil, errors.New("mastery recorder cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if payload.MarkedAt.IsZero() {
		payload.MarkedAt = time.Now().UTC()
	}
	return &StudyMarkTask{
		id:      id,
		payload: payload,
		status:  TaskStatusPending,
		mastery: mastery,
		missed:  missed,
		logger:  logger.With("task_id", id, "task_type", TaskTypeStudyMark),
	}, nil
}

// StudyMarkBuilder returns a Builder for TaskTypeStudyMark.
func StudyMarkBuilder(mastery MasteryRecorder, missed MissedTracker, logger *slog.Logger) Builder {
	return func(id uuid.UUID, raw []byte) (Task, error) {
		var p StudyMarkPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode study mark payload: %w", err)
		}
		return NewStudyMarkTask(id, p, mastery, missed, logger)
	}
}

// ID implements Task.
func (t *StudyMarkTask) ID() uuid.UUID { return t.id }

// Type implements Task.
func (t *StudyMarkTask) Type() string { return TaskTypeStudyMark }

// Payload implements Task.
func (t *StudyMarkTask) Payload() []byte {
	data, err := json.Marshal(t.payload)
	if err != nil {
		t.logger.Error("failed to encode study mark payload", "error", err)
		return nil
	}
	return data
}

// OrderingKey implements Keyed. Marks by one user are applied in the order
// they were made, so a later mark always wins.
func (t *StudyMarkTask) OrderingKey() string { return t.payload.UserID.String() }

// Status implements Task.
func (t *StudyMarkTask) Status() TaskStatus { return t.status }

// Execute updates mastery, then the missed set. A correct mark clears the
// card from the missed set; a wrong mark adds it.
func (t *StudyMarkTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	p := t.payload

	m, err := t.mastery.Record(ctx, p.UserID, p.CardID, p.Correct, p.MarkedAt)
	if err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("failed to record mastery: %w", err)
	}

	if t.missed != nil {
		if p.Correct {
			err = t.missed.Remove(ctx, p.UserID, p.CardID)
		} else {
			err = t.missed.Add(ctx, p.UserID, p.CardID)
		}
		if err != nil {
			t.status = TaskStatusFailed
			return fmt.Errorf("failed to update missed cards: %w", err)
		}
	}

	t.status = TaskStatusCompleted
	t.logger.Debug("study mark recorded",
		"user_id", p.UserID,
		"card_id", p.CardID,
		"correct", p.Correct,
		"streak", m.ConsecutiveCorrect)
	return nil
}
