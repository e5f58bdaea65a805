package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task types carried by events. They match the task package's registry keys.
const (
	TypeStudyMark    = "study_mark"
	TypeEssayGrading = "essay_grading"
)

// TaskRequestEvent asks for a background task. Its ID becomes the task id.
type TaskRequestEvent struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *TaskRequestEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewTaskRequestEvent serializes payload into a new event.
func NewTaskRequestEvent(eventType string, payload any) (*TaskRequestEvent, error) {
	if eventType == "" {
		return nil, fmt.Errorf("event type cannot be empty")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}
	return &TaskRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler processes events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// EventEmitter publishes events to whatever handlers are registered.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}

// Emit builds an event and publishes it, returning the event id.
func Emit(ctx context.Context, emitter EventEmitter, eventType string, payload any) (uuid.UUID, error) {
	event, err := NewTaskRequestEvent(eventType, payload)
	if err != nil {
		return uuid.Nil, err
	}
	if err := emitter.EmitEvent(ctx, event); err != nil {
		return event.ID, fmt.Errorf("failed to emit %s event: %w", eventType, err)
	}
	return event.ID, nil
}
