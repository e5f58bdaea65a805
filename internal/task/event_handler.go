package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/cramdeck/internal/events"
)

// Submitter accepts tasks for execution. *TaskRunner implements it.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler turns task request events into tasks through the
// registry and hands them to a runner.
type TaskFactoryEventHandler struct {
	registry *Registry
	runner   Submitter
	logger   *slog.Logger
}

// NewTaskFactoryEventHandler creates a handler for the registry's types.
func NewTaskFactoryEventHandler(registry *Registry, runner Submitter, logger *slog.Logger) *TaskFactoryEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskFactoryEventHandler{
		registry: registry,
		runner:   runner,
		logger:   logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent builds a task whose id is the event id and submits it. Events
// of unregistered types are ignored. A full queue is logged, not returned:
// the task is already persisted and runs after the next recovery.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	logger := h.logger.With("event_id", event.ID, "event_type", event.Type)

	task, err := h.registry.Build(event.Type, event.ID, event.Payload)
	if errors.Is(err, ErrUnknownTaskType) {
		logger.Debug("ignoring event with unsupported type")
		return nil
	}
	if err != nil {
		logger.Error("failed to create task", "error", err)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, task); err != nil {
		if errors.Is(err, ErrQueueFull) {
			logger.Warn("task queue is full, task deferred to recovery", "task_id", task.ID())
			return nil
		}
		logger.Error("failed to submit task", "error", err, "task_id", task.ID())
		return fmt.Errorf("failed to submit task: %w", err)
	}

	logger.Debug("task created and submitted", "task_id", task.ID())
	return nil
}

var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
