package task

import (
	"context"
	"log/slog"
)

// InlineSubmitter runs each submitted task before Submit returns. It serves
// short-lived tools that have no worker pool and no task table. Failures are
// returned to the caller rather than retried.
type InlineSubmitter struct {
	logger *slog.Logger
}

// NewInlineSubmitter creates an InlineSubmitter.
func NewInlineSubmitter(logger *slog.Logger) *InlineSubmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InlineSubmitter{logger: logger.With("component", "inline_submitter")}
}

// Submit implements Submitter.
func (s *InlineSubmitter) Submit(ctx context.Context, task Task) error {
	if err := task.Execute(ctx); err != nil {
		s.logger.Error("inline task failed",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"error", err)
		return err
	}
	return nil
}

var _ Submitter = (*InlineSubmitter)(nil)
