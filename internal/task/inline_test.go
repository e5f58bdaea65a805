package task

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestInlineSubmitter(t *testing.T) {
	t.Parallel()
	s := NewInlineSubmitter(testLogger())

	ok := NewMockTask(uuid.New(), MockTaskType, nil)
	assert.NoError(t, s.Submit(context.Background(), ok))
	assert.Equal(t, TaskStatusCompleted, ok.Status())

	boom := errors.New("boom")
	failing := NewMockTask(uuid.New(), MockTaskType, nil)
	failing.ExecuteFn = func(context.Context) error { return boom }
	assert.ErrorIs(t, s.Submit(context.Background(), failing), boom)
	assert.Equal(t, TaskStatusFailed, failing.Status())
}
