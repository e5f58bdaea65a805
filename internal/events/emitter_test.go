package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	newEvent := func(t *testing.T) *TaskRequestEvent {
		event, err := NewTaskRequestEvent(TypeStudyMark, map[string]string{"key": "value"})
		require.NoError(t, err)
		return event
	}

	t.Run("no handlers", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)
		assert.NoError(t, emitter.EmitEvent(context.Background(), newEvent(t)))
	})

	t.Run("every handler receives the event", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)
		h1, h2 := &MockEventHandler{}, &MockEventHandler{}
		emitter.RegisterHandler(h1)
		emitter.RegisterHandler(h2)

		event := newEvent(t)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Equal(t, 1, h1.HandledCount)
		assert.Equal(t, 1, h2.HandledCount)
		assert.Same(t, event, h1.LastEvent)
		assert.Same(t, event, h2.LastEvent)
	})

	t.Run("errors are joined and delivery continues", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)
		errA, errB := errors.New("handler a"), errors.New("handler b")
		failA := &MockEventHandler{HandlerError: errA}
		ok := &MockEventHandler{}
		failB := &MockEventHandler{HandlerError: errB}
		emitter.RegisterHandler(failA)
		emitter.RegisterHandler(ok)
		emitter.RegisterHandler(failB)

		err := emitter.EmitEvent(context.Background(), newEvent(t))
		assert.ErrorIs(t, err, errA)
		assert.ErrorIs(t, err, errB)
		assert.Equal(t, 1, ok.HandledCount)
		assert.Equal(t, 1, failB.HandledCount)
	})
}
