package task

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMasteryRecorder struct {
	RecordFn func(ctx context.Context, userID, cardID uuid.UUID, correct bool, at time.Time) (*domain.CardMastery, error)
}

func (m *mockMasteryRecorder) Record(ctx context.Context, userID, cardID uuid.UUID, correct bool, at time.Time) (*domain.CardMastery, error) {
	return m.RecordFn(ctx, userID, cardID, correct, at)
}

type mockMissedTracker struct {
	Added, Removed []uuid.UUID
	Err            error
}

func (m *mockMissedTracker) Add(_ context.Context, _, cardID uuid.UUID) error {
	m.Added = append(m.Added, cardID)
	return m.Err
}

func (m *mockMissedTracker) Remove(_ context.Context, _, cardID uuid.UUID) error {
	m.Removed = append(m.Removed, cardID)
	return m.Err
}

func recordingMastery(calls *[]bool) *mockMasteryRecorder {
	return &mockMasteryRecorder{
		RecordFn: func(_ context.Context, userID, cardID uuid.UUID, correct bool, at time.Time) (*domain.CardMastery, error) {
			*calls = append(*calls, correct)
			m := domain.NewCardMastery(userID, cardID)
			m.Record(correct, at)
			return m, nil
		},
	}
}

func TestStudyMarkTask_Execute(t *testing.T) {
	t.Parallel()
	user, card := uuid.New(), uuid.New()
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		correct     bool
		wantAdded   int
		wantRemoved int
	}{
		{name: "correct clears missed", correct: true, wantRemoved: 1},
		{name: "wrong adds missed", correct: false, wantAdded: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var calls []bool
			tracker := &mockMissedTracker{}
			task, err := NewStudyMarkTask(uuid.New(),
				StudyMarkPayload{UserID: user, CardID: card, Correct: tc.correct, MarkedAt: at},
				recordingMastery(&calls), tracker, testLogger())
			require.NoError(t, err)
			assert.Equal(t, TaskStatusPending, task.Status())

			require.NoError(t, task.Execute(context.Background()))
			assert.Equal(t, TaskStatusCompleted, task.Status())
			assert.Equal(t, []bool{tc.correct}, calls)
			assert.Len(t, tracker.Added, tc.wantAdded)
			assert.Len(t, tracker.Removed, tc.wantRemoved)
		})
	}
}

func TestStudyMarkTask_Failures(t *testing.T) {
	t.Parallel()
	p := StudyMarkPayload{UserID: uuid.New(), CardID: uuid.New(), Correct: true}

	t.Run("mastery error", func(t *testing.T) {
		t.Parallel()
		mastery := &mockMasteryRecorder{RecordFn: func(context.Context, uuid.UUID, uuid.UUID, bool, time.Time) (*domain.CardMastery, error) {
			return nil, errors.New("db down")
		}}
		tracker := &mockMissedTracker{}
		task, err := NewStudyMarkTask(uuid.New(), p, mastery, tracker, testLogger())
		require.NoError(t, err)

		err = task.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to record mastery")
		assert.Equal(t, TaskStatusFailed, task.Status())
		assert.Empty(t, tracker.Removed)
	})

	t.Run("tracker error", func(t *testing.T) {
		t.Parallel()
		var calls []bool
		task, err := NewStudyMarkTask(uuid.New(), p, recordingMastery(&calls),
			&mockMissedTracker{Err: errors.New("redis down")}, testLogger())
		require.NoError(t, err)

		err = task.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update missed cards")
	})

	t.Run("no tracker", func(t *testing.T) {
		t.Parallel()
		var calls []bool
		task, err := NewStudyMarkTask(uuid.New(), p, recordingMastery(&calls), nil, testLogger())
		require.NoError(t, err)
		assert.NoError(t, task.Execute(context.Background()))
	})

	t.Run("invalid payload", func(t *testing.T) {
		t.Parallel()
		var calls []bool
		_, err := NewStudyMarkTask(uuid.New(), StudyMarkPayload{CardID: uuid.New()}, recordingMastery(&calls), nil, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidID)
	})
}

func TestStudyMarkBuilder_RoundTrip(t *testing.T) {
	t.Parallel()
	var calls []bool
	build := StudyMarkBuilder(recordingMastery(&calls), nil, testLogger())
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	original, err := NewStudyMarkTask(uuid.New(),
		StudyMarkPayload{UserID: uuid.New(), CardID: uuid.New(), Correct: false, MarkedAt: at},
		recordingMastery(&calls), nil, testLogger())
	require.NoError(t, err)

	rebuilt, err := build(original.ID(), original.Payload())
	require.NoError(t, err)
	assert.Equal(t, TaskTypeStudyMark, rebuilt.Type())
	assert.JSONEq(t, string(original.Payload()), string(rebuilt.Payload()))

	_, err = build(uuid.New(), []byte("not json"))
	assert.Error(t, err)

	var p StudyMarkPayload
	require.NoError(t, json.Unmarshal(rebuilt.Payload(), &p))
	assert.True(t, p.MarkedAt.Equal(at))
}

// missedSet is a goroutine-safe MissedTracker that keeps the live set.
type missedSet struct {
	mu  sync.Mutex
	ids map[uuid.UUID]bool
}

func (s *missedSet) Add(_ context.Context, _, cardID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[cardID] = true
	return nil
}

func (s *missedSet) Remove(_ context.Context, _, cardID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, cardID)
	return nil
}

func TestStudyMarks_LaterMarkWinsOnRunner(t *testing.T) {
	t.Parallel()
	user, card := uuid.New(), uuid.New()
	missed := &missedSet{ids: map[uuid.UUID]bool{}}

	var mu sync.Mutex
	var streak int
	mastery := &mockMasteryRecorder{
		RecordFn: func(_ context.Context, userID, cardID uuid.UUID, correct bool, at time.Time) (*domain.CardMastery, error) {
			if !correct {
				time.Sleep(100 * time.Millisecond)
			}
			mu.Lock()
			defer mu.Unlock()
			if correct {
				streak++
			} else {
				streak = 0
			}
			m := domain.NewCardMastery(userID, cardID)
			m.ConsecutiveCorrect = streak
			return m, nil
		},
	}

	store := NewMockTaskStore()
	runner := NewTaskRunner(store, nil, DefaultTaskRunnerConfig(), testLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	wrong, err := NewStudyMarkTask(uuid.New(), StudyMarkPayload{UserID: user, CardID: card}, mastery, missed, testLogger())
	require.NoError(t, err)
	correct, err := NewStudyMarkTask(uuid.New(), StudyMarkPayload{UserID: user, CardID: card, Correct: true}, mastery, missed, testLogger())
	require.NoError(t, err)

	require.NoError(t, runner.Submit(context.Background(), wrong))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, runner.Submit(context.Background(), correct))
	waitForStatus(t, store, correct.ID(), TaskStatusCompleted)

	missed.mu.Lock()
	assert.Empty(t, missed.ids, "a correct mark after a wrong one clears the card")
	missed.mu.Unlock()
	mu.Lock()
	assert.Equal(t, 1, streak)
	mu.Unlock()
}
