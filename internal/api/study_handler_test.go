package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	studysession "github.com/phrazzld/cramdeck/internal/domain/study"
	"github.com/phrazzld/cramdeck/internal/events"
	"github.com/phrazzld/cramdeck/internal/mocks"
	"github.com/phrazzld/cramdeck/internal/service"
	"github.com/phrazzld/cramdeck/internal/service/study"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type studyFixture struct {
	subjects  *mocks.MockSubjectStore
	subtopics *mocks.MockSubtopicStore
	cards     *mocks.MockFlashcardStore
	missed    *mocks.MockMissedTracker
	mastery   *mocks.MockMasteryStore
	emitter   *mocks.MockEventEmitter
	handler   *StudyHandler
}

func newStudyFixture(t *testing.T) *studyFixture {
	t.Helper()
	f := &studyFixture{
		subjects:  mocks.NewMockSubjectStore(),
		subtopics: mocks.NewMockSubtopicStore(),
		cards:     mocks.NewMockFlashcardStore(),
		missed:    mocks.NewMockMissedTracker(),
		mastery:   mocks.NewMockMasteryStore(),
		emitter:   &mocks.MockEventEmitter{},
	}
	sessions := study.NewService(f.cards, f.subtopics, f.missed, f.emitter, study.Config{}, discardLogger())
	masterySvc := service.NewMasteryService(f.subjects, f.cards, f.mastery, 2, discardLogger())
	f.handler = NewStudyHandler(sessions, masterySvc, discardLogger())
	return f
}

func (f *studyFixture) seed() (domain.Subject, domain.Subtopic, []domain.Flashcard) {
	subject := domain.Subject{ID: uuid.New(), Name: "Biology"}
	f.subjects.Subjects[subject.ID] = subject
	st := domain.Subtopic{ID: uuid.New(), SubjectID: subject.ID, Name: "Cells", DisplayOrder: domain.Ordered(0)}
	f.subtopics.Subtopics[st.ID] = st

	var cards []domain.Flashcard
	for i, front := range []string{"Mitochondria", "Ribosome"} {
		c := domain.Flashcard{ID: uuid.New(), SubjectID: subject.ID, SubtopicID: st.ID,
			Front: front, Back: front + " answer", DisplayOrder: domain.Ordered(i)}
		f.cards.Cards[c.ID] = c
		cards = append(cards, c)
	}
	return subject, st, cards
}

func TestStudySessionFlow(t *testing.T) {
	f := newStudyFixture(t)
	_, st, cards := f.seed()
	user := uuid.New()

	act := func(action string) study.View {
		t.Helper()
		w := serve(t, f.handler.ApplyAction, testRequest{method: http.MethodPost, userID: user,
			params: map[string]string{"action": action}})
		require.Equal(t, http.StatusOK, w.Code, "%s: %s", action, w.Body.String())
		return decode[study.View](t, w)
	}

	w := serve(t, f.handler.GetSession, testRequest{userID: user})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(t, f.handler.CreateSession, testRequest{method: http.MethodPost, userID: user,
		body: StudySessionRequest{Mode: "subtopic", SubtopicID: st.ID}})
	require.Equal(t, http.StatusCreated, w.Code)
	view := decode[study.View](t, w)
	assert.Equal(t, studysession.StatusNotStarted, view.Status)
	assert.Equal(t, 2, view.CardCount)

	w = serve(t, f.handler.ApplyAction, testRequest{method: http.MethodPost, userID: user,
		params: map[string]string{"action": "flip"}})
	assert.Equal(t, http.StatusConflict, w.Code, "cannot flip before starting")

	view = act("start")
	require.NotNil(t, view.Card)
	assert.Equal(t, "front", view.Card.Side)
	assert.Equal(t, "Mitochondria", view.Card.Text)
	assert.Equal(t, 1, view.CardNumber)
	assert.Equal(t, 50, view.Progress)

	view = act("flip")
	assert.Equal(t, "back", view.Card.Side)
	assert.Equal(t, "Mitochondria answer", view.Card.Text)

	view = act("correct")
	assert.Equal(t, 2, view.CardNumber)
	assert.Equal(t, "front", view.Card.Side)
	assert.Equal(t, 100, view.Progress)

	view = act("wrong")
	assert.Equal(t, studysession.StatusComplete, view.Status)
	require.NotNil(t, view.Result)
	assert.Equal(t, study.Result{Correct: 1, Total: 2, Missed: 1, Perfect: false}, *view.Result)

	view = act("review")
	assert.True(t, view.ReviewRound)
	assert.Equal(t, 1, view.CardCount)
	assert.Equal(t, cards[1].ID, view.Card.CardID)

	w = serve(t, f.handler.ApplyAction, testRequest{method: http.MethodPost, userID: user,
		params: map[string]string{"action": "skip"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	emitted := f.emitter.Emitted()
	require.Len(t, emitted, 2)
	for _, e := range emitted {
		assert.Equal(t, events.TypeStudyMark, e.Type)
	}

	w = serve(t, f.handler.EndSession, testRequest{method: http.MethodDelete, userID: user})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = serve(t, f.handler.GetSession, testRequest{userID: user})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSessionErrors(t *testing.T) {
	f := newStudyFixture(t)
	subject, _, _ := f.seed()
	empty := domain.Subtopic{ID: uuid.New(), SubjectID: subject.ID, Name: "Empty"}
	f.subtopics.Subtopics[empty.ID] = empty

	tests := []struct {
		name       string
		body       StudySessionRequest
		anonymous  bool
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "no cards in selection",
			body:       StudySessionRequest{Mode: "subtopic", SubtopicID: empty.ID},
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "No flashcards found for this selection.",
		},
		{
			name:       "subject mode without subject",
			body:       StudySessionRequest{Mode: "subject"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid study selection",
		},
		{
			name:       "unknown mode",
			body:       StudySessionRequest{Mode: "cram"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missed mode with nothing missed",
			body:       StudySessionRequest{Mode: "missed"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unauthenticated",
			body:       StudySessionRequest{Mode: "random"},
			anonymous:  true,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			userID := uuid.New()
			if tc.anonymous {
				userID = uuid.Nil
			}
			w := serve(t, f.handler.CreateSession, testRequest{method: http.MethodPost, userID: userID, body: tc.body})
			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, errorMessage(t, w))
			}
		})
	}
}

func TestSubjectAndRandomSessions(t *testing.T) {
	f := newStudyFixture(t)
	subject, _, _ := f.seed()
	user := uuid.New()

	w := serve(t, f.handler.CreateSession, testRequest{method: http.MethodPost, userID: user,
		body: StudySessionRequest{Mode: "subject", SubjectID: subject.ID}})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2, decode[study.View](t, w).CardCount)

	w = serve(t, f.handler.CreateSession, testRequest{method: http.MethodPost, userID: user,
		body: StudySessionRequest{Mode: "random"}})
	require.Equal(t, http.StatusCreated, w.Code)
	view := decode[study.View](t, w)
	assert.Equal(t, study.ModeRandom, view.Scope.Mode)
	assert.Equal(t, 2, view.CardCount)
}

func TestMissedEndpoints(t *testing.T) {
	f := newStudyFixture(t)
	_, _, cards := f.seed()
	user := uuid.New()
	ctx := context.Background()
	require.NoError(t, f.missed.Add(ctx, user, cards[1].ID))
	require.NoError(t, f.missed.Add(ctx, user, uuid.New()))

	w := serve(t, f.handler.ListMissed, testRequest{userID: user})
	require.Equal(t, http.StatusOK, w.Code)
	missed := decode[[]FlashcardResponse](t, w)
	require.Len(t, missed, 1, "deleted cards are skipped")
	assert.Equal(t, cards[1].ID, missed[0].ID)

	w = serve(t, f.handler.ListMissed, testRequest{userID: user, target: "/study/missed?subject_id=" + uuid.NewString()})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]FlashcardResponse](t, w))

	w = serve(t, f.handler.CreateSession, testRequest{method: http.MethodPost, userID: user,
		body: StudySessionRequest{Mode: "missed"}})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, decode[study.View](t, w).CardCount)

	w = serve(t, f.handler.ClearMissed, testRequest{method: http.MethodDelete, userID: user})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = serve(t, f.handler.ListMissed, testRequest{userID: user})
	assert.Empty(t, decode[[]FlashcardResponse](t, w))
}

func TestMasteryEndpoint(t *testing.T) {
	f := newStudyFixture(t)
	subject, _, cards := f.seed()
	user := uuid.New()
	ctx := context.Background()
	now := time.Now()
	for i := 0; i < 2; i++ {
		_, err := f.mastery.Record(ctx, user, cards[0].ID, true, now)
		require.NoError(t, err)
	}

	w := serve(t, f.handler.Mastery, testRequest{userID: user})

	require.Equal(t, http.StatusOK, w.Code)
	rows := decode[[]MasteryResponse](t, w)
	require.Len(t, rows, 1)
	assert.Equal(t, subject.ID, rows[0].SubjectID)
	assert.Equal(t, 2, rows[0].TotalCards)
	assert.Equal(t, 1, rows[0].Mastered)
	assert.Equal(t, 1, rows[0].New)
	assert.Equal(t, 50, rows[0].Percent)
}
