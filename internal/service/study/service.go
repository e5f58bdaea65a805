package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	studysession "github.com/phrazzld/cramdeck/internal/domain/study"
	"github.com/phrazzld/cramdeck/internal/events"
	"github.com/phrazzld/cramdeck/internal/redact"
	"github.com/phrazzld/cramdeck/internal/store"
	"github.com/phrazzld/cramdeck/internal/task"
)

var (
	// ErrNoSession is returned when the user has no active session.
	ErrNoSession = errors.New("no active study session")
	// ErrSuperseded is returned to a session request that lost to a newer
	// selection by the same user.
	ErrSuperseded = errors.New("superseded by a newer selection")
	// ErrNoFlashcards is returned when a scope selects no cards.
	ErrNoFlashcards = errors.New("no flashcards found for this selection")
)

// CardSource lists flashcards.
type CardSource interface {
	List(ctx context.Context, filter store.FlashcardFilter) ([]domain.Flashcard, error)
}

// SubtopicSource lists a subject's subtopics.
type SubtopicSource interface {
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]domain.Subtopic, error)
}

// MissedList reads and clears a user's missed cards.
type MissedList interface {
	List(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// Action is a state change requested by the client.
type Action string

const (
	ActionStart   Action = "start"
	ActionFlip    Action = "flip"
	ActionCorrect Action = "correct"
	ActionWrong   Action = "wrong"
	ActionReview  Action = "review"
	ActionRestart Action = "restart"
)

// ParseAction accepts the names above.
func ParseAction(s string) (Action, bool) {
	a := Action(s)
	switch a {
	case ActionStart, ActionFlip, ActionCorrect, ActionWrong, ActionReview, ActionRestart:
		return a, true
	}
	return "", false
}

// Config tunes deck construction.
type Config struct {
	RandomDeckSize int
	// IntN overrides the random source; nil uses math/rand/v2.
	IntN studysession.IntN
	// Now overrides the clock for mark timestamps and idle tracking.
	Now func() time.Time
	// IdleTimeout is how long a session survives without a request.
	IdleTimeout time.Duration
}

// DefaultIdleTimeout applies when Config.IdleTimeout is zero.
const DefaultIdleTimeout = 2 * time.Hour

// slot holds one user's session. generation is bumped by every new
// selection; a load that finishes with a stale ticket is discarded.
type slot struct {
	mu         sync.Mutex
	generation uint64
	session    *studysession.Session
	scope      Scope

	// guarded by Service.mu
	lastUsed time.Time
}

// Service manages one session per user.
type Service struct {
	cards     CardSource
	subtopics SubtopicSource
	missed    MissedList
	emitter   events.EventEmitter
	cfg       Config
	logger    *slog.Logger

	mu    sync.Mutex
	slots map[uuid.UUID]*slot
}

// NewService creates a Service. missed may be nil, which disables the
// missed mode and the missed list.
func NewService(
	cards CardSource,
	subtopics SubtopicSource,
	missed MissedList,
	emitter events.EventEmitter,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if cfg.RandomDeckSize <= 0 {
		cfg.RandomDeckSize = studysession.DefaultRandomDeckSize
	}
	if cfg.IntN == nil {
		cfg.IntN = rand.IntN
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &Service{
		cards:     cards,
		subtopics: subtopics,
		missed:    missed,
		emitter:   emitter,
		cfg:       cfg,
		logger:    logger.With("component", "study_service"),
		slots:     make(map[uuid.UUID]*slot),
	}
}

func (s *Service) userSlot(userID uuid.UUID, create bool) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[userID]
	if !ok && create {
		sl = &slot{}
		s.slots[userID] = sl
	}
	if sl != nil {
		sl.lastUsed = s.cfg.Now()
	}
	return sl
}

// NewSession loads the scope's cards and installs a not-started session,
// replacing any existing one. When a newer NewSession by the same user
// starts before this one finishes loading, this one returns ErrSuperseded.
func (s *Service) NewSession(ctx context.Context, userID uuid.UUID, scope Scope) (View, error) {
	if err := scope.Validate(); err != nil {
		return View{}, err
	}

	sl := s.userSlot(userID, true)
	sl.mu.Lock()
	sl.generation++
	ticket := sl.generation
	sl.mu.Unlock()

	deck, err := s.loadDeck(ctx, userID, scope)
	if err != nil {
		return View{}, err
	}
	session, err := studysession.New(deck)
	if errors.Is(err, studysession.ErrNoCards) {
		return View{}, ErrNoFlashcards
	}
	if err != nil {
		return View{}, err
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.generation != ticket {
		s.logger.Debug("discarding superseded deck", "user_id", userID, "mode", scope.Mode)
		return View{}, ErrSuperseded
	}
	sl.session = session
	sl.scope = scope
	s.logger.Info("study session created", "user_id", userID, "mode", scope.Mode, "cards", len(deck))
	return newView(session, scope), nil
}

func (s *Service) loadDeck(ctx context.Context, userID uuid.UUID, scope Scope) ([]domain.Flashcard, error) {
	switch scope.Mode {
	case ModeSubtopic:
		cards, err := s.cards.List(ctx, store.FlashcardFilter{SubtopicID: scope.SubtopicID})
		if err != nil {
			return nil, fmt.Errorf("failed to load subtopic cards: %w", err)
		}
		slices.SortFunc(cards, domain.CompareFlashcards)
		return cards, nil

	case ModeSubject:
		return s.subjectDeck(ctx, scope.SubjectID)

	case ModeRandom:
		pool, err := s.cards.List(ctx, store.FlashcardFilter{SubjectID: scope.SubjectID})
		if err != nil {
			return nil, fmt.Errorf("failed to load cards: %w", err)
		}
		deck, err := studysession.SelectRandom(pool, s.cfg.RandomDeckSize, s.cfg.IntN)
		if errors.Is(err, studysession.ErrNoCards) {
			return nil, ErrNoFlashcards
		}
		return deck, err

	case ModeMissed:
		return s.Missed(ctx, userID, scope.SubjectID)
	}
	return nil, ErrInvalidScope
}

// subjectDeck orders cards by subtopic position, then by card position.
func (s *Service) subjectDeck(ctx context.Context, subjectID uuid.UUID) ([]domain.Flashcard, error) {
	cards, err := s.cards.List(ctx, store.FlashcardFilter{SubjectID: subjectID})
	if err != nil {
		return nil, fmt.Errorf("failed to load subject cards: %w", err)
	}
	subtopics, err := s.subtopics.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subtopics: %w", err)
	}
	slices.SortFunc(subtopics, domain.CompareSubtopics)
	rank := make(map[uuid.UUID]int, len(subtopics))
	for i, st := range subtopics {
		rank[st.ID] = i
	}

	slices.SortStableFunc(cards, func(a, b domain.Flashcard) int {
		ra, okA := rank[a.SubtopicID]
		rb, okB := rank[b.SubtopicID]
		switch {
		case okA && !okB:
			return -1
		case !okA && okB:
			return 1
		case ra != rb:
			return ra - rb
		}
		return domain.CompareFlashcards(a, b)
	})
	return cards, nil
}

// View returns the user's session.
func (s *Service) View(userID uuid.UUID) (View, error) {
	sl := s.userSlot(userID, false)
	if sl == nil {
		return View{}, ErrNoSession
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.session == nil {
		return View{}, ErrNoSession
	}
	return newView(sl.session, sl.scope), nil
}

// Apply performs action on the user's session. Marks are handed to the
// background runner after the session has advanced; a failure to queue is
// logged and never undoes the mark.
func (s *Service) Apply(ctx context.Context, userID uuid.UUID, action Action) (View, error) {
	sl := s.userSlot(userID, false)
	if sl == nil {
		return View{}, ErrNoSession
	}

	sl.mu.Lock()
	if sl.session == nil {
		sl.mu.Unlock()
		return View{}, ErrNoSession
	}
	session := sl.session
	var (
		marked  domain.Flashcard
		correct bool
		err     error
	)
	switch action {
	case ActionStart:
		err = session.Start()
	case ActionFlip:
		_, err = session.Flip()
	case ActionCorrect:
		marked, err = session.MarkCorrect()
		correct = true
	case ActionWrong:
		marked, err = session.MarkWrong()
	case ActionReview:
		err = session.ReviewMissed()
	case ActionRestart:
		session.Restart()
	default:
		err = fmt.Errorf("unknown action %q", action)
	}
	view := newView(session, sl.scope)
	sl.mu.Unlock()

	if err != nil {
		return View{}, err
	}
	if marked.ID != uuid.Nil {
		s.recordMark(ctx, userID, marked.ID, correct)
	}
	return view, nil
}

func (s *Service) recordMark(ctx context.Context, userID, cardID uuid.UUID, correct bool) {
	payload := task.StudyMarkPayload{
		UserID:   userID,
		CardID:   cardID,
		Correct:  correct,
		MarkedAt: s.cfg.Now().UTC(),
	}
	if _, err := events.Emit(ctx, s.emitter, events.TypeStudyMark, payload); err != nil {
		s.logger.Warn("failed to queue study mark",
			"user_id", userID,
			"card_id", cardID,
			"error", redact.Error(err))
	}
}

// End discards the user's session.
func (s *Service) End(userID uuid.UUID) error {
	s.mu.Lock()
	sl, ok := s.slots[userID]
	if ok {
		delete(s.slots, userID)
	}
	s.mu.Unlock()
	if !ok {
		return ErrNoSession
	}
	sl.discard()
	return nil
}

// discard detaches sl. Any in-flight load for it is dropped as superseded.
func (sl *slot) discard() {
	sl.mu.Lock()
	sl.generation++
	sl.session = nil
	sl.mu.Unlock()
}

// EvictIdle drops every session not touched within the idle timeout of now
// and returns how many were dropped.
func (s *Service) EvictIdle(now time.Time) int {
	s.mu.Lock()
	var idle []*slot
	for userID, sl := range s.slots {
		if now.Sub(sl.lastUsed) > s.cfg.IdleTimeout {
			idle = append(idle, sl)
			delete(s.slots, userID)
		}
	}
	s.mu.Unlock()

	for _, sl := range idle {
		sl.discard()
	}
	if len(idle) > 0 {
		s.logger.Info("evicted idle study sessions", "count", len(idle))
	}
	return len(idle)
}

// RunEviction calls EvictIdle every interval until ctx is canceled.
func (s *Service) RunEviction(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvictIdle(s.cfg.Now())
		}
	}
}

// Missed returns the user's missed cards, oldest miss first, optionally
// limited to one subject. Ids whose cards no longer exist are skipped.
func (s *Service) Missed(ctx context.Context, userID, subjectID uuid.UUID) ([]domain.Flashcard, error) {
	if s.missed == nil {
		return nil, nil
	}
	ids, err := s.missed.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load missed cards: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	cards, err := s.cards.List(ctx, store.FlashcardFilter{SubjectID: subjectID})
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}
	byID := make(map[uuid.UUID]domain.Flashcard, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}
	out := make([]domain.Flashcard, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// ClearMissed empties the user's missed list.
func (s *Service) ClearMissed(ctx context.Context, userID uuid.UUID) error {
	if s.missed == nil {
		return nil
	}
	if err := s.missed.Clear(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear missed cards: %w", err)
	}
	return nil
}
