// Package study implements the flashcard study session: a linear pass over a
// deck in which each card is marked correct or wrong, followed by optional
// review rounds restricted to the cards missed in the round before.
package study

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
)

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusComplete   Status = "complete"
)

// Outcome is a card's classification in the current round.
type Outcome string

const (
	OutcomeUnmarked Outcome = "unmarked"
	OutcomeCorrect  Outcome = "correct"
	OutcomeWrong    Outcome = "wrong"
)

type idSet map[uuid.UUID]struct{}

func (s idSet) clone() idSet {
	out := make(idSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Session is not safe for concurrent use; callers serialise access.
type Session struct {
	deck     []domain.Flashcard
	active   []domain.Flashcard
	position int
	flipped  bool

	correct    idSet
	wrong      idSet
	roundWrong idSet

	review bool
	status Status
}

// New builds a not-started session over cards. The slice is copied, so later
// changes by the caller do not leak into the session. Card ids must be
// unique.
func New(cards []domain.Flashcard) (*Session, error) {
	if len(cards) == 0 {
		return nil, ErrNoCards
	}
	seen := make(idSet, len(cards))
	for _, c := range cards {
		if _, ok := seen[c.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCard, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	deck := make([]domain.Flashcard, len(cards))
	copy(deck, cards)

	s := &Session{deck: deck}
	s.reset()
	return s, nil
}

func (s *Session) reset() {
	s.active = s.deck
	s.position = 0
	s.flipped = false
	s.correct = idSet{}
	s.wrong = idSet{}
	s.roundWrong = idSet{}
	s.review = false
	s.status = StatusNotStarted
}

// Start begins the first round.
func (s *Session) Start() error {
	if s.status != StatusNotStarted {
		return ErrNotStarted
	}
	s.position = 0
	s.flipped = false
	s.correct = idSet{}
	s.wrong = idSet{}
	s.status = StatusInProgress
	return nil
}

// Flip toggles which face of the current card is shown and returns the new state.
func (s *Session) Flip() (bool, error) {
	if s.status != StatusInProgress {
		return false, ErrNotInProgress
	}
	s.flipped = !s.flipped
	return s.flipped, nil
}

// MarkCorrect records the current card as answered correctly and advances.
// It returns the card that was marked.
func (s *Session) MarkCorrect() (domain.Flashcard, error) {
	if s.status != StatusInProgress {
		return domain.Flashcard{}, ErrNotInProgress
	}
	card := s.active[s.position]
	s.correct[card.ID] = struct{}{}
	delete(s.wrong, card.ID)
	s.advance()
	return card, nil
}

// MarkWrong records the current card as missed and advances. An earlier
// correct mark for the same id is kept; Result reports the card as wrong.
func (s *Session) MarkWrong() (domain.Flashcard, error) {
	if s.status != StatusInProgress {
		return domain.Flashcard{}, ErrNotInProgress
	}
	card := s.active[s.position]
	s.wrong[card.ID] = struct{}{}
	s.advance()
	return card, nil
}

func (s *Session) advance() {
	if s.position == len(s.active)-1 {
		s.roundWrong = s.wrong.clone()
		s.status = StatusComplete
		return
	}
	s.position++
	s.flipped = false
}

// ReviewMissed starts a review round over the cards missed in the round that
// just completed, in deck order.
func (s *Session) ReviewMissed() error {
	if s.status != StatusComplete {
		return ErrNotComplete
	}
	if len(s.roundWrong) == 0 {
		return ErrNoMissedCards
	}

	missed := make([]domain.Flashcard, 0, len(s.roundWrong))
	for _, c := range s.deck {
		if _, ok := s.roundWrong[c.ID]; ok {
			missed = append(missed, c)
		}
	}

	s.active = missed
	s.position = 0
	s.flipped = false
	s.correct = idSet{}
	s.wrong = idSet{}
	s.review = true
	s.status = StatusInProgress
	return nil
}

// Restart discards all progress and returns to the full deck, not started.
// It is legal in every state.
func (s *Session) Restart() {
	s.reset()
}

// Score reports the round just completed. Totals are always local to that
// round, so a review round over two cards scores out of two.
func (s *Session) Score() (Score, error) {
	if s.status != StatusComplete {
		return Score{}, ErrNotComplete
	}
	total := len(s.active)
	return Score{Correct: total - len(s.roundWrong), Total: total}, nil
}

// Score is the result of one round.
type Score struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Perfect reports whether nothing was missed.
func (sc Score) Perfect() bool {
	return sc.Correct == sc.Total
}

// Missed is the number of cards answered wrong.
func (sc Score) Missed() int {
	return sc.Total - sc.Correct
}

// Result classifies id within the current round. A wrong mark takes
// precedence over a correct one.
func (s *Session) Result(id uuid.UUID) Outcome {
	if _, ok := s.wrong[id]; ok {
		return OutcomeWrong
	}
	if _, ok := s.correct[id]; ok {
		return OutcomeCorrect
	}
	return OutcomeUnmarked
}

// Status returns the lifecycle state.
func (s *Session) Status() Status { return s.status }

// Position returns the zero-based index into the active cards.
func (s *Session) Position() int { return s.position }

// Flipped reports whether the back face is showing.
func (s *Session) Flipped() bool { return s.flipped }

// IsReviewRound reports whether the session is in a review pass.
func (s *Session) IsReviewRound() bool { return s.review }

// Current returns the card at the current position.
func (s *Session) Current() domain.Flashcard { return s.active[s.position] }

// ActiveCards returns a copy of the cards in the current round.
func (s *Session) ActiveCards() []domain.Flashcard {
	out := make([]domain.Flashcard, len(s.active))
	copy(out, s.active)
	return out
}

// Deck returns a copy of the full first-pass deck.
func (s *Session) Deck() []domain.Flashcard {
	out := make([]domain.Flashcard, len(s.deck))
	copy(out, s.deck)
	return out
}

// MissedIDs returns the ids missed in the last completed round, in deck order.
func (s *Session) MissedIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.roundWrong))
	for _, c := range s.deck {
		if _, ok := s.roundWrong[c.ID]; ok {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// Progress is the percentage of the round reached, counting the current card.
func (s *Session) Progress() int {
	return int(math.Round(float64(s.position+1) / float64(len(s.active)) * 100))
}
