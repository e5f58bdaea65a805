package study

import "errors"

var (
	// ErrNoCards is returned when a session is requested over an empty card set.
	// It is terminal for that selection; the caller must change the scope.
	ErrNoCards = errors.New("no cards available")

	// ErrDuplicateCard is returned by New when a card id appears twice. Each
	// card is visited once per round, so outcomes and scores are kept per id.
	ErrDuplicateCard = errors.New("deck contains the same card more than once")

	// ErrNotStarted is returned by Start when the session is already running or complete.
	ErrNotStarted = errors.New("session has already started")

	// ErrNotInProgress is returned by Flip and the mark operations outside a running round.
	ErrNotInProgress = errors.New("session is not in progress")

	// ErrNotComplete is returned by Score and ReviewMissed before the round ends.
	ErrNotComplete = errors.New("session round is not complete")

	// ErrNoMissedCards is returned by ReviewMissed after a perfect round.
	ErrNoMissedCards = errors.New("no missed cards to review")

	// ErrInvalidDeckSize is returned by SelectRandom for a non-positive size.
	ErrInvalidDeckSize = errors.New("deck size must be positive")
)
