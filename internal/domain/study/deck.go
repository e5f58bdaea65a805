package study

import (
	"math/rand/v2"

	"github.com/phrazzld/cramdeck/internal/domain"
)

// DefaultRandomDeckSize is the number of cards drawn for a random session.
const DefaultRandomDeckSize = 25

// IntN returns a uniform integer in [0, n). rand.IntN satisfies it.
type IntN func(n int) int

// SelectRandom shuffles a copy of pool with Fisher-Yates and returns the
// first size cards, or all of them when the pool is smaller. The pool is
// left untouched. A nil intn uses math/rand/v2.
func SelectRandom(pool []domain.Flashcard, size int, intn IntN) ([]domain.Flashcard, error) {
	if size <= 0 {
		return nil, ErrInvalidDeckSize
	}
	if len(pool) == 0 {
		return nil, ErrNoCards
	}
	if intn == nil {
		intn = rand.IntN
	}

	shuffled := make([]domain.Flashcard, len(pool))
	copy(shuffled, pool)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	if len(shuffled) > size {
		shuffled = shuffled[:size]
	}
	return shuffled, nil
}
