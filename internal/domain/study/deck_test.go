package study

import (
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectRandom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		poolSize int
		want     int
	}{
		{name: "larger pool is truncated", poolSize: 100, want: DefaultRandomDeckSize},
		{name: "exact pool", poolSize: 25, want: 25},
		{name: "small pool is used whole", poolSize: 7, want: 7},
		{name: "single card", poolSize: 1, want: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			pool := makeCards(tc.poolSize)
			inPool := make(map[uuid.UUID]bool, len(pool))
			for _, c := range pool {
				inPool[c.ID] = true
			}

			rng := rand.New(rand.NewPCG(1, uint64(tc.poolSize)))
			for round := 0; round < 20; round++ {
				deck, err := SelectRandom(pool, DefaultRandomDeckSize, rng.IntN)
				require.NoError(t, err)
				require.Len(t, deck, tc.want)

				seen := make(map[uuid.UUID]bool, len(deck))
				for _, c := range deck {
					assert.True(t, inPool[c.ID], "card drawn from outside the pool")
					assert.False(t, seen[c.ID], "duplicate card in deck")
					seen[c.ID] = true
				}
			}
		})
	}
}

func TestSelectRandomLeavesPoolUntouched(t *testing.T) {
	t.Parallel()
	pool := makeCards(30)
	before := ids(pool)

	_, err := SelectRandom(pool, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, before, ids(pool))
}

func TestSelectRandomUsesEveryPosition(t *testing.T) {
	t.Parallel()
	// Each card should be able to land first; a biased shuffle that never
	// swaps the head would fail this.
	pool := makeCards(5)
	rng := rand.New(rand.NewPCG(42, 7))
	firsts := map[uuid.UUID]int{}
	for i := 0; i < 2000; i++ {
		deck, err := SelectRandom(pool, 5, rng.IntN)
		require.NoError(t, err)
		firsts[deck[0].ID]++
	}
	require.Len(t, firsts, 5)
	for _, n := range firsts {
		assert.InDelta(t, 400, n, 120)
	}
}

func TestSelectRandomErrors(t *testing.T) {
	t.Parallel()

	_, err := SelectRandom(nil, 25, nil)
	assert.ErrorIs(t, err, ErrNoCards)

	_, err = SelectRandom([]domain.Flashcard{{ID: uuid.New()}}, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidDeckSize)
}
