package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/mocks"
	"github.com/phrazzld/cramdeck/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasterySummary(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	zoo := domain.Subject{ID: uuid.New(), Name: "Zoology"}
	art := domain.Subject{ID: uuid.New(), Name: "art"}
	c1 := domain.Flashcard{ID: uuid.New(), SubjectID: zoo.ID}
	c2 := domain.Flashcard{ID: uuid.New(), SubjectID: zoo.ID}
	c3 := domain.Flashcard{ID: uuid.New(), SubjectID: art.ID}

	mastery := mocks.NewMockMasteryStore()
	at := time.Now()
	for i := 0; i < 3; i++ {
		_, err := mastery.Record(ctx, user, c1.ID, true, at)
		require.NoError(t, err)
	}
	_, err := mastery.Record(ctx, user, c2.ID, false, at)
	require.NoError(t, err)
	// Another user's progress must not leak in.
	_, err = mastery.Record(ctx, uuid.New(), c3.ID, true, at)
	require.NoError(t, err)

	svc := service.NewMasteryService(mocks.NewMockSubjectStore(zoo, art),
		mocks.NewMockFlashcardStore(c1, c2, c3), mastery, 3, discardLogger())

	got, err := svc.Summary(ctx, user)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.SubjectMastery{SubjectID: art.ID, SubjectName: "art", TotalCards: 1, New: 1}, got[0])
	assert.Equal(t, domain.SubjectMastery{SubjectID: zoo.ID, SubjectName: "Zoology", TotalCards: 2, Mastered: 1, Learning: 1}, got[1])
	assert.Equal(t, 50, got[1].Percent())

	mastery.ListByUserFn = func(context.Context, uuid.UUID) (map[uuid.UUID]*domain.CardMastery, error) {
		return nil, errors.New("timeout")
	}
	_, err = svc.Summary(ctx, user)
	var svcErr *service.ServiceError
	assert.ErrorAs(t, err, &svcErr)
}
