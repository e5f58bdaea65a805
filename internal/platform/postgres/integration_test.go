package postgres

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDatabaseEnv names a disposable database; its schema is reset.
const testDatabaseEnv = "CRAM_TEST_DATABASE_URL"

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv(testDatabaseEnv)
	if url == "" {
		t.Skipf("%s not set, skipping integration test", testDatabaseEnv)
	}

	ctx := context.Background()
	db, err := Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, Migrate(ctx, db, "reset", quiet))
	require.NoError(t, Migrate(ctx, db, "up", quiet))
	return db
}

func TestIntegrationCatalogAndMastery(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	caps := NewSchemaCapabilities(db, nil)
	got, err := caps.Capabilities(ctx)
	require.NoError(t, err)
	require.True(t, got.DisplayOrder)

	subjects := NewPostgresSubjectStore(db, nil)
	subtopics := NewPostgresSubtopicStore(db, caps, nil)
	cards := NewPostgresFlashcardStore(db, caps, nil)
	users := NewPostgresUserStore(db, 4, nil)
	mastery := NewPostgresMasteryStore(db, nil)

	subject, err := domain.NewSubject("Biology")
	require.NoError(t, err)
	require.NoError(t, subjects.Create(ctx, subject))

	dup, err := domain.NewSubject("biology")
	require.NoError(t, err)
	assert.ErrorIs(t, subjects.Create(ctx, dup), store.ErrSubjectNameExists)

	var subtopic *domain.Subtopic
	err = store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		subtopic, err = domain.NewSubtopic(subject.ID, "Cells")
		if err != nil {
			return err
		}
		subtopic.DisplayOrder = domain.Ordered(0)
		return subtopics.WithTx(tx).Create(ctx, subtopic)
	})
	require.NoError(t, err)

	var ids []uuid.UUID
	for i, front := range []string{"third", "first", "second"} {
		c, err := domain.NewFlashcard(subject.ID, subtopic.ID, front, "back")
		require.NoError(t, err)
		c.CreatedAt = c.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, cards.Create(ctx, c))
		ids = append(ids, c.ID)
	}
	require.NoError(t, cards.SetDisplayOrder(ctx, ids[1], 0))
	require.NoError(t, cards.SetDisplayOrder(ctx, ids[2], 1))

	listed, err := cards.List(ctx, store.FlashcardFilter{SubtopicID: subtopic.ID})
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{listed[0].Front, listed[1].Front, listed[2].Front})

	user, err := domain.NewUser("learner@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, user))

	now := time.Now().UTC().Truncate(time.Microsecond)
	_, err = mastery.Record(ctx, user.ID, ids[0], true, now)
	require.NoError(t, err)
	m, err := mastery.Record(ctx, user.ID, ids[0], true, now)
	require.NoError(t, err)
	assert.Equal(t, 2, m.ConsecutiveCorrect)
	m, err = mastery.Record(ctx, user.ID, ids[0], false, now)
	require.NoError(t, err)
	assert.Equal(t, 0, m.ConsecutiveCorrect)
	assert.Equal(t, 1, m.TimesWrong)

	// A mark applied late does not move the last studied time backwards.
	m, err = mastery.Record(ctx, user.ID, ids[0], false, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, m.LastStudiedAt.Equal(now), "got %s", m.LastStudiedAt)

	records, err := mastery.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	require.NoError(t, subjects.Delete(ctx, subject.ID))
	_, err = cards.GetByID(ctx, ids[0])
	assert.ErrorIs(t, err, store.ErrFlashcardNotFound, "cards cascade with their subject")
}

func TestIntegrationCapabilitiesBeforeOrderMigration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, Migrate(ctx, db, "down", quiet))
	t.Cleanup(func() { _ = Migrate(ctx, db, "up", quiet) })

	got, err := NewSchemaCapabilities(db, nil).Capabilities(ctx)
	require.NoError(t, err)
	assert.False(t, got.DisplayOrder)
}
