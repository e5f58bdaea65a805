package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/cramdeck/internal/store"
)

const displayOrderColumnsQuery = `
	SELECT COUNT(*)
	FROM information_schema.columns
	WHERE table_schema = current_schema()
	  AND column_name = 'display_order'
	  AND table_name IN ('subtopics', 'flashcards')
`

// SchemaCapabilities reads optional schema features from information_schema
// on first use and caches the answer. Failed checks are not cached.
type SchemaCapabilities struct {
	db     store.DBTX
	logger *slog.Logger

	mu     sync.Mutex
	loaded bool
	caps   store.Capabilities
}

// NewSchemaCapabilities creates a lazy capability check.
func NewSchemaCapabilities(db store.DBTX, logger *slog.Logger) *SchemaCapabilities {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SchemaCapabilities{db: db, logger: logger.With(slog.String("component", "schema_capabilities"))}
}

var _ store.CapabilityProvider = (*SchemaCapabilities)(nil)

// Capabilities implements store.CapabilityProvider.
func (c *SchemaCapabilities) Capabilities(ctx context.Context) (store.Capabilities, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.caps, nil
	}

	var columns int
	if err := c.db.QueryRowContext(ctx, displayOrderColumnsQuery).Scan(&columns); err != nil {
		return store.Capabilities{}, fmt.Errorf("failed to check schema capabilities: %w", err)
	}

	c.caps = store.Capabilities{DisplayOrder: columns == 2}
	c.loaded = true
	c.logger.Info("schema capabilities loaded", slog.Bool("display_order", c.caps.DisplayOrder))
	return c.caps, nil
}
