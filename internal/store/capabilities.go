package store

import "context"

// Capabilities describes optional schema features. It is read once from the
// database and cached by the implementation.
type Capabilities struct {
	// DisplayOrder is true when subtopics and flashcards carry a display_order column.
	DisplayOrder bool `json:"display_order"`
}

// CapabilityProvider exposes the cached Capabilities.
type CapabilityProvider interface {
	Capabilities(ctx context.Context) (Capabilities, error)
}

// StaticCapabilities is a fixed CapabilityProvider for tests and tools that
// already know the schema.
type StaticCapabilities Capabilities

// Capabilities implements CapabilityProvider.
func (s StaticCapabilities) Capabilities(context.Context) (Capabilities, error) {
	return Capabilities(s), nil
}
