package task

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrUnknownTaskType is returned when no builder is registered for a type.
var ErrUnknownTaskType = errors.New("unknown task type")

// Builder constructs an executable task from its persisted payload.
type Builder func(id uuid.UUID, payload []byte) (Task, error)

// Registry maps task types to builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register installs the builder for taskType, replacing any previous one.
func (r *Registry) Register(taskType string, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[taskType] = b
}

// Build creates a task of the given type.
func (r *Registry) Build(taskType string, id uuid.UUID, payload []byte) (Task, error) {
	r.mu.RLock()
	b, ok := r.builders[taskType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, taskType)
	}
	return b(id, payload)
}

// Rebuild turns a persisted record back into a task.
func (r *Registry) Rebuild(rec Record) (Task, error) {
	return r.Build(rec.Type, rec.ID, rec.Payload)
}

// Types lists the registered task types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.builders))
	for t := range r.builders {
		types = append(types, t)
	}
	return types
}
