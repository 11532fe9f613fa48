package arena

import (
	"sync"

	"github.com/google/uuid"

	"mercator-hq/cellguard/pkg/errcode"
)

// Arena stores objects of one kind looked up by UUID.
type Arena[T any] struct {
	mu    sync.RWMutex
	inner map[uuid.UUID]T
	name  string
}

// New returns an empty arena. The name appears in lookup diagnostics.
func New[T any](name string) *Arena[T] {
	return &Arena[T]{inner: make(map[uuid.UUID]T), name: name}
}

// Insert stores the object under a fresh random identifier and returns it.
func (a *Arena[T]) Insert(object T) uuid.UUID {
	id := uuid.New()
	a.mu.Lock()
	a.inner[id] = object
	a.mu.Unlock()
	return id
}

// Get returns the object stored under id, or NoEntry.
func (a *Arena[T]) Get(id uuid.UUID) (T, error) {
	a.mu.RLock()
	object, ok := a.inner[id]
	a.mu.RUnlock()
	if !ok {
		var zero T
		return zero, errcode.New(errcode.NoEntry, "object %s does not exist in the %s arena", id, a.name)
	}
	return object, nil
}

// Contains reports whether id is live in the arena.
func (a *Arena[T]) Contains(id uuid.UUID) bool {
	a.mu.RLock()
	_, ok := a.inner[id]
	a.mu.RUnlock()
	return ok
}

// Replace swaps the object stored under an existing id. Unknown identifiers
// fail with NoEntry; Replace never creates entries.
func (a *Arena[T]) Replace(id uuid.UUID, object T) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.inner[id]; !ok {
		return errcode.New(errcode.NoEntry, "object %s does not exist in the %s arena", id, a.name)
	}
	a.inner[id] = object
	return nil
}

// Len returns the number of live objects.
func (a *Arena[T]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.inner)
}
