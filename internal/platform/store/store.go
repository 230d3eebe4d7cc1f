// Package store provides a generic in-memory collection keyed by id with
// optimistic version checking. Every domain repository's memory
// implementation is built on it; each collection is the single source of
// truth for the entities it holds, and callers only ever see copies.
package store

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperror"
)

// Entity is the contract stored values must satisfy. Clone must return a
// deep copy so stored state is never aliased by callers.
type Entity[T any] interface {
	EntityID() uuid.UUID
	GetVersionID() int
	SetVersionID(v int)
	Clone() T
}

// Collection is an in-memory map of entities guarded by a RWMutex.
// Reads across different ids proceed in parallel; a write on a stale
// version loses the race and reports Conflict.
type Collection[T Entity[T]] struct {
	name  string
	mu    sync.RWMutex
	items map[uuid.UUID]T
}

// NewCollection creates an empty collection. The name appears in error
// messages ("appointment not found").
func NewCollection[T Entity[T]](name string) *Collection[T] {
	return &Collection[T]{name: name, items: make(map[uuid.UUID]T)}
}

// Get returns a copy of the entity with the given id.
func (c *Collection[T]) Get(id uuid.UUID) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	if !ok {
		var zero T
		return zero, apperror.NotFound("%s %s not found", c.name, id)
	}
	return item.Clone(), nil
}

// Insert stores a new entity at version 1.
func (c *Collection[T]) Insert(e T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := e.EntityID()
	if _, exists := c.items[id]; exists {
		return apperror.Conflict("%s %s already exists", c.name, id)
	}
	e.SetVersionID(1)
	c.items[id] = e.Clone()
	return nil
}

// Update replaces an existing entity. The incoming version must match the
// stored one; on success the stored version increments and the caller's
// copy is bumped to match.
func (c *Collection[T]) Update(e T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := e.EntityID()
	current, ok := c.items[id]
	if !ok {
		return apperror.NotFound("%s %s not found", c.name, id)
	}
	if current.GetVersionID() != e.GetVersionID() {
		return apperror.Conflict("%s %s version %d is stale (current %d)",
			c.name, id, e.GetVersionID(), current.GetVersionID())
	}
	e.SetVersionID(e.GetVersionID() + 1)
	c.items[id] = e.Clone()
	return nil
}

// Delete removes an entity.
func (c *Collection[T]) Delete(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return apperror.NotFound("%s %s not found", c.name, id)
	}
	delete(c.items, id)
	return nil
}

// Len returns the number of stored entities.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// All returns copies of every entity matching all predicates, unsorted.
func (c *Collection[T]) All(preds ...Predicate[T]) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []T
	for _, item := range c.items {
		if matchesAll(item, preds) {
			out = append(out, item.Clone())
		}
	}
	return out
}

// Search filters, sorts and pages the collection. The total is the
// filtered count before paging; a page past the end yields an empty
// slice, not an error. Identical queries always return identical
// orderings: ties under the sort comparator break on entity id.
func (c *Collection[T]) Search(q Query[T]) ([]T, int) {
	matched := c.All(q.Filters...)

	less := q.Less
	if less == nil {
		less = func(a, b T) bool { return false }
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if q.Descending {
			a, b = b, a
		}
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return a.EntityID().String() < b.EntityID().String()
	})

	total := len(matched)
	page, size := normalizePage(q.Page, q.PageSize)
	start := (page - 1) * size
	if start >= total {
		return []T{}, total
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total
}
