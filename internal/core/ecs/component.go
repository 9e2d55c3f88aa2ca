package ecs

import "sort"

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

// ComponentStore holds one component type keyed by entity. Concurrent readers
// are safe; a writer must be the only system holding the store's key, and
// adding or removing entries during a run goes through Commands.
type ComponentStore[T any] struct {
	key  ComponentKey
	data map[EntityID]*T
}

func newComponentStore[T any](key ComponentKey) *ComponentStore[T] {
	return &ComponentStore[T]{
		key:  key,
		data: make(map[EntityID]*T, 256),
	}
}

func (s *ComponentStore[T]) Key() ComponentKey { return s.key }

func (s *ComponentStore[T]) Set(id EntityID, c *T) {
	s.data[id] = c
}

func (s *ComponentStore[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *ComponentStore[T]) Remove(id EntityID) {
	delete(s.data, id)
}

func (s *ComponentStore[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *ComponentStore[T]) Len() int {
	return len(s.data)
}

// Each visits entries in ascending entity order.
func (s *ComponentStore[T]) Each(fn func(EntityID, *T)) {
	for _, id := range s.Entities() {
		fn(id, s.data[id])
	}
}

// Entities returns the ids present in the store, ascending.
func (s *ComponentStore[T]) Entities() []EntityID {
	ids := make([]EntityID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Reader is a read-only handle on a ComponentStore. Values are returned by
// copy so holders cannot write through them.
type Reader[T any] struct {
	store *ComponentStore[T]
}

func (r Reader[T]) Get(id EntityID) (T, bool) {
	var zero T
	if r.store == nil {
		return zero, false
	}
	c, ok := r.store.data[id]
	if !ok {
		return zero, false
	}
	return *c, true
}

func (r Reader[T]) Has(id EntityID) bool { return r.store != nil && r.store.Has(id) }

func (r Reader[T]) Len() int {
	if r.store == nil {
		return 0
	}
	return r.store.Len()
}

func (r Reader[T]) Each(fn func(EntityID, T)) {
	if r.store == nil {
		return
	}
	r.store.Each(func(id EntityID, c *T) { fn(id, *c) })
}
