package ecs

// Source is a component store a join can iterate: a *ComponentStore for
// write access or a Reader for read access. Readers yield pointers to copies.
type Source[T any] interface {
	Len() int
	lookup(id EntityID) (*T, bool)
	entities() []EntityID
}

func (s *ComponentStore[T]) lookup(id EntityID) (*T, bool) { return s.Get(id) }
func (s *ComponentStore[T]) entities() []EntityID          { return s.Entities() }

func (r Reader[T]) lookup(id EntityID) (*T, bool) {
	v, ok := r.Get(id)
	if !ok {
		return nil, false
	}
	return &v, true
}

func (r Reader[T]) entities() []EntityID {
	if r.store == nil {
		return nil
	}
	return r.store.Entities()
}

// smallest returns the entity list of the shortest source; joins only need
// to probe the others.
func smallest(lens []int, lists ...func() []EntityID) []EntityID {
	best := 0
	for i := 1; i < len(lens); i++ {
		if lens[i] < lens[best] {
			best = i
		}
	}
	return lists[best]()
}

// Each2 iterates over entities that have both component A and B, in
// ascending entity order.
func Each2[A, B any](sa Source[A], sb Source[B], fn func(EntityID, *A, *B)) {
	ids := smallest([]int{sa.Len(), sb.Len()}, sa.entities, sb.entities)
	for _, id := range ids {
		a, ok := sa.lookup(id)
		if !ok {
			continue
		}
		if b, ok := sb.lookup(id); ok {
			fn(id, a, b)
		}
	}
}

// Each3 iterates over entities that have components A, B, and C.
func Each3[A, B, C any](sa Source[A], sb Source[B], sc Source[C], fn func(EntityID, *A, *B, *C)) {
	ids := smallest([]int{sa.Len(), sb.Len(), sc.Len()}, sa.entities, sb.entities, sc.entities)
	for _, id := range ids {
		a, ok := sa.lookup(id)
		if !ok {
			continue
		}
		b, ok := sb.lookup(id)
		if !ok {
			continue
		}
		if c, ok := sc.lookup(id); ok {
			fn(id, a, b, c)
		}
	}
}
