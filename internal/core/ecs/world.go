// Package ecs is the entity/component/resource store systems run against. It
// interns resource and component types into integer keys so access sets can
// be compared, hands systems views limited to their declared keys, and
// buffers structural changes until the next flush.
package ecs

import "sync"

// World is the top-level ECS container. It owns the entity pool, the component
// registry, the resources, and the deferred mutation queues applied by Flush.
//
// Structural changes (spawning, inserting, despawning, adding resources) are
// only safe while no schedule is running, from an exclusive system, or
// through Commands.
type World struct {
	pool     *EntityPool
	registry *Registry

	resMu     sync.RWMutex
	resources []any

	pendingMu    sync.Mutex
	pending      []*Commands
	destroyQueue []EntityID
	flushes      uint64
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		resources:    make([]any, 0, 16),
		destroyQueue: make([]EntityID, 0, 64),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) Spawn() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// Despawn removes id and all of its components immediately.
func (w *World) Despawn(id EntityID) bool {
	if !w.pool.Alive(id) {
		return false
	}
	w.registry.RemoveAll(id)
	return w.pool.Destroy(id)
}

// MarkForDestruction queues an entity for the next flush.
func (w *World) MarkForDestruction(id EntityID) {
	w.pendingMu.Lock()
	w.destroyQueue = append(w.destroyQueue, id)
	w.pendingMu.Unlock()
}

// Submit queues a command buffer for the next flush. Buffers apply in
// submission order.
func (w *World) Submit(c *Commands) {
	if c == nil || c.Len() == 0 {
		return
	}
	w.pendingMu.Lock()
	w.pending = append(w.pending, c)
	w.pendingMu.Unlock()
}

// Pending reports whether Flush has work to do.
func (w *World) Pending() bool {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	return len(w.pending) > 0 || len(w.destroyQueue) > 0
}

// Flush applies queued command buffers, then destroys queued entities and
// clears their components. Commands may queue more work; it is applied in
// the same call.
func (w *World) Flush() {
	for {
		w.pendingMu.Lock()
		batch := w.pending
		w.pending = nil
		doomed := w.destroyQueue
		w.destroyQueue = make([]EntityID, 0, cap(doomed))
		w.pendingMu.Unlock()

		if len(batch) == 0 && len(doomed) == 0 {
			break
		}
		for _, c := range batch {
			c.apply(w)
		}
		for _, id := range doomed {
			w.Despawn(id)
		}
	}
	w.pendingMu.Lock()
	w.flushes++
	w.pendingMu.Unlock()
}

// Flushes counts completed Flush calls.
func (w *World) Flushes() uint64 {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	return w.flushes
}

// Entities counts live entities.
func (w *World) Entities() int { return w.pool.Len() }

// Insert attaches component v to id, replacing any existing value.
func Insert[T any](w *World, id EntityID, v T) *T {
	_, s := componentStoreOf[T](w)
	p := &v
	s.Set(id, p)
	return p
}

func Get[T any](w *World, id EntityID) (*T, bool) {
	_, s := componentStoreOf[T](w)
	return s.Get(id)
}

func RemoveComponent[T any](w *World, id EntityID) {
	_, s := componentStoreOf[T](w)
	s.Remove(id)
}

// Components returns the store of T, with full mutable access.
func Components[T any](w *World) *ComponentStore[T] {
	_, s := componentStoreOf[T](w)
	return s
}
