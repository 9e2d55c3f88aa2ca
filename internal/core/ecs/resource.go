package ecs

import "time"

// Named holds a resource addressed by name instead of type.
type Named struct {
	Name  string
	Value any
}

// Time is updated by the runner at the start of every tick.
type Time struct {
	Delta   time.Duration
	Elapsed time.Duration
	Tick    uint64
}

func (w *World) resource(k ResourceKey) any {
	w.resMu.RLock()
	defer w.resMu.RUnlock()
	if int(k) >= len(w.resources) {
		return nil
	}
	return w.resources[k]
}

func (w *World) setResource(k ResourceKey, v any) {
	w.resMu.Lock()
	defer w.resMu.Unlock()
	for int(k) >= len(w.resources) {
		w.resources = append(w.resources, nil)
	}
	w.resources[k] = v
}

// InsertResource stores v as the resource of type T and returns a pointer to
// the stored value.
func InsertResource[T any](w *World, v T) *T {
	p := &v
	w.setResource(ResourceKeyOf[T](w), p)
	return p
}

// Resource returns the resource of type T.
func Resource[T any](w *World) (*T, bool) {
	p, ok := w.resource(ResourceKeyOf[T](w)).(*T)
	return p, ok
}

// RemoveResource drops the resource of type T.
func RemoveResource[T any](w *World) {
	w.setResource(ResourceKeyOf[T](w), nil)
}

// SetNamed stores a named resource, creating it if needed.
func (w *World) SetNamed(name string, v any) {
	k := w.NamedResourceKey(name)
	if n, ok := w.resource(k).(*Named); ok {
		n.Value = v
		return
	}
	w.setResource(k, &Named{Name: name, Value: v})
}

func (w *World) Named(name string) (*Named, bool) {
	n, ok := w.resource(w.NamedResourceKey(name)).(*Named)
	return n, ok
}
