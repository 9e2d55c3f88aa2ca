package ecs

import (
	"fmt"
	"reflect"
	"sync"
)

// ResourceKey is the store's stable integer id for a resource type or a named
// resource. ComponentKey is the same for component types.
type (
	ResourceKey  uint32
	ComponentKey uint32
)

type namedKey struct{ name string }

// Registry interns resource and component identities and owns the component
// stores. Key lookups may happen from several systems at once.
type Registry struct {
	mu             sync.RWMutex
	resourceKeys   map[any]ResourceKey
	resourceNames  []string
	componentKeys  map[reflect.Type]ComponentKey
	componentNames []string
	stores         []Removable
}

func NewRegistry() *Registry {
	return &Registry{
		resourceKeys:  make(map[any]ResourceKey, 16),
		componentKeys: make(map[reflect.Type]ComponentKey, 16),
		stores:        make([]Removable, 0, 16),
	}
}

func (r *Registry) resourceKey(id any, name string) ResourceKey {
	r.mu.RLock()
	k, ok := r.resourceKeys[id]
	r.mu.RUnlock()
	if ok {
		return k
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.resourceKeys[id]; ok {
		return k
	}
	k = ResourceKey(len(r.resourceNames))
	r.resourceKeys[id] = k
	r.resourceNames = append(r.resourceNames, name)
	return k
}

// componentStore returns the store for t, creating it with mk on first use.
func (r *Registry) componentStore(t reflect.Type, mk func(ComponentKey) Removable) (ComponentKey, Removable) {
	r.mu.RLock()
	k, ok := r.componentKeys[t]
	if ok {
		s := r.stores[k]
		r.mu.RUnlock()
		return k, s
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.componentKeys[t]; ok {
		return k, r.stores[k]
	}
	k = ComponentKey(len(r.stores))
	s := mk(k)
	r.componentKeys[t] = k
	r.componentNames = append(r.componentNames, t.String())
	r.stores = append(r.stores, s)
	return k, s
}

// ResourceName renders k for logs and errors.
func (r *Registry) ResourceName(k ResourceKey) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(k) < len(r.resourceNames) {
		return r.resourceNames[k]
	}
	return fmt.Sprintf("resource#%d", k)
}

func (r *Registry) ComponentName(k ComponentKey) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(k) < len(r.componentNames) {
		return r.componentNames[k]
	}
	return fmt.Sprintf("component#%d", k)
}

// RemoveAll clears the given entity from every registered component store.
func (r *Registry) RemoveAll(id EntityID) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.stores {
		s.Remove(id)
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// ResourceKeyOf returns the key of resource type T, interning it if new.
func ResourceKeyOf[T any](w *World) ResourceKey {
	t := typeOf[T]()
	return w.registry.resourceKey(t, t.String())
}

// ComponentKeyOf returns the key of component type T, creating its store if new.
func ComponentKeyOf[T any](w *World) ComponentKey {
	k, _ := componentStoreOf[T](w)
	return k
}

func componentStoreOf[T any](w *World) (ComponentKey, *ComponentStore[T]) {
	k, s := w.registry.componentStore(typeOf[T](), func(k ComponentKey) Removable {
		return newComponentStore[T](k)
	})
	return k, s.(*ComponentStore[T])
}

// NamedResourceKey interns a resource identified by name rather than type.
// Scripted systems use these.
func (w *World) NamedResourceKey(name string) ResourceKey {
	return w.registry.resourceKey(namedKey{name}, "named:"+name)
}
