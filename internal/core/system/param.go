package system

import "github.com/l1jgo/tickrun/internal/core/ecs"

// Param is implemented (through a pointer) by the parameter types a Func
// system may take. declare records the access the parameter needs; bind
// fills it from the view handed to the running system.
type Param interface {
	declare(w *ecs.World, meta *Meta) error
	bind(v *ecs.View) error
}

// Res is a read-only copy of the resource of type T.
type Res[T any] struct {
	value T
}

func (r *Res[T]) declare(w *ecs.World, meta *Meta) error {
	meta.Access.ReadResource(ecs.ResourceKeyOf[T](w))
	return nil
}

func (r *Res[T]) bind(v *ecs.View) error {
	val, err := ecs.ReadResource[T](v)
	r.value = val
	return err
}

func (r Res[T]) Get() T { return r.value }

// ResMut is the resource of type T, mutable in place.
type ResMut[T any] struct {
	ptr *T
}

func (r *ResMut[T]) declare(w *ecs.World, meta *Meta) error {
	meta.Access.WriteResource(ecs.ResourceKeyOf[T](w))
	return nil
}

func (r *ResMut[T]) bind(v *ecs.View) error {
	p, err := ecs.WriteResource[T](v)
	r.ptr = p
	return err
}

func (r ResMut[T]) Get() *T { return r.ptr }

// Query reads every component of type T.
type Query[T any] struct {
	reader ecs.Reader[T]
}

func (q *Query[T]) declare(w *ecs.World, meta *Meta) error {
	meta.Access.ReadComponent(ecs.ComponentKeyOf[T](w))
	return nil
}

func (q *Query[T]) bind(v *ecs.View) error {
	r, err := ecs.ReadComponents[T](v)
	q.reader = r
	return err
}

func (q Query[T]) Reader() ecs.Reader[T]         { return q.reader }
func (q Query[T]) Get(id ecs.EntityID) (T, bool) { return q.reader.Get(id) }
func (q Query[T]) Each(fn func(ecs.EntityID, T)) { q.reader.Each(fn) }
func (q Query[T]) Len() int                      { return q.reader.Len() }

// QueryMut mutates existing components of type T in place.
type QueryMut[T any] struct {
	store *ecs.ComponentStore[T]
}

func (q *QueryMut[T]) declare(w *ecs.World, meta *Meta) error {
	meta.Access.WriteComponent(ecs.ComponentKeyOf[T](w))
	return nil
}

func (q *QueryMut[T]) bind(v *ecs.View) error {
	s, err := ecs.WriteComponents[T](v)
	q.store = s
	return err
}

func (q QueryMut[T]) Store() *ecs.ComponentStore[T]  { return q.store }
func (q QueryMut[T]) Get(id ecs.EntityID) (*T, bool) { return q.store.Get(id) }
func (q QueryMut[T]) Each(fn func(ecs.EntityID, *T)) { q.store.Each(fn) }
func (q QueryMut[T]) Len() int                       { return q.store.Len() }

// Commands queues structural changes, applied at the next barrier.
type Commands struct {
	*ecs.Commands
}

func (c *Commands) declare(*ecs.World, *Meta) error { return nil }

func (c *Commands) bind(v *ecs.View) error {
	c.Commands = v.Commands()
	return nil
}
