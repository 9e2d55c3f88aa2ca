package ecs

import (
	"errors"
	"fmt"
)

var (
	ErrUndeclaredAccess = errors.New("ecs: undeclared access")
	ErrNotExclusive     = errors.New("ecs: whole-world access requires an exclusive system")
	ErrMissingResource  = errors.New("ecs: resource not present")
)

// View is the handle a running system receives. It grants exactly the keys
// in the system's declared Access, so views given to systems that run at the
// same time never hand out overlapping mutable state. Exclusive views grant
// everything, including the World itself.
type View struct {
	world     *World
	access    *Access
	exclusive bool
	system    string
	commands  *Commands
}

func NewView(w *World, access *Access, system string) *View {
	if access == nil {
		access = &Access{}
	}
	return &View{world: w, access: access, system: system, commands: NewCommands()}
}

func NewExclusiveView(w *World, system string) *View {
	return &View{world: w, access: &Access{}, exclusive: true, system: system, commands: NewCommands()}
}

func (v *View) System() string      { return v.system }
func (v *View) Exclusive() bool     { return v.exclusive }
func (v *View) Commands() *Commands { return v.commands }

// World returns the whole store. Only exclusive views may do this.
func (v *View) World() (*World, error) {
	if !v.exclusive {
		return nil, fmt.Errorf("%w: system %s", ErrNotExclusive, v.system)
	}
	return v.world, nil
}

func (v *View) canReadResource(k ResourceKey) bool {
	return v.exclusive || v.access.CanReadResource(k)
}

func (v *View) canWriteResource(k ResourceKey) bool {
	return v.exclusive || v.access.CanWriteResource(k)
}

func (v *View) canReadComponent(k ComponentKey) bool {
	return v.exclusive || v.access.CanReadComponent(k)
}

func (v *View) canWriteComponent(k ComponentKey) bool {
	return v.exclusive || v.access.CanWriteComponent(k)
}

func (v *View) denied(mode, name string) error {
	return fmt.Errorf("%w: system %s cannot %s %s", ErrUndeclaredAccess, v.system, mode, name)
}

// ReadResource returns a copy of the resource of type T.
func ReadResource[T any](v *View) (T, error) {
	var zero T
	k := ResourceKeyOf[T](v.world)
	if !v.canReadResource(k) {
		return zero, v.denied("read", v.world.registry.ResourceName(k))
	}
	p, ok := v.world.resource(k).(*T)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrMissingResource, v.world.registry.ResourceName(k))
	}
	return *p, nil
}

// WriteResource returns the stored resource of type T for in-place mutation.
func WriteResource[T any](v *View) (*T, error) {
	k := ResourceKeyOf[T](v.world)
	if !v.canWriteResource(k) {
		return nil, v.denied("write", v.world.registry.ResourceName(k))
	}
	p, ok := v.world.resource(k).(*T)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingResource, v.world.registry.ResourceName(k))
	}
	return p, nil
}

// ReadComponents returns a read-only handle on the store of T.
func ReadComponents[T any](v *View) (Reader[T], error) {
	k, s := componentStoreOf[T](v.world)
	if !v.canReadComponent(k) {
		return Reader[T]{}, v.denied("read", v.world.registry.ComponentName(k))
	}
	return Reader[T]{store: s}, nil
}

// WriteComponents returns the store of T for in-place mutation of existing
// entries. Adding or removing entries must go through Commands.
func WriteComponents[T any](v *View) (*ComponentStore[T], error) {
	k, s := componentStoreOf[T](v.world)
	if !v.canWriteComponent(k) {
		return nil, v.denied("write", v.world.registry.ComponentName(k))
	}
	return s, nil
}

// ReadNamed returns the value of a named resource.
func (v *View) ReadNamed(name string) (any, error) {
	k := v.world.NamedResourceKey(name)
	if !v.canReadResource(k) {
		return nil, v.denied("read", name)
	}
	n, ok := v.world.resource(k).(*Named)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingResource, name)
	}
	return n.Value, nil
}

// WriteNamed replaces the value of a named resource that already exists.
func (v *View) WriteNamed(name string, val any) error {
	k := v.world.NamedResourceKey(name)
	if !v.canWriteResource(k) {
		return v.denied("write", name)
	}
	n, ok := v.world.resource(k).(*Named)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingResource, name)
	}
	n.Value = val
	return nil
}
