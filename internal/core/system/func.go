package system

import (
	"context"
	"fmt"
	"reflect"

	"github.com/l1jgo/tickrun/internal/core/ecs"
)

var (
	paramType   = reflect.TypeOf((*Param)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	worldType   = reflect.TypeOf((*ecs.World)(nil))
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

type argKind uint8

const (
	argParam argKind = iota
	argContext
	argWorld
)

// FuncSystem adapts a plain function. Its access set is derived from the
// parameter types: Res, ResMut, Query, QueryMut, Commands, context.Context,
// and *ecs.World (which makes the system exclusive).
type FuncSystem struct {
	name      string
	phase     any
	priority  uint64
	exclusive bool
	fn        reflect.Value
	args      []reflect.Type
	kinds     []argKind
	returnErr bool
}

// Func wraps fn as a system. fn must return nothing or a single error, and
// take only supported parameter types; anything else panics.
func Func(name string, fn any) *FuncSystem {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		panic(fmt.Sprintf("system %s: expected a func, got %T", name, fn))
	}
	t := v.Type()
	if t.IsVariadic() {
		panic(fmt.Sprintf("system %s: variadic funcs are not supported", name))
	}

	s := &FuncSystem{name: name, fn: v}
	switch {
	case t.NumOut() == 0:
	case t.NumOut() == 1 && t.Out(0) == errorType:
		s.returnErr = true
	default:
		panic(fmt.Sprintf("system %s: must return nothing or error, got %s", name, t))
	}

	for i := 0; i < t.NumIn(); i++ {
		in := t.In(i)
		switch {
		case in == contextType:
			s.kinds = append(s.kinds, argContext)
		case in == worldType:
			s.kinds = append(s.kinds, argWorld)
			s.exclusive = true
		case reflect.PointerTo(in).Implements(paramType):
			s.kinds = append(s.kinds, argParam)
		default:
			panic(fmt.Sprintf("system %s: unsupported parameter %d of type %s", name, i, in))
		}
		s.args = append(s.args, in)
	}
	return s
}

// InPhase assigns the system to the phase identified by token.
func (s *FuncSystem) InPhase(token any) *FuncSystem {
	s.phase = token
	return s
}

// WithPriority sets the sort weight; heavier systems run first when nothing
// else orders them.
func (s *FuncSystem) WithPriority(w uint64) *FuncSystem {
	s.priority = w
	return s
}

// Exclusive makes the system a barrier even if its parameters do not need one.
func (s *FuncSystem) Exclusive() *FuncSystem {
	s.exclusive = true
	return s
}

func (s *FuncSystem) Name() string { return s.name }
func (s *FuncSystem) Phase() any   { return s.phase }

func (s *FuncSystem) Init(w *ecs.World, meta *Meta) error {
	meta.Priority = s.priority
	if s.exclusive {
		meta.MarkExclusive()
	}
	for i, in := range s.args {
		if s.kinds[i] != argParam {
			continue
		}
		p := reflect.New(in).Interface().(Param)
		if err := p.declare(w, meta); err != nil {
			return fmt.Errorf("system %s: parameter %d: %w", s.name, i, err)
		}
	}
	return nil
}

func (s *FuncSystem) Run(ctx context.Context, v *ecs.View) error {
	args := make([]reflect.Value, len(s.args))
	for i, in := range s.args {
		switch s.kinds[i] {
		case argContext:
			args[i] = reflect.ValueOf(&ctx).Elem()
		case argWorld:
			w, err := v.World()
			if err != nil {
				return err
			}
			args[i] = reflect.ValueOf(w)
		default:
			pv := reflect.New(in)
			if err := pv.Interface().(Param).bind(v); err != nil {
				return err
			}
			args[i] = pv.Elem()
		}
	}
	out := s.fn.Call(args)
	if s.returnErr && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}
