package scripting

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/system"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Options configures Load.
type Options struct {
	// Dir is prepended to relative script paths.
	Dir string
	Log *zap.Logger
	// Phase maps a manifest phase name to a phase token. Nil keeps the
	// name itself as the token.
	Phase func(name string) any
}

// System is a scheduled system whose body is a Lua function. The function
// sees the store through a global table `tickrun`:
//
//	tickrun.read(name)         value of a named resource it declared
//	tickrun.write(name, value) replace a named resource it declared
//	tickrun.set(name, value)   create or replace at the next barrier
//	tickrun.spawn()            spawn an empty entity at the next barrier
//	tickrun.log(msg)           debug log line
type System struct {
	spec   SystemSpec
	phase  any
	engine *Engine
	log    *zap.Logger

	// set only while Run is executing
	view  *ecs.View
	fault error
}

// Load builds one System per manifest entry, each with its own VM. If any
// entry fails, systems built so far are closed.
func Load(m *Manifest, opts Options) ([]*System, error) {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	var out []*System
	for _, spec := range m.Systems {
		s, err := NewSystem(spec, opts)
		if err != nil {
			for _, built := range out {
				built.Close()
			}
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// NewSystem loads spec.Script, or every .lua file in opts.Dir if Script is
// empty, and checks the entry function exists.
func NewSystem(spec SystemSpec, opts Options) (*System, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	var files []string
	if spec.Script != "" {
		path := spec.Script
		if !filepath.IsAbs(path) && opts.Dir != "" {
			path = filepath.Join(opts.Dir, path)
		}
		files = []string{path}
	} else {
		found, err := luaFiles(opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("script system %s: %w", spec.Name, err)
		}
		files = found
	}

	e, err := NewEngine(log.With(zap.String("system", spec.Name)), files...)
	if err != nil {
		return nil, fmt.Errorf("script system %s: %w", spec.Name, err)
	}
	s := newSystem(spec, opts, e)
	if err := s.checkEntry(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// NewInline is NewSystem over a chunk of source instead of files.
func NewInline(spec SystemSpec, chunk string, opts Options) (*System, error) {
	e, err := NewEngine(opts.Log)
	if err != nil {
		return nil, err
	}
	s := newSystem(spec, opts, e)
	if err := e.LoadString(chunk); err != nil {
		s.Close()
		return nil, fmt.Errorf("script system %s: %w", spec.Name, err)
	}
	if err := s.checkEntry(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newSystem(spec SystemSpec, opts Options, e *Engine) *System {
	if spec.Function == "" {
		spec.Function = spec.Name
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &System{spec: spec, engine: e, log: log}
	if spec.Phase != "" {
		if opts.Phase != nil {
			s.phase = opts.Phase(spec.Phase)
		} else {
			s.phase = spec.Phase
		}
	}
	e.Register("tickrun", map[string]lua.LGFunction{
		"read":  s.luaRead,
		"write": s.luaWrite,
		"set":   s.luaSet,
		"spawn": s.luaSpawn,
		"log":   s.luaLog,
	})
	return s
}

// checkEntry reports a missing entry function. Function defaults to the
// system name in newSystem, so it is read from s.spec.
func (s *System) checkEntry() error {
	if !s.engine.Has(s.spec.Function) {
		return fmt.Errorf("script system %s: lua function %s not defined", s.spec.Name, s.spec.Function)
	}
	return nil
}

func (s *System) Name() string { return s.spec.Name }
func (s *System) Phase() any   { return s.phase }

func (s *System) Init(w *ecs.World, meta *system.Meta) error {
	// the entry function receives the tick and delta
	meta.Access.ReadResource(ecs.ResourceKeyOf[ecs.Time](w))
	for _, name := range s.spec.Reads {
		meta.Access.ReadResource(w.NamedResourceKey(name))
	}
	for _, name := range s.spec.Writes {
		meta.Access.WriteResource(w.NamedResourceKey(name))
	}
	if s.spec.Exclusive {
		meta.MarkExclusive()
	}
	for name, val := range s.spec.Resources {
		if _, ok := w.Named(name); !ok {
			w.SetNamed(name, normalize(val))
		}
	}
	meta.Priority = s.spec.Priority
	return nil
}

func (s *System) Run(ctx context.Context, v *ecs.View) error {
	s.view, s.fault = v, nil
	defer func() { s.view = nil }()

	now := timeOf(v)
	err := s.engine.Call(ctx, s.spec.Function, lua.LNumber(now.Tick), lua.LNumber(now.Delta.Seconds()))
	if s.fault != nil {
		// report the Go side error, which carries the access sentinel
		return fmt.Errorf("lua %s: %w", s.spec.Function, s.fault)
	}
	return err
}

// Close releases the VM.
func (s *System) Close() { s.engine.Close() }

// normalize converts manifest numbers to float64, the type Lua hands back.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	default:
		return v
	}
}

// timeOf returns the clock, or the zero Time outside a Runner.
func timeOf(v *ecs.View) ecs.Time {
	t, err := ecs.ReadResource[ecs.Time](v)
	if err != nil {
		return ecs.Time{}
	}
	return t
}

func (s *System) raise(L *lua.LState, err error) int {
	s.fault = err
	L.RaiseError("%s", err.Error())
	return 0
}

func (s *System) luaRead(L *lua.LState) int {
	name := L.CheckString(1)
	val, err := s.view.ReadNamed(name)
	if err != nil {
		return s.raise(L, err)
	}
	L.Push(toLua(val))
	return 1
}

func (s *System) luaWrite(L *lua.LState) int {
	name := L.CheckString(1)
	val, err := fromLua(L.Get(2))
	if err != nil {
		return s.raise(L, fmt.Errorf("write %s: %w", name, err))
	}
	if err := s.view.WriteNamed(name, val); err != nil {
		return s.raise(L, err)
	}
	return 0
}

func (s *System) luaSet(L *lua.LState) int {
	name := L.CheckString(1)
	val, err := fromLua(L.Get(2))
	if err != nil {
		return s.raise(L, fmt.Errorf("set %s: %w", name, err))
	}
	s.view.Commands().SetNamed(name, val)
	return 0
}

func (s *System) luaSpawn(L *lua.LState) int {
	s.view.Commands().Spawn(nil)
	return 0
}

func (s *System) luaLog(L *lua.LState) int {
	s.log.Debug("lua", zap.String("system", s.spec.Name), zap.String("msg", L.CheckString(1)))
	return 0
}
