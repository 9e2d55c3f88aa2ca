// Package schedule compiles registered systems into an execution plan and
// runs it once per tick, either in order on the calling goroutine or on a
// pool of workers that overlaps systems whose declared access is disjoint.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/label"
	"github.com/l1jgo/tickrun/internal/core/phase"
	"github.com/l1jgo/tickrun/internal/core/system"
	"go.uber.org/zap"
)

// TickReport summarizes one Schedule.Run.
type TickReport struct {
	Schedule  string
	Tick      uint64
	Started   time.Time
	Duration  time.Duration
	Systems   int
	Replanned bool
	Dropped   int
	Err       error
}

// Observer is notified after every run. Observers are called on the
// goroutine that called Run and must not call back into the schedule.
type Observer interface {
	ScheduleRan(r TickReport)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(TickReport)

func (f ObserverFunc) ScheduleRan(r TickReport) { f(r) }

type Option func(*Schedule)

func WithLogger(log *zap.Logger) Option {
	return func(s *Schedule) {
		if log != nil {
			s.log = log
		}
	}
}

func WithName(name string) Option {
	return func(s *Schedule) { s.name = name }
}

func WithExecutorKind(k ExecutorKind) Option {
	return func(s *Schedule) { s.kind = k }
}

// WithWorkers sets the parallel executor's worker count; <= 0 means
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Schedule) { s.workers = n }
}

func WithObserver(o Observer) Option {
	return func(s *Schedule) { s.observers = append(s.observers, o) }
}

// Schedule owns a set of systems, the phases they belong to, and the plan
// compiled from both. Any registration marks the schedule changed; the next
// Run re-initializes every system and replans before executing.
//
// Registration and Run must not be called concurrently.
type Schedule struct {
	name    string
	log     *zap.Logger
	layer   *phase.Layer
	planner *Planner
	systems []system.System
	plan    *Plan
	changed bool

	kind      ExecutorKind
	workers   int
	executor  Executor
	observers []Observer
	ticks     uint64

	mu sync.Mutex
}

func New(opts ...Option) *Schedule {
	s := &Schedule{
		name:    "schedule",
		log:     zap.NewNop(),
		layer:   phase.NewLayer(),
		planner: NewPlanner(),
		changed: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Schedule) Name() string { return s.name }

// AddSystem registers sys and returns its id. A non-nil Phase token is
// registered as a phase if it is not known yet.
func (s *Schedule) AddSystem(sys system.System) system.ID {
	m := &system.Meta{Name: sys.Name()}
	if tok := sys.Phase(); tok != nil {
		m.SetPhase(s.layer.AddPhase(tok))
	}
	id := s.planner.Add(m)
	s.systems = append(s.systems, sys)
	s.changed = true
	return id
}

func (s *Schedule) AddPhase(token any) phase.ID {
	id := s.layer.AddPhase(token)
	s.changed = true
	return id
}

// AddPhaseChain registers tokens and orders each before the next.
func (s *Schedule) AddPhaseChain(tokens ...any) []phase.ID {
	ids := s.layer.AddPhaseChain(tokens...)
	s.changed = true
	return ids
}

// OrderPhases declares that every system of before finishes ahead of any
// system of after.
func (s *Schedule) OrderPhases(before, after any) error {
	for _, tok := range []any{before, after} {
		if _, ok := s.layer.Lookup(tok); !ok {
			return &StructuralError{Kind: "phase", Label: label.Describe(tok), Err: phase.ErrUnknownPhase}
		}
	}
	if err := s.layer.Order(before, after); err != nil {
		return fmt.Errorf("schedule %s: order phases: %w", s.name, err)
	}
	s.changed = true
	return nil
}

// OrderSystems declares that before finishes ahead of after.
func (s *Schedule) OrderSystems(before, after system.ID) error {
	for _, id := range []system.ID{before, after} {
		if s.planner.Meta(id) == nil {
			return &StructuralError{Kind: "system", Label: fmt.Sprintf("#%d", id)}
		}
	}
	if err := s.planner.Order(before, after); err != nil {
		return fmt.Errorf("schedule %s: order systems: %w", s.name, err)
	}
	s.changed = true
	return nil
}

// SetExecutor switches the executor used by subsequent runs. The previous
// executor is closed if the kind changes.
func (s *Schedule) SetExecutor(k ExecutorKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k == s.kind {
		return nil
	}
	s.kind = k
	if s.executor == nil {
		return nil
	}
	err := s.executor.Close()
	s.executor = nil
	return err
}

func (s *Schedule) ExecutorKind() ExecutorKind { return s.kind }

// Plan returns the plan of the last run, or nil before the first.
func (s *Schedule) Plan() *Plan { return s.plan }

func (s *Schedule) Meta(id system.ID) *system.Meta { return s.planner.Meta(id) }

// PhaseName describes the phase registered as id.
func (s *Schedule) PhaseName(id phase.ID) string { return s.layer.Name(id) }

// Len counts registered systems, barriers included.
func (s *Schedule) Len() int { return len(s.systems) }

func (s *Schedule) Changed() bool { return s.changed }

func (s *Schedule) Ticks() uint64 { return s.ticks }

// Run executes every system once. The world is flushed afterwards whether
// or not a system failed, so commands buffered by systems that did run are
// not lost. A failure aborts the remaining systems of this run only.
func (s *Schedule) Run(ctx context.Context, w *ecs.World) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	replanned := s.changed
	err := s.run(ctx, w)
	w.Flush()
	s.ticks++

	r := TickReport{
		Schedule:  s.name,
		Tick:      s.ticks,
		Started:   started,
		Duration:  time.Since(started),
		Systems:   len(s.systems),
		Replanned: replanned,
		Err:       err,
	}
	if s.plan != nil {
		r.Dropped = len(s.plan.Dropped)
	}
	for _, o := range s.observers {
		o.ScheduleRan(r)
	}
	return err
}

// Prepare initializes systems against w and compiles the plan if anything
// changed since the last run, without executing any system.
func (s *Schedule) Prepare(w *ecs.World) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prepare(w)
}

func (s *Schedule) prepare(w *ecs.World) error {
	if !s.changed {
		return nil
	}
	s.changed = false
	if err := s.rebuild(w); err != nil {
		s.changed = true
		return err
	}
	return nil
}

func (s *Schedule) run(ctx context.Context, w *ecs.World) error {
	if err := s.prepare(w); err != nil {
		return err
	}
	exec, err := s.ensureExecutor()
	if err != nil {
		return err
	}
	return exec.Run(ctx, &Job{
		Plan:    s.plan,
		Systems: s.systems,
		Metas:   s.planner.Metas(),
		World:   w,
		Log:     s.log,
	})
}

func (s *Schedule) ensureExecutor() (Executor, error) {
	if s.executor != nil {
		return s.executor, nil
	}
	switch s.kind {
	case Serial:
		s.executor = NewSerialExecutor()
	case Multithreaded:
		s.executor = NewParallelExecutor(s.workers, s.log.With(zap.String("schedule", s.name)))
	default:
		return nil, &MisuseError{Err: fmt.Errorf("unknown executor %s", s.kind)}
	}
	return s.executor, nil
}

// rebuild injects missing barriers, re-initializes every system against w,
// and compiles a new plan.
func (s *Schedule) rebuild(w *ecs.World) error {
	for _, pid := range s.layer.UninitializedPhases() {
		b := &barrierSystem{name: "barrier:" + s.layer.Name(pid)}
		id := s.planner.Add(&system.Meta{Name: b.name})
		s.systems = append(s.systems, b)
		s.layer.SetMarkers(pid, uint32(id), uint32(id))
	}

	for i, sys := range s.systems {
		m := s.planner.Meta(system.ID(i))
		*m = system.Meta{ID: m.ID, Name: m.Name, Phase: m.Phase, HasPhase: m.HasPhase}
		if err := sys.Init(w, m); err != nil {
			return fmt.Errorf("schedule %s: init system %s: %w", s.name, m.Name, err)
		}
		if err := m.Validate(); err != nil {
			return &MisuseError{System: m.Name, Err: err}
		}
		s.planner.SetPriority(m.ID, m.Priority)
	}

	plan, err := s.planner.Plan(s.layer, s.layer.SortPhases())
	if err != nil {
		return fmt.Errorf("schedule %s: %w", s.name, err)
	}
	for _, a := range plan.Dropped {
		s.log.Warn("ordering cycle broken",
			zap.String("schedule", s.name),
			zap.String("before", s.planner.Meta(system.ID(a.From)).Name),
			zap.String("after", s.planner.Meta(system.ID(a.To)).Name),
		)
	}
	s.plan = plan
	s.log.Debug("schedule planned",
		zap.String("schedule", s.name),
		zap.Int("systems", plan.Len()),
		zap.Int("initial", plan.Initial),
	)
	return nil
}

// Close releases the executor. The schedule may be run again afterwards; a
// new executor is created on demand.
func (s *Schedule) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.executor == nil {
		return nil
	}
	err := s.executor.Close()
	s.executor = nil
	return err
}
