package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/label"
	"github.com/l1jgo/tickrun/internal/core/system"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Label names a schedule owned by a Runner. Any comparable value works;
// these are the two the Runner treats specially.
type Label string

const (
	// Startup runs once, before the first Main tick.
	Startup Label = "startup"
	Main    Label = "main"
)

var ErrDuplicateSchedule = errors.New("schedule: label already registered")

// Runner owns a world and a set of labelled schedules and advances them one
// tick at a time.
type Runner struct {
	world     *ecs.World
	log       *zap.Logger
	labels    *label.Registry
	schedules []*Schedule
	started   bool

	elapsed time.Duration
	tick    uint64
}

func NewRunner(w *ecs.World, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		world:  w,
		log:    log,
		labels: label.NewRegistry(),
	}
}

func (r *Runner) World() *ecs.World { return r.world }

// AddSchedule registers s under lbl. Panics on a nil or non-comparable label.
func (r *Runner) AddSchedule(lbl any, s *Schedule) error {
	if _, known := r.labels.Lookup(lbl); known {
		return fmt.Errorf("%w: %s", ErrDuplicateSchedule, labelName(lbl))
	}
	r.labels.Intern(lbl)
	if s.name == "schedule" {
		s.name = labelName(lbl)
	}
	r.schedules = append(r.schedules, s)
	return nil
}

// Schedule returns the schedule registered under lbl.
func (r *Runner) Schedule(lbl any) (*Schedule, error) {
	id, ok := r.labels.Lookup(lbl)
	if !ok {
		return nil, &StructuralError{Kind: "schedule", Label: labelName(lbl)}
	}
	return r.schedules[id], nil
}

// AddSystem registers sys on the schedule labelled lbl.
func (r *Runner) AddSystem(lbl any, sys system.System) (system.ID, error) {
	s, err := r.Schedule(lbl)
	if err != nil {
		return 0, err
	}
	return s.AddSystem(sys), nil
}

// Tick advances the clock by dt and runs the startup schedule, if it has not
// completed yet, then every other schedule in registration order. It stops
// at the first failing schedule. A failed startup is retried next tick.
func (r *Runner) Tick(ctx context.Context, dt time.Duration) error {
	r.advance(dt)
	startup, hasStartup := r.labels.Lookup(Startup)
	if hasStartup && !r.started {
		if err := r.runOne(ctx, r.schedules[startup]); err != nil {
			return err
		}
	}
	r.started = true
	for i, s := range r.schedules {
		if hasStartup && label.ID(i) == startup {
			continue
		}
		if err := r.runOne(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// TickSchedule advances the clock and runs only the schedule labelled lbl.
func (r *Runner) TickSchedule(ctx context.Context, lbl any, dt time.Duration) error {
	s, err := r.Schedule(lbl)
	if err != nil {
		return err
	}
	r.advance(dt)
	return r.runOne(ctx, s)
}

func (r *Runner) runOne(ctx context.Context, s *Schedule) error {
	if err := s.Run(ctx, r.world); err != nil {
		r.log.Warn("schedule failed",
			zap.String("schedule", s.name),
			zap.Uint64("tick", r.tick),
			zap.Error(err),
		)
		return fmt.Errorf("runner: schedule %s: %w", s.name, err)
	}
	return nil
}

func labelName(lbl any) string {
	if l, ok := lbl.(Label); ok {
		return string(l)
	}
	return label.Describe(lbl)
}

func (r *Runner) advance(dt time.Duration) {
	r.tick++
	r.elapsed += dt
	t, ok := ecs.Resource[ecs.Time](r.world)
	if !ok {
		t = ecs.InsertResource(r.world, ecs.Time{})
	}
	*t = ecs.Time{Delta: dt, Elapsed: r.elapsed, Tick: r.tick}
}

// Close closes every schedule's executor and joins their workers.
func (r *Runner) Close() error {
	var errs error
	for _, s := range r.schedules {
		errs = multierr.Append(errs, s.Close())
	}
	return errs
}
