package schedule

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/phase"
	"github.com/l1jgo/tickrun/internal/core/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_ChainedPhaseBeforeDefault(t *testing.T) {
	for _, k := range executorKinds {
		t.Run(k.String(), func(t *testing.T) {
			tr := &trace{}
			s := newSchedule(k)
			defer s.Close()
			s.AddPhaseChain("A", "B", "C")
			a := s.AddSystem(tr.probe("a", "A"))
			b := s.AddSystem(tr.probe("b", nil))

			require.NoError(t, s.Run(context.Background(), ecs.NewWorld()))
			assert.True(t, s.Plan().Before(a, b))
			if k == Serial {
				assert.Equal(t, []string{"a", "b"}, tr.get())
			}
		})
	}
}

func TestSchedule_DefaultBeforeChainedPhase(t *testing.T) {
	for _, k := range executorKinds {
		t.Run(k.String(), func(t *testing.T) {
			tr := &trace{}
			s := newSchedule(k)
			defer s.Close()
			s.AddPhaseChain("A", "B", "C")
			// registered first, still ordered after b
			c := s.AddSystem(tr.probe("c", "C"))
			b := s.AddSystem(tr.probe("b", nil))

			require.NoError(t, s.Run(context.Background(), ecs.NewWorld()))
			assert.True(t, s.Plan().Before(b, c))
			if k == Serial {
				assert.Equal(t, []string{"b", "c"}, tr.get())
			}
		})
	}
}

func TestSchedule_PhasesRunInChainOrder(t *testing.T) {
	for _, k := range executorKinds {
		t.Run(k.String(), func(t *testing.T) {
			tr := &trace{}
			s := newSchedule(k)
			defer s.Close()
			s.AddPhaseChain(StageInput, StageUpdate, StageCleanup)
			s.AddSystem(tr.probe("cleanup", StageCleanup))
			s.AddSystem(tr.probe("update-1", StageUpdate))
			s.AddSystem(tr.probe("input", StageInput))
			s.AddSystem(tr.probe("update-2", StageUpdate))

			require.NoError(t, s.Run(context.Background(), ecs.NewWorld()))
			assert.Less(t, tr.index("input"), tr.index("update-1"))
			assert.Less(t, tr.index("input"), tr.index("update-2"))
			assert.Less(t, tr.index("update-1"), tr.index("cleanup"))
			assert.Less(t, tr.index("update-2"), tr.index("cleanup"))
		})
	}
}

func TestSchedule_EmptyPhaseKeepsChainTransitive(t *testing.T) {
	s := New()
	s.AddPhaseChain("A", "B", "C")
	a := s.AddSystem(&probe{name: "a", phase: "A"})
	c := s.AddSystem(&probe{name: "c", phase: "C"})
	// without the barrier chain c would be free to run with a
	free := s.AddSystem(&probe{name: "free"})

	require.NoError(t, s.Run(context.Background(), ecs.NewWorld()))
	p := s.Plan()
	assert.True(t, p.Before(a, c))
	pa, _ := p.Position(a)
	pc, _ := p.Position(c)
	assert.NotZero(t, p.Incoming[pc])
	assert.Zero(t, p.Incoming[pa])
	pf, _ := p.Position(free)
	assert.Zero(t, p.Incoming[pf])
}

func TestSchedule_PlanIsPermutation(t *testing.T) {
	s := New()
	s.AddPhaseChain(Stages()...)
	for i := 0; i < 20; i++ {
		var tok any
		if i%3 != 0 {
			tok = Stage(i % len(stageNames))
		}
		s.AddSystem(&probe{name: fmt.Sprintf("sys-%d", i), phase: tok})
	}
	require.NoError(t, s.Run(context.Background(), ecs.NewWorld()))

	p := s.Plan()
	require.Equal(t, s.Len(), p.Len())
	seen := make(map[system.ID]bool)
	for _, id := range p.Order {
		assert.False(t, seen[id], "system %d twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, s.Len())

	// Incoming and Dependents describe the same arrows
	counted := make([]int, p.Len())
	for pos, deps := range p.Dependents {
		for _, next := range deps {
			assert.Greater(t, next, pos, "dependent placed before its predecessor")
			counted[next]++
		}
	}
	if diff := cmp.Diff(p.Incoming, counted); diff != "" {
		t.Fatalf("incoming mismatch (-plan +dependents):\n%s", diff)
	}
	initial := 0
	for _, n := range p.Incoming {
		if n == 0 {
			initial++
		}
	}
	assert.Equal(t, initial, p.Initial)
}

func TestSchedule_ReplansOnlyWhenChanged(t *testing.T) {
	s := New()
	w := ecs.NewWorld()
	assert.True(t, s.Changed())
	s.AddSystem(&probe{name: "a"})

	require.NoError(t, s.Run(context.Background(), w))
	assert.False(t, s.Changed())
	first := s.Plan()

	require.NoError(t, s.Run(context.Background(), w))
	assert.Same(t, first, s.Plan())

	s.AddSystem(&probe{name: "b"})
	assert.True(t, s.Changed())
	require.NoError(t, s.Run(context.Background(), w))
	assert.NotSame(t, first, s.Plan())
	assert.Equal(t, 2, s.Plan().Len())
}

func TestSchedule_BarriersInjectedOnce(t *testing.T) {
	s := New()
	s.AddPhaseChain("A", "B")
	s.AddSystem(&probe{name: "a", phase: "A"})
	w := ecs.NewWorld()
	require.NoError(t, s.Run(context.Background(), w))
	assert.Equal(t, 3, s.Len())

	s.AddSystem(&probe{name: "b", phase: "B"})
	require.NoError(t, s.Run(context.Background(), w))
	assert.Equal(t, 4, s.Len())

	s.AddPhase("C")
	require.NoError(t, s.Run(context.Background(), w))
	assert.Equal(t, 5, s.Len())

	barriers := 0
	for i := 0; i < s.Len(); i++ {
		m := s.Meta(system.ID(i))
		if m.Flush {
			barriers++
			assert.True(t, m.Exclusive)
		}
	}
	assert.Equal(t, 3, barriers)
}

func TestSchedule_BarrierAppliesCommands(t *testing.T) {
	for _, k := range executorKinds {
		t.Run(k.String(), func(t *testing.T) {
			w := ecs.NewWorld()
			s := newSchedule(k)
			defer s.Close()
			s.AddPhaseChain("spawn", "check")
			for i := 0; i < 3; i++ {
				s.AddSystem(&probe{name: fmt.Sprintf("spawner-%d", i), phase: "spawn", run: func(_ context.Context, v *ecs.View) error {
					v.Commands().Spawn(nil)
					return nil
				}})
			}
			var seen int
			s.AddSystem(&probe{name: "check", phase: "check", exclusive: true, run: func(_ context.Context, v *ecs.View) error {
				world, err := v.World()
				if err != nil {
					return err
				}
				seen = world.Entities()
				return nil
			}})

			require.NoError(t, s.Run(context.Background(), w))
			assert.Equal(t, 3, seen)
			assert.Equal(t, 3, w.Entities())
		})
	}
}

func TestSchedule_CommandsApplyInPlanOrder(t *testing.T) {
	for _, k := range executorKinds {
		t.Run(k.String(), func(t *testing.T) {
			w := ecs.NewWorld()
			s := newSchedule(k)
			defer s.Close()
			s.AddPhaseChain("write", "read")
			ws := &windows{}
			slow := ws.timed("first", 5*time.Millisecond)
			s.AddSystem(&probe{name: "first", phase: "write", run: func(ctx context.Context, v *ecs.View) error {
				v.Commands().SetNamed("last", "first")
				return slow(ctx, v)
			}})
			s.AddSystem(&probe{name: "second", phase: "write", run: func(_ context.Context, v *ecs.View) error {
				v.Commands().SetNamed("last", "second")
				return nil
			}})

			for i := 0; i < 5; i++ {
				require.NoError(t, s.Run(context.Background(), w))
				n, ok := w.Named("last")
				require.True(t, ok)
				assert.Equal(t, "second", n.Value)
			}
		})
	}
}

func TestSchedule_ErrorRepeatsEveryTick(t *testing.T) {
	boom := errors.New("boom")
	for _, k := range executorKinds {
		t.Run(k.String(), func(t *testing.T) {
			w := ecs.NewWorld()
			s := newSchedule(k)
			defer s.Close()
			s.AddPhaseChain("A", "B")
			s.AddSystem(&probe{name: "bad", phase: "A", run: func(context.Context, *ecs.View) error { return boom }})
			later := 0
			s.AddSystem(&probe{name: "later", phase: "B", run: func(context.Context, *ecs.View) error {
				later++
				return nil
			}})
			s.AddSystem(&probe{name: "spawner", exclusive: true, run: func(_ context.Context, v *ecs.View) error {
				v.Commands().Spawn(nil)
				return nil
			}})

			var msgs []string
			for tick := 0; tick < 3; tick++ {
				err := s.Run(context.Background(), w)
				require.Error(t, err)
				assert.ErrorIs(t, err, boom)
				var re *RuntimeError
				require.ErrorAs(t, err, &re)
				assert.Equal(t, "bad", re.System)
				msgs = append(msgs, err.Error())

				// store stays usable between ticks
				ecs.InsertResource(w, tick)
				got, ok := ecs.Resource[int](w)
				require.True(t, ok)
				assert.Equal(t, tick, *got)
			}
			assert.Equal(t, msgs[0], msgs[1])
			assert.Equal(t, msgs[1], msgs[2])
			assert.Zero(t, later)
			assert.Equal(t, uint64(3), s.Ticks())
		})
	}
}

func TestSchedule_SerialFlushesEarlierCommandsOnError(t *testing.T) {
	w := ecs.NewWorld()
	s := New()
	s.AddSystem(&probe{name: "spawner", run: func(_ context.Context, v *ecs.View) error {
		v.Commands().Spawn(nil)
		return nil
	}})
	s.AddSystem(&probe{name: "bad", run: func(context.Context, *ecs.View) error { return errors.New("bad") }})

	require.Error(t, s.Run(context.Background(), w))
	assert.Equal(t, 1, w.Entities())
	require.Error(t, s.Run(context.Background(), w))
	assert.Equal(t, 2, w.Entities())
}

func TestSchedule_PanicBecomesPanicError(t *testing.T) {
	for _, k := range executorKinds {
		t.Run(k.String(), func(t *testing.T) {
			s := newSchedule(k)
			defer s.Close()
			s.AddSystem(&probe{name: "kaboom", run: func(context.Context, *ecs.View) error { panic("kaboom") }})
			s.AddSystem(&probe{name: "kaboom-exclusive", exclusive: true, run: func(context.Context, *ecs.View) error { panic("again") }})

			for i := 0; i < 2; i++ {
				err := s.Run(context.Background(), ecs.NewWorld())
				var pe *PanicError
				require.ErrorAs(t, err, &pe)
				assert.Contains(t, []string{"kaboom", "kaboom-exclusive"}, pe.System)
				assert.NotEmpty(t, pe.Stack)
			}
		})
	}
}

func TestSchedule_UndeclaredAccessIsMisuse(t *testing.T) {
	for _, k := range executorKinds {
		t.Run(k.String(), func(t *testing.T) {
			w := ecs.NewWorld()
			w.SetNamed("secret", 1)
			s := newSchedule(k)
			defer s.Close()
			s.AddSystem(&probe{name: "snoop", reads: []string{"public"}, run: func(_ context.Context, v *ecs.View) error {
				_, err := v.ReadNamed("secret")
				return err
			}})

			err := s.Run(context.Background(), w)
			var me *MisuseError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, "snoop", me.System)
			assert.ErrorIs(t, err, ecs.ErrUndeclaredAccess)
		})
	}
}

func TestSchedule_OrderPhasesUnknown(t *testing.T) {
	s := New()
	s.AddPhase("known")
	err := s.OrderPhases("known", "missing")
	var se *StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "phase", se.Kind)
	assert.Equal(t, "missing", se.Label)
	assert.ErrorIs(t, err, phase.ErrUnknownPhase)
}

func TestSchedule_OrderPhases(t *testing.T) {
	tr := &trace{}
	s := New()
	s.AddPhase("late")
	s.AddPhase("early")
	s.AddSystem(tr.probe("late", "late"))
	s.AddSystem(tr.probe("early", "early"))
	require.NoError(t, s.OrderPhases("early", "late"))

	require.NoError(t, s.Run(context.Background(), ecs.NewWorld()))
	assert.Equal(t, []string{"early", "late"}, tr.get())
}

func TestSchedule_OrderSystems(t *testing.T) {
	tr := &trace{}
	s := New()
	a := s.AddSystem(tr.probe("a", nil))
	b := s.AddSystem(tr.probe("b", nil))
	require.NoError(t, s.OrderSystems(b, a))

	require.NoError(t, s.Run(context.Background(), ecs.NewWorld()))
	assert.Equal(t, []string{"b", "a"}, tr.get())

	var se *StructuralError
	require.ErrorAs(t, s.OrderSystems(a, 99), &se)
	assert.Equal(t, "system", se.Kind)
}

func TestSchedule_PriorityBreaksTies(t *testing.T) {
	tr := &trace{}
	s := New()
	s.AddSystem(tr.probe("low", nil))
	s.AddSystem(system.Func("high", func() { tr.add("high") }).WithPriority(10))

	require.NoError(t, s.Run(context.Background(), ecs.NewWorld()))
	assert.Equal(t, []string{"high", "low"}, tr.get())
}

func TestSchedule_CycleIsBrokenAndReported(t *testing.T) {
	tr := &trace{}
	var reports []TickReport
	s := New(WithName("main"), WithObserver(ObserverFunc(func(r TickReport) { reports = append(reports, r) })))
	a := s.AddSystem(tr.probe("a", nil))
	b := s.AddSystem(tr.probe("b", nil))
	require.NoError(t, s.OrderSystems(a, b))
	require.NoError(t, s.OrderSystems(b, a))

	require.NoError(t, s.Run(context.Background(), ecs.NewWorld()))
	assert.Len(t, tr.get(), 2)
	assert.Len(t, s.Plan().Dropped, 1)

	require.NoError(t, s.Run(context.Background(), ecs.NewWorld()))
	require.Len(t, reports, 2)
	assert.Equal(t, "main", reports[0].Schedule)
	assert.Equal(t, uint64(1), reports[0].Tick)
	assert.True(t, reports[0].Replanned)
	assert.Equal(t, 1, reports[0].Dropped)
	assert.Equal(t, uint64(2), reports[1].Tick)
	assert.False(t, reports[1].Replanned)
	assert.NoError(t, reports[1].Err)
}

func TestSchedule_InitErrorRetriedNextRun(t *testing.T) {
	s := New()
	s.AddSystem(&probe{name: "fine"})
	s.AddSystem(&failingInit{})

	err := s.Run(context.Background(), ecs.NewWorld())
	require.Error(t, err)
	assert.ErrorIs(t, err, errInit)
	assert.True(t, s.Changed())
}

var errInit = errors.New("init failed")

type failingInit struct{ probe }

func (f *failingInit) Init(*ecs.World, *system.Meta) error { return errInit }

func TestSchedule_SwitchExecutor(t *testing.T) {
	tr := &trace{}
	s := New()
	s.AddSystem(tr.probe("a", nil))
	w := ecs.NewWorld()
	require.NoError(t, s.Run(context.Background(), w))

	require.NoError(t, s.SetExecutor(Multithreaded))
	assert.Equal(t, Multithreaded, s.ExecutorKind())
	require.NoError(t, s.Run(context.Background(), w))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	// a closed schedule creates a fresh executor
	require.NoError(t, s.Run(context.Background(), w))
	require.NoError(t, s.Close())
	assert.Equal(t, []string{"a", "a", "a"}, tr.get())
}

func TestParseExecutorKind(t *testing.T) {
	for in, want := range map[string]ExecutorKind{
		"":              Serial,
		"serial":        Serial,
		"Multithreaded": Multithreaded,
		" parallel ":    Multithreaded,
	} {
		got, err := ParseExecutorKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseExecutorKind("gpu")
	assert.Error(t, err)
}
