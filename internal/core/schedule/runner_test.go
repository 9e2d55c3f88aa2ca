package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_UnknownSchedule(t *testing.T) {
	r := NewRunner(ecs.NewWorld(), nil)
	_, err := r.Schedule(Main)
	var se *StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "schedule", se.Kind)

	_, err = r.AddSystem("nope", &probe{name: "a"})
	require.ErrorAs(t, err, &se)
	assert.ErrorAs(t, r.TickSchedule(context.Background(), "nope", time.Millisecond), &se)
}

func TestRunner_DuplicateSchedule(t *testing.T) {
	r := NewRunner(ecs.NewWorld(), nil)
	require.NoError(t, r.AddSchedule(Main, New()))
	assert.ErrorIs(t, r.AddSchedule(Main, New()), ErrDuplicateSchedule)
}

func TestRunner_StartupOnceThenMain(t *testing.T) {
	tr := &trace{}
	r := NewRunner(ecs.NewWorld(), nil)
	defer r.Close()
	// main registered first still runs after startup
	require.NoError(t, r.AddSchedule(Main, New()))
	require.NoError(t, r.AddSchedule(Startup, New()))
	_, err := r.AddSystem(Startup, tr.probe("boot", nil))
	require.NoError(t, err)
	_, err = r.AddSystem(Main, tr.probe("tick", nil))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Tick(context.Background(), 50*time.Millisecond))
	}
	assert.Equal(t, []string{"boot", "tick", "tick", "tick"}, tr.get())

	s, err := r.Schedule(Main)
	require.NoError(t, err)
	assert.Equal(t, "main", s.Name())
}

func TestRunner_TimeResource(t *testing.T) {
	w := ecs.NewWorld()
	r := NewRunner(w, nil)
	require.NoError(t, r.AddSchedule(Main, New()))

	var seen []ecs.Time
	_, err := r.AddSystem(Main, system.Func("clock", func(now system.Res[ecs.Time]) {
		seen = append(seen, now.Get())
	}))
	require.NoError(t, err)

	require.NoError(t, r.Tick(context.Background(), 10*time.Millisecond))
	require.NoError(t, r.Tick(context.Background(), 20*time.Millisecond))
	require.Len(t, seen, 2)
	assert.Equal(t, ecs.Time{Delta: 20 * time.Millisecond, Elapsed: 30 * time.Millisecond, Tick: 2}, seen[1])
}

func TestRunner_FailedStartupRetried(t *testing.T) {
	tr := &trace{}
	r := NewRunner(ecs.NewWorld(), nil)
	require.NoError(t, r.AddSchedule(Startup, New()))
	require.NoError(t, r.AddSchedule(Main, New()))
	attempts := 0
	_, err := r.AddSystem(Startup, &probe{name: "boot", run: func(context.Context, *ecs.View) error {
		attempts++
		if attempts == 1 {
			return errors.New("not yet")
		}
		return nil
	}})
	require.NoError(t, err)
	_, err = r.AddSystem(Main, tr.probe("tick", nil))
	require.NoError(t, err)

	err = r.Tick(context.Background(), time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup")
	assert.Empty(t, tr.get())

	require.NoError(t, r.Tick(context.Background(), time.Millisecond))
	require.NoError(t, r.Tick(context.Background(), time.Millisecond))
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []string{"tick", "tick"}, tr.get())
}

func TestRunner_TickSchedule(t *testing.T) {
	tr := &trace{}
	r := NewRunner(ecs.NewWorld(), nil)
	require.NoError(t, r.AddSchedule(Main, New()))
	require.NoError(t, r.AddSchedule("input", New()))
	_, _ = r.AddSystem(Main, tr.probe("main", nil))
	_, _ = r.AddSystem("input", tr.probe("input", nil))

	require.NoError(t, r.TickSchedule(context.Background(), "input", time.Millisecond))
	require.NoError(t, r.TickSchedule(context.Background(), "input", time.Millisecond))
	assert.Equal(t, []string{"input", "input"}, tr.get())
}
