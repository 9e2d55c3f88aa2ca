package system

import (
	"context"
	"errors"
	"testing"

	"github.com/l1jgo/tickrun/internal/core/ecs"
	"github.com/l1jgo/tickrun/internal/core/phase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gravity struct{ G int }
type tally struct{ N int }
type position struct{ Y int }

func initMeta(t *testing.T, w *ecs.World, s System) *Meta {
	t.Helper()
	m := &Meta{Name: s.Name()}
	require.NoError(t, s.Init(w, m))
	return m
}

func TestFunc_DeclaresAccessFromParams(t *testing.T) {
	w := ecs.NewWorld()
	s := Func("fall", func(g Res[gravity], n ResMut[tally], p QueryMut[position], _ Commands) {})
	m := initMeta(t, w, s)

	assert.False(t, m.Exclusive)
	assert.True(t, m.Access.CanReadResource(ecs.ResourceKeyOf[gravity](w)))
	assert.False(t, m.Access.CanWriteResource(ecs.ResourceKeyOf[gravity](w)))
	assert.True(t, m.Access.CanWriteResource(ecs.ResourceKeyOf[tally](w)))
	assert.True(t, m.Access.CanWriteComponent(ecs.ComponentKeyOf[position](w)))
}

func TestFunc_WorldParamIsExclusive(t *testing.T) {
	w := ecs.NewWorld()
	m := initMeta(t, w, Func("admin", func(*ecs.World) {}))
	assert.True(t, m.Exclusive)

	m = initMeta(t, w, Func("forced", func() {}).Exclusive())
	assert.True(t, m.Exclusive)
}

func TestFunc_Run(t *testing.T) {
	w := ecs.NewWorld()
	ecs.InsertResource(w, gravity{G: 2})
	ecs.InsertResource(w, tally{})
	e := w.Spawn()
	ecs.Insert(w, e, position{Y: 10})

	var gotCtx context.Context
	s := Func("fall", func(ctx context.Context, g Res[gravity], n ResMut[tally], p QueryMut[position], cmd Commands) error {
		gotCtx = ctx
		p.Each(func(_ ecs.EntityID, pos *position) {
			pos.Y -= g.Get().G
			n.Get().N++
		})
		cmd.Spawn(nil)
		return nil
	})
	m := initMeta(t, w, s)

	ctx := context.WithValue(context.Background(), struct{}{}, 1)
	v := ecs.NewView(w, &m.Access, s.Name())
	require.NoError(t, s.Run(ctx, v))

	assert.Equal(t, ctx, gotCtx)
	pos, _ := ecs.Get[position](w, e)
	assert.Equal(t, 8, pos.Y)
	n, _ := ecs.Resource[tally](w)
	assert.Equal(t, 1, n.N)
	assert.Equal(t, 1, v.Commands().Len())
}

func TestFunc_RunReturnsError(t *testing.T) {
	boom := errors.New("boom")
	s := Func("bad", func() error { return boom })
	w := ecs.NewWorld()
	m := initMeta(t, w, s)
	assert.ErrorIs(t, s.Run(context.Background(), ecs.NewView(w, &m.Access, "bad")), boom)
}

func TestFunc_RunMissingResource(t *testing.T) {
	w := ecs.NewWorld()
	s := Func("reader", func(Res[gravity]) {})
	m := initMeta(t, w, s)
	err := s.Run(context.Background(), ecs.NewView(w, &m.Access, "reader"))
	assert.ErrorIs(t, err, ecs.ErrMissingResource)
}

func TestFunc_WorldParamRejectedOnSharedView(t *testing.T) {
	w := ecs.NewWorld()
	s := Func("admin", func(*ecs.World) {})
	err := s.Run(context.Background(), ecs.NewView(w, nil, "admin"))
	assert.ErrorIs(t, err, ecs.ErrNotExclusive)
}

func TestFunc_PanicsOnBadSignature(t *testing.T) {
	assert.Panics(t, func() { Func("x", 3) })
	assert.Panics(t, func() { Func("x", func(int) {}) })
	assert.Panics(t, func() { Func("x", func() int { return 0 }) })
	assert.Panics(t, func() { Func("x", func(...Res[gravity]) {}) })
}

func TestFunc_Builder(t *testing.T) {
	s := Func("x", func() {}).InPhase("update").WithPriority(7)
	assert.Equal(t, "update", s.Phase())
	m := initMeta(t, ecs.NewWorld(), s)
	assert.Equal(t, uint64(7), m.Priority)
}

func TestMeta(t *testing.T) {
	m := &Meta{Name: "barrier", Flush: true}
	assert.ErrorIs(t, m.Validate(), ErrFlushNotExclusive)
	m.MarkFlush()
	assert.NoError(t, m.Validate())

	m.SetPhase(phase.Default)
	assert.False(t, m.HasPhase)
	m.SetPhase(3)
	assert.True(t, m.HasPhase)

	w := ecs.NewWorld()
	a := initMeta(t, w, Func("a", func(Res[gravity]) {}))
	b := initMeta(t, w, Func("b", func(Res[gravity]) {}))
	c := initMeta(t, w, Func("c", func(ResMut[gravity]) {}))
	assert.False(t, Conflicts(a, b))
	assert.True(t, Conflicts(a, c))
	assert.True(t, Conflicts(a, m), "exclusive conflicts with everything")
}
