package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stage int

const (
	first stage = iota
	second
	third
)

func TestAddPhase_Idempotent(t *testing.T) {
	l := NewLayer()
	a := l.AddPhase("a")
	assert.Equal(t, a, l.AddPhase("a"))
	assert.NotEqual(t, Default, a)
	assert.NotEqual(t, a, l.AddPhase(stage(0)))
	assert.Equal(t, 3, l.Len())
}

func TestAddPhaseChain_OrdersNeighbours(t *testing.T) {
	l := NewLayer()
	ids := l.AddPhaseChain(third, first, second)
	require.Len(t, ids, 3)
	assert.True(t, l.Precedes(ids[0], ids[1]))
	assert.True(t, l.Precedes(ids[1], ids[2]))
	assert.False(t, l.Precedes(ids[0], ids[2]))
	assert.Equal(t, ids, l.SortPhases())
}

func TestSortPhases_UnchainedKeepsRegistrationOrder(t *testing.T) {
	l := NewLayer()
	a := l.AddPhase("a")
	b := l.AddPhase("b")
	c := l.AddPhase("c")
	require.NoError(t, l.Order("c", "a"))
	assert.Equal(t, []ID{b, c, a}, l.SortPhases())
}

func TestOrder_UnknownPhase(t *testing.T) {
	l := NewLayer()
	l.AddPhase("known")
	assert.ErrorIs(t, l.Order("known", "missing"), ErrUnknownPhase)
	assert.ErrorIs(t, l.Order("missing", "known"), ErrUnknownPhase)
	assert.NoError(t, l.Order("known", "known"))
}

func TestMarkers(t *testing.T) {
	l := NewLayer()
	a := l.AddPhase("a")
	b := l.AddPhase("b")
	assert.Equal(t, []ID{a, b}, l.UninitializedPhases())

	l.SetMarkers(a, 12, 12)
	assert.Equal(t, []ID{b}, l.UninitializedPhases())
	barrier, ok := l.Barrier(a)
	assert.True(t, ok)
	assert.Equal(t, uint32(12), barrier)
	_, ok = l.Barrier(b)
	assert.False(t, ok)

	l.SetMarkers(Default, 1, 1)
	_, ok = l.Barrier(Default)
	assert.False(t, ok)
}

func TestChainCycleStillSorts(t *testing.T) {
	l := NewLayer()
	l.AddPhaseChain("x", "y")
	l.AddPhaseChain("y", "x")
	assert.Len(t, l.SortPhases(), 2)
}
