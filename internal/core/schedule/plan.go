package schedule

import (
	"github.com/l1jgo/tickrun/internal/core/graph"
	"github.com/l1jgo/tickrun/internal/core/system"
)

// Plan is a compiled schedule: a valid execution order plus, for parallel
// dispatch, each entry's count of predecessors and its successors. Incoming
// and Dependents are indexed by position in Order, not by system id.
type Plan struct {
	Order      []system.ID
	Incoming   []int
	Dependents [][]int
	Initial    int
	// Dropped lists arrows discarded to break cycles.
	Dropped []graph.Arrow

	positions []int
}

func newPlan(g *graph.Graph, order []graph.NodeID, dropped []graph.Arrow) *Plan {
	p := &Plan{
		Order:      make([]system.ID, len(order)),
		Incoming:   make([]int, len(order)),
		Dependents: make([][]int, len(order)),
		Dropped:    dropped,
		positions:  make([]int, len(order)),
	}
	for pos, n := range order {
		p.Order[pos] = system.ID(n)
		p.positions[n] = pos
	}
	for pos, n := range order {
		p.Incoming[pos] = len(g.Incoming(n))
		if p.Incoming[pos] == 0 {
			p.Initial++
		}
		for _, next := range g.Outgoing(n) {
			p.Dependents[pos] = append(p.Dependents[pos], p.positions[next])
		}
	}
	return p
}

func (p *Plan) Len() int { return len(p.Order) }

// Position returns where id sits in Order.
func (p *Plan) Position(id system.ID) (int, bool) {
	if int(id) >= len(p.positions) {
		return 0, false
	}
	return p.positions[id], true
}

// Before reports whether a is ordered ahead of b.
func (p *Plan) Before(a, b system.ID) bool {
	pa, okA := p.Position(a)
	pb, okB := p.Position(b)
	return okA && okB && pa < pb
}
