package schedule

import (
	"fmt"

	"github.com/l1jgo/tickrun/internal/core/graph"
	"github.com/l1jgo/tickrun/internal/core/phase"
	"github.com/l1jgo/tickrun/internal/core/system"
	"go.uber.org/multierr"
)

// Planner owns the system graph of one schedule and compiles it into Plans.
// Graph nodes and systems are registered 1:1, so a system's id is its node id.
type Planner struct {
	graph *graph.Graph
	metas []*system.Meta
}

func NewPlanner() *Planner {
	return &Planner{graph: graph.New()}
}

// Add registers a system node and assigns meta.ID.
func (p *Planner) Add(meta *system.Meta) system.ID {
	id := system.ID(p.graph.AddNode(meta.Priority))
	meta.ID = id
	p.metas = append(p.metas, meta)
	return id
}

func (p *Planner) Len() int { return len(p.metas) }

func (p *Planner) Meta(id system.ID) *system.Meta {
	if int(id) >= len(p.metas) {
		return nil
	}
	return p.metas[id]
}

// Metas returns the metadata slice indexed by system id.
func (p *Planner) Metas() []*system.Meta { return p.metas }

// Order adds an explicit arrow: before must finish before after starts.
func (p *Planner) Order(before, after system.ID) error {
	return p.graph.AddArrow(graph.NodeID(before), graph.NodeID(after))
}

// SetPriority updates the sort weight of id.
func (p *Planner) SetPriority(id system.ID, w uint64) {
	p.graph.SetWeight(graph.NodeID(id), w)
}

// Plan compiles the current graph. Each phase's systems are wired to finish
// before that phase's barrier, and to start after the previous phase's
// barrier in phaseOrder, which costs O(systems + phases) arrows instead of
// one per pair of systems. Consecutive barriers are chained as well so an
// empty phase still separates its neighbours.
func (p *Planner) Plan(layer *phase.Layer, phaseOrder []phase.ID) (*Plan, error) {
	g := p.graph.Clone()
	var errs error
	arrow := func(from, to uint32) {
		if err := g.AddArrow(graph.NodeID(from), graph.NodeID(to)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	predecessor := make(map[phase.ID]uint32, len(phaseOrder))
	for i := 1; i < len(phaseOrder); i++ {
		prev, ok := layer.Barrier(phaseOrder[i-1])
		if !ok {
			continue
		}
		predecessor[phaseOrder[i]] = prev
		if next, ok := layer.Barrier(phaseOrder[i]); ok {
			arrow(prev, next)
		}
	}

	for _, m := range p.metas {
		if m.Flush || !m.HasPhase {
			continue
		}
		barrier, ok := layer.Barrier(m.Phase)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("phase %s has no barrier", layer.Name(m.Phase)))
			continue
		}
		arrow(uint32(m.ID), barrier)
		if prev, ok := predecessor[m.Phase]; ok {
			arrow(prev, uint32(m.ID))
		}
	}
	if errs != nil {
		return nil, fmt.Errorf("plan: %w", errs)
	}

	order, dropped := g.SortReport()
	for _, a := range dropped {
		g.RemoveArrow(a.From, a.To)
	}
	return newPlan(g, order, dropped), nil
}
