// Package phase tracks named ordering groups. Phases are chained into a
// precedence graph; each phase gets one barrier system, and the planner uses
// the barriers to order every system of one phase before the next.
package phase

import (
	"errors"
	"fmt"

	"github.com/l1jgo/tickrun/internal/core/graph"
	"github.com/l1jgo/tickrun/internal/core/label"
)

// ID identifies a phase within one Layer.
type ID uint32

// Default is the implicit phase of systems that declare none. It never gets a
// barrier and never takes part in phase ordering.
const Default ID = 0

var ErrUnknownPhase = errors.New("phase: unknown phase")

// Item is one registered phase. First and Last are the system ids of its
// barrier markers once injected; a single marker serves as both.
type Item struct {
	ID         ID
	Name       string
	First      uint32
	Last       uint32
	HasMarkers bool
}

// Layer is owned by a single schedule and is not safe for concurrent use.
type Layer struct {
	labels *label.Registry
	items  []Item
	graph  *graph.Graph
}

type defaultToken struct{}

func NewLayer() *Layer {
	l := &Layer{
		labels: label.NewRegistry(),
		graph:  graph.New(),
	}
	l.AddPhase(defaultToken{})
	l.items[Default].Name = "default"
	return l
}

// AddPhase registers token and returns its id. Registering a known token
// returns the existing id.
func (l *Layer) AddPhase(token any) ID {
	lid, known := l.labels.Intern(token)
	if known {
		return ID(lid)
	}
	nid := l.graph.AddNode(0)
	if ID(nid) != ID(lid) {
		panic(fmt.Sprintf("phase: graph node %d out of step with label %d", nid, lid))
	}
	l.items = append(l.items, Item{ID: ID(lid), Name: l.labels.Name(lid)})
	return ID(lid)
}

// AddPhaseChain registers every token and orders each one before the next.
func (l *Layer) AddPhaseChain(tokens ...any) []ID {
	ids := make([]ID, len(tokens))
	for i, tok := range tokens {
		ids[i] = l.AddPhase(tok)
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] == ids[i] {
			continue
		}
		// both ids are known, self arrows are skipped above
		_ = l.graph.AddArrow(graph.NodeID(ids[i-1]), graph.NodeID(ids[i]))
	}
	return ids
}

// Order declares that phase before runs ahead of phase after. Both must
// already be registered.
func (l *Layer) Order(before, after any) error {
	b, ok := l.Lookup(before)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPhase, label.Describe(before))
	}
	a, ok := l.Lookup(after)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPhase, label.Describe(after))
	}
	if a == b {
		return nil
	}
	return l.graph.AddArrow(graph.NodeID(b), graph.NodeID(a))
}

func (l *Layer) Lookup(token any) (ID, bool) {
	id, ok := l.labels.Lookup(token)
	return ID(id), ok
}

func (l *Layer) Item(id ID) (Item, bool) {
	if int(id) >= len(l.items) {
		return Item{}, false
	}
	return l.items[id], true
}

func (l *Layer) Name(id ID) string {
	if it, ok := l.Item(id); ok {
		return it.Name
	}
	return fmt.Sprintf("phase#%d", id)
}

// Len counts registered phases including Default.
func (l *Layer) Len() int { return len(l.items) }

// UninitializedPhases lists phases, other than Default, without barrier markers.
func (l *Layer) UninitializedPhases() []ID {
	var out []ID
	for _, it := range l.items[1:] {
		if !it.HasMarkers {
			out = append(out, it.ID)
		}
	}
	return out
}

func (l *Layer) SetMarkers(id ID, first, last uint32) {
	if id == Default || int(id) >= len(l.items) {
		return
	}
	it := &l.items[id]
	it.First, it.Last, it.HasMarkers = first, last, true
}

// Barrier returns the system that completes phase id.
func (l *Layer) Barrier(id ID) (uint32, bool) {
	it, ok := l.Item(id)
	if !ok || !it.HasMarkers {
		return 0, false
	}
	return it.Last, true
}

// SortPhases linearizes the phase graph, omitting Default.
func (l *Layer) SortPhases() []ID {
	order := l.graph.Sort()
	out := make([]ID, 0, len(order))
	for _, n := range order {
		if ID(n) != Default {
			out = append(out, ID(n))
		}
	}
	return out
}

// Precedes reports whether an explicit arrow orders before ahead of after.
func (l *Layer) Precedes(before, after ID) bool {
	return l.graph.HasArrow(graph.NodeID(before), graph.NodeID(after))
}
