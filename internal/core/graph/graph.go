// Package graph is a small directed graph over dense integer node ids, used to
// linearize systems and phases. It has no knowledge of what a node stands for.
package graph

import (
	"errors"
	"fmt"
	"sort"
)

// NodeID identifies a node. Ids are dense and assigned in registration order.
type NodeID uint32

var (
	ErrSelfArrow   = errors.New("graph: arrow from a node to itself")
	ErrUnknownNode = errors.New("graph: unknown node")
)

// Arrow is a directed edge: From must be ordered before To.
type Arrow struct {
	From NodeID
	To   NodeID
}

func (a Arrow) String() string { return fmt.Sprintf("%d->%d", a.From, a.To) }

type node struct {
	weight   uint64
	incoming map[NodeID]struct{}
	outgoing map[NodeID]struct{}
}

// Graph is not safe for concurrent mutation. Sort does not modify the receiver.
type Graph struct {
	nodes []node
}

func New() *Graph {
	return &Graph{nodes: make([]node, 0, 16)}
}

// AddNode registers a node. Weight is a tie-break hint: among nodes that are
// otherwise unconstrained, the heavier one sorts first.
func (g *Graph) AddNode(weight uint64) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, node{
		weight:   weight,
		incoming: make(map[NodeID]struct{}),
		outgoing: make(map[NodeID]struct{}),
	})
	return id
}

// AddArrow records that from runs before to. Adding an existing arrow is a no-op.
func (g *Graph) AddArrow(from, to NodeID) error {
	if from == to {
		return fmt.Errorf("%w: %d", ErrSelfArrow, from)
	}
	if !g.has(from) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, from)
	}
	if !g.has(to) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, to)
	}
	g.nodes[from].outgoing[to] = struct{}{}
	g.nodes[to].incoming[from] = struct{}{}
	return nil
}

// RemoveArrow deletes an arrow if present.
func (g *Graph) RemoveArrow(from, to NodeID) {
	if g.has(from) && g.has(to) {
		g.removeArrow(from, to)
	}
}

func (g *Graph) HasArrow(from, to NodeID) bool {
	if !g.has(from) {
		return false
	}
	_, ok := g.nodes[from].outgoing[to]
	return ok
}

func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) Weight(id NodeID) uint64 {
	if !g.has(id) {
		return 0
	}
	return g.nodes[id].weight
}

func (g *Graph) SetWeight(id NodeID, weight uint64) {
	if g.has(id) {
		g.nodes[id].weight = weight
	}
}

// Incoming returns the predecessors of id in ascending order.
func (g *Graph) Incoming(id NodeID) []NodeID {
	if !g.has(id) {
		return nil
	}
	return sortedKeys(g.nodes[id].incoming)
}

// Outgoing returns the successors of id in ascending order.
func (g *Graph) Outgoing(id NodeID) []NodeID {
	if !g.has(id) {
		return nil
	}
	return sortedKeys(g.nodes[id].outgoing)
}

// Arrows returns every arrow, ordered by source then destination.
func (g *Graph) Arrows() []Arrow {
	var out []Arrow
	for i := range g.nodes {
		for _, to := range sortedKeys(g.nodes[i].outgoing) {
			out = append(out, Arrow{From: NodeID(i), To: to})
		}
	}
	return out
}

// Clone returns a deep copy.
func (g *Graph) Clone() *Graph {
	c := &Graph{nodes: make([]node, len(g.nodes), cap(g.nodes))}
	for i, n := range g.nodes {
		cn := node{
			weight:   n.weight,
			incoming: make(map[NodeID]struct{}, len(n.incoming)),
			outgoing: make(map[NodeID]struct{}, len(n.outgoing)),
		}
		for k := range n.incoming {
			cn.incoming[k] = struct{}{}
		}
		for k := range n.outgoing {
			cn.outgoing[k] = struct{}{}
		}
		c.nodes[i] = cn
	}
	return c
}

func (g *Graph) has(id NodeID) bool { return int(id) < len(g.nodes) }

func (g *Graph) removeArrow(from, to NodeID) {
	delete(g.nodes[from].outgoing, to)
	delete(g.nodes[to].incoming, from)
}

func sortedKeys(m map[NodeID]struct{}) []NodeID {
	out := make([]NodeID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
