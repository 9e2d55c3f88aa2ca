package graph

import "sort"

// Sort returns every node exactly once, each after all of its predecessors.
// Cycles are resolved by discarding the fewest arrows needed; see SortReport.
func (g *Graph) Sort() []NodeID {
	order, _ := g.SortReport()
	return order
}

// SortReport is Sort that also returns the arrows dropped to break cycles, in
// the order they were dropped. The result is deterministic for a fixed graph.
//
// Nodes are emitted in layers: every pending node whose predecessors have all
// been emitted becomes ready at once, and a layer is ordered by weight
// descending then id ascending.
func (g *Graph) SortReport() ([]NodeID, []Arrow) {
	work := g.Clone()
	n := len(work.nodes)
	pending := make([]bool, n)
	for i := range pending {
		pending[i] = true
	}

	order := make([]NodeID, 0, n)
	var dropped []Arrow
	for remaining := n; remaining > 0; {
		ready := work.readyLayer(pending)
		if len(ready) == 0 {
			dropped = append(dropped, work.breakCycle(pending))
			continue
		}
		sort.SliceStable(ready, func(i, j int) bool {
			wi, wj := work.nodes[ready[i]].weight, work.nodes[ready[j]].weight
			if wi != wj {
				return wi > wj
			}
			return ready[i] < ready[j]
		})
		for _, id := range ready {
			pending[id] = false
		}
		remaining -= len(ready)
		order = append(order, ready...)
	}
	return order, dropped
}

func (g *Graph) readyLayer(pending []bool) []NodeID {
	var ready []NodeID
	for i := range g.nodes {
		if pending[i] && g.pendingDegree(g.nodes[i].incoming, pending) == 0 {
			ready = append(ready, NodeID(i))
		}
	}
	return ready
}

func (g *Graph) pendingDegree(set map[NodeID]struct{}, pending []bool) int {
	d := 0
	for id := range set {
		if pending[id] {
			d++
		}
	}
	return d
}

// reachable returns the pending nodes reachable from start over at least one
// arrow. start itself is included only if it lies on a cycle.
func (g *Graph) reachable(start NodeID, pending []bool) []bool {
	seen := make([]bool, len(g.nodes))
	stack := []NodeID{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for next := range g.nodes[cur].outgoing {
			if !pending[next] || seen[next] {
				continue
			}
			seen[next] = true
			stack = append(stack, next)
		}
	}
	return seen
}

// breakCycle removes one arrow from the working graph and returns it. It must
// only be called when no pending node is ready, which implies a cycle exists.
func (g *Graph) breakCycle(pending []bool) Arrow {
	reach := make([][]bool, len(g.nodes))
	var candidates []NodeID
	for i := range g.nodes {
		if !pending[i] {
			continue
		}
		reach[i] = g.reachable(NodeID(i), pending)
		if reach[i][i] {
			candidates = append(candidates, NodeID(i))
		}
	}

	// downstream: some other candidate reaches c but c does not reach it back,
	// so c sits behind another cycle and breaking it first would not help.
	downstream := func(c NodeID) bool {
		for _, o := range candidates {
			if o != c && reach[o][c] && !reach[c][o] {
				return true
			}
		}
		return false
	}

	best := candidates[0]
	bestKey := g.cycleKey(best, pending, downstream(best))
	for _, c := range candidates[1:] {
		k := g.cycleKey(c, pending, downstream(c))
		if k.less(bestKey) {
			best, bestKey = c, k
		}
	}

	var source NodeID
	found := false
	for _, s := range sortedKeys(g.nodes[best].incoming) {
		if pending[s] && reach[best][s] {
			source, found = s, true
			break
		}
	}
	if !found {
		// unreachable for a real cycle; fall back to any pending predecessor
		for _, s := range sortedKeys(g.nodes[best].incoming) {
			if pending[s] {
				source = s
				break
			}
		}
	}
	g.removeArrow(source, best)
	return Arrow{From: source, To: best}
}

type cycleKey struct {
	downstream bool
	incoming   int
	outgoing   int
	weight     uint64
	id         NodeID
}

func (g *Graph) cycleKey(id NodeID, pending []bool, downstream bool) cycleKey {
	n := g.nodes[id]
	return cycleKey{
		downstream: downstream,
		incoming:   g.pendingDegree(n.incoming, pending),
		outgoing:   g.pendingDegree(n.outgoing, pending),
		weight:     n.weight,
		id:         id,
	}
}

func (k cycleKey) less(o cycleKey) bool {
	if k.downstream != o.downstream {
		return !k.downstream
	}
	if k.incoming != o.incoming {
		return k.incoming < o.incoming
	}
	if k.outgoing != o.outgoing {
		return k.outgoing > o.outgoing
	}
	if k.weight != o.weight {
		return k.weight < o.weight
	}
	return k.id < o.id
}
