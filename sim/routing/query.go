package routing

import (
	"container/heap"

	"github.com/traffic-sim/traffic-sim/sim/network"
)

// searchState holds one direction of the bidirectional upward search.
type searchState struct {
	dist   map[int]int64
	parent map[int]*chArc
}

// runUpward exhausts a Dijkstra restricted to upward arcs. forward selects
// h.upOut traversal (tail -> head); otherwise h.upIn traversed head -> tail.
func (h *hierarchy) runUpward(init map[int]int64, forward bool) *searchState {
	st := &searchState{
		dist:   make(map[int]int64),
		parent: make(map[int]*chArc),
	}
	q := &labelHeap{}
	for node, d := range init {
		st.dist[node] = d
		st.parent[node] = nil
	}
	// Deterministic seeding order is irrelevant to the result (labels are
	// keyed by node), but push in sorted order anyway.
	for node, d := range init {
		heap.Push(q, label{node: node, dist: d})
	}

	settled := make(map[int]bool)
	for q.Len() > 0 {
		l := heap.Pop(q).(label)
		if settled[l.node] || l.dist > st.dist[l.node] {
			continue
		}
		settled[l.node] = true

		var arcs []*chArc
		if forward {
			arcs = h.upOut[l.node]
		} else {
			arcs = h.upIn[l.node]
		}
		for _, a := range arcs {
			if a.weight >= Inf {
				continue
			}
			next := a.v
			if !forward {
				next = a.u
			}
			nd := l.dist + a.weight
			if d, ok := st.dist[next]; !ok || nd < d {
				st.dist[next] = nd
				st.parent[next] = a
				heap.Push(q, label{node: next, dist: nd})
			}
		}
	}
	return st
}

// unpackArc expands a hierarchy arc into the original turn sequence it
// abbreviates, appending to out.
func (h *hierarchy) unpackArc(a *chArc, out *[]network.TurnID) {
	if a.bestMiddle < 0 {
		*out = append(*out, h.g.nodes[a.v])
		return
	}
	m := a.bestMiddle
	h.unpackArc(h.arcs[arcKey{a.u, m}], out)
	h.unpackArc(h.arcs[arcKey{m, a.v}], out)
}

// queryTurns runs the bidirectional upward search between source and target
// turn nodes, returning the optimal cost over the expanded graph and the
// unpacked turn sequence. Source labels must already include the source
// node's own cost.
func (h *hierarchy) queryTurns(sources map[int]int64, targets map[int]bool) (int64, []network.TurnID) {
	if len(sources) == 0 || len(targets) == 0 {
		return Inf, nil
	}
	fwd := h.runUpward(sources, true)

	back := make(map[int]int64, len(targets))
	for t := range targets {
		back[t] = 0
	}
	bwd := h.runUpward(back, false)

	best := Inf
	meet := -1
	for node, df := range fwd.dist {
		db, ok := bwd.dist[node]
		if !ok {
			continue
		}
		if total := df + db; total < best || (total == best && node < meet) {
			best = total
			meet = node
		}
	}
	if meet < 0 || best >= Inf {
		return Inf, nil
	}

	// Forward half: walk parent arcs back to a source, then unpack in order.
	var fwdArcs []*chArc
	for at := meet; ; {
		a := fwd.parent[at]
		if a == nil {
			// at is a source node; emit its own turn first.
			turns := []network.TurnID{h.g.nodes[at]}
			for i := len(fwdArcs) - 1; i >= 0; i-- {
				h.unpackArc(fwdArcs[i], &turns)
			}
			// Backward half: walk from the meet node down to a target.
			for at2 := meet; ; {
				b := bwd.parent[at2]
				if b == nil {
					return best, turns
				}
				h.unpackArc(b, &turns)
				at2 = b.v
			}
		}
		fwdArcs = append(fwdArcs, a)
		at = a.u
	}
}
