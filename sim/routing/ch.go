package routing

import "container/heap"

// arcKey identifies one directed hierarchy arc by endpoint node indices.
type arcKey struct{ u, v int }

// chArc is a hierarchy arc: an original expanded-graph arc, a shortcut, or
// both collapsed into one entry. Weight is derived by customization from the
// base arc (if present) and the recorded contraction middles.
type chArc struct {
	u, v       int
	weight     int64
	hasBase    bool
	middles    []int
	bestMiddle int // -1 = base arc realizes the weight
	dirty      bool
}

// hierarchy is the contraction hierarchy over an expandedGraph. The node
// order and shortcut topology are weight-independent; localized edits only
// re-derive arc weights (customization), so a patched index answers queries
// identically to a rebuilt one.
type hierarchy struct {
	g     *expandedGraph
	rank  []int // node -> rank
	order []int // rank -> node

	arcs     map[arcKey]*chArc
	upOut    [][]*chArc // arcs u->v with rank(v) > rank(u), indexed by u
	upIn     [][]*chArc // arcs u->v with rank(u) > rank(v), indexed by v
	headArcs [][]*chArc // all arcs with head v, indexed by v
}

// contractCandidate pairs a node with its cached importance score for the
// lazy-update ordering heap.
type contractCandidate struct {
	node  int
	score int
}

type candidateHeap []contractCandidate

func (h candidateHeap) Len() int { return len(h) }
func (h candidateHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].node < h[j].node
}
func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)   { *h = append(*h, x.(contractCandidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// buildHierarchy contracts every node of g in edge-difference order,
// recording shortcut arcs, then customizes all weights.
func buildHierarchy(g *expandedGraph) *hierarchy {
	n := len(g.nodes)
	h := &hierarchy{
		g:     g,
		rank:  make([]int, n),
		order: make([]int, 0, n),
		arcs:  make(map[arcKey]*chArc),
	}

	// Remaining-graph adjacency, mutated as nodes contract.
	remOut := make([]map[int]bool, n)
	remIn := make([]map[int]bool, n)
	for i := 0; i < n; i++ {
		remOut[i] = make(map[int]bool)
		remIn[i] = make(map[int]bool)
	}
	for u := range g.out {
		for _, a := range g.out[u] {
			if a.to != u {
				remOut[u][a.to] = true
				remIn[a.to][u] = true
			}
		}
		for _, a := range g.out[u] {
			h.ensureArc(u, a.to).hasBase = true
		}
	}

	contracted := make([]bool, n)

	// Edge difference: shortcuts this contraction would add, minus arcs it
	// removes. Lazy re-evaluation keeps the ordering cheap.
	score := func(x int) int {
		shortcuts := 0
		for u := range remIn[x] {
			for v := range remOut[x] {
				if u == v {
					continue
				}
				if !remOut[u][v] {
					shortcuts++
				}
			}
		}
		return shortcuts - len(remIn[x]) - len(remOut[x])
	}

	cands := make(candidateHeap, 0, n)
	for i := 0; i < n; i++ {
		cands = append(cands, contractCandidate{node: i, score: score(i)})
	}
	heap.Init(&cands)

	for len(h.order) < n {
		c := heap.Pop(&cands).(contractCandidate)
		if contracted[c.node] {
			continue
		}
		if fresh := score(c.node); fresh > c.score {
			// Stale score; push back and retry.
			heap.Push(&cands, contractCandidate{node: c.node, score: fresh})
			continue
		}
		x := c.node
		h.rank[x] = len(h.order)
		h.order = append(h.order, x)
		contracted[x] = true

		for u := range remIn[x] {
			for v := range remOut[x] {
				if u == v {
					continue
				}
				a := h.ensureArc(u, v)
				a.middles = append(a.middles, x)
				if !remOut[u][v] {
					remOut[u][v] = true
					remIn[v][u] = true
				}
			}
		}
		for u := range remIn[x] {
			delete(remOut[u], x)
		}
		for v := range remOut[x] {
			delete(remIn[v], x)
		}
	}

	h.index()
	h.customizeFrom(0)
	return h
}

// ensureArc returns the hierarchy arc u->v, creating it if absent.
func (h *hierarchy) ensureArc(u, v int) *chArc {
	k := arcKey{u, v}
	if a, ok := h.arcs[k]; ok {
		return a
	}
	a := &chArc{u: u, v: v, weight: Inf, bestMiddle: -1}
	h.arcs[k] = a
	return a
}

// index (re)slots every arc into the upward adjacency lists by rank.
func (h *hierarchy) index() {
	n := len(h.g.nodes)
	h.upOut = make([][]*chArc, n)
	h.upIn = make([][]*chArc, n)
	h.headArcs = make([][]*chArc, n)
	for _, a := range h.arcs {
		h.slotArc(a)
	}
	// Deterministic adjacency order for searches and customization.
	for i := 0; i < n; i++ {
		sortArcsByHead(h.upOut[i])
		sortArcsByTail(h.upIn[i])
		sortArcsByTail(h.headArcs[i])
	}
}

func (h *hierarchy) slotArc(a *chArc) {
	if h.rank[a.v] > h.rank[a.u] {
		h.upOut[a.u] = append(h.upOut[a.u], a)
	} else {
		h.upIn[a.v] = append(h.upIn[a.v], a)
	}
	h.headArcs[a.v] = append(h.headArcs[a.v], a)
}

func sortArcsByHead(arcs []*chArc) {
	for i := 1; i < len(arcs); i++ {
		for j := i; j > 0 && arcs[j].v < arcs[j-1].v; j-- {
			arcs[j], arcs[j-1] = arcs[j-1], arcs[j]
		}
	}
}

func sortArcsByTail(arcs []*chArc) {
	for i := 1; i < len(arcs); i++ {
		for j := i; j > 0 && arcs[j].u < arcs[j-1].u; j-- {
			arcs[j], arcs[j-1] = arcs[j-1], arcs[j]
		}
	}
}

// customizeFrom re-derives arc weights for every arc whose lower endpoint has
// rank >= minRank, sweeping nodes in ascending rank order and relaxing lower
// triangles. Arcs below minRank are untouched; every arc transitively
// affected by a base-weight change at or above minRank is inside the reset
// set, so the result matches a full customization.
func (h *hierarchy) customizeFrom(minRank int) {
	for _, a := range h.arcs {
		lower := h.rank[a.u]
		if h.rank[a.v] < lower {
			lower = h.rank[a.v]
		}
		if lower >= minRank {
			a.dirty = true
			a.bestMiddle = -1
			if a.hasBase {
				a.weight = h.g.nodeCost(a.v)
			} else {
				a.weight = Inf
			}
		}
	}

	for r := 0; r < len(h.order); r++ {
		x := h.order[r]
		for _, in := range h.upIn[x] { // u -> x, rank(u) > rank(x)
			if in.weight >= Inf {
				continue
			}
			for _, out := range h.upOut[x] { // x -> v, rank(v) > rank(x)
				if out.weight >= Inf || in.u == out.v {
					continue
				}
				target := h.arcs[arcKey{in.u, out.v}]
				if target == nil || !target.dirty {
					continue
				}
				if cand := in.weight + out.weight; cand < target.weight {
					target.weight = cand
					target.bestMiddle = x
				}
			}
		}
	}

	for _, a := range h.arcs {
		a.dirty = false
	}
}

// insertNode extends the hierarchy with a node added to the expanded graph
// after the build (turn added by an edit). The node takes the top rank; the
// triangle closure restores the contraction invariant for its new arcs.
// Returns the minimum lower-endpoint rank among created arcs, so the caller
// knows where recustomization must start (len(order) when nothing was added).
func (h *hierarchy) insertNode(ni int) int {
	h.rank = append(h.rank, len(h.order))
	h.order = append(h.order, ni)
	h.upOut = append(h.upOut, nil)
	h.upIn = append(h.upIn, nil)
	h.headArcs = append(h.headArcs, nil)

	minRank := len(h.order)
	var queue []*chArc
	created := func(a *chArc) {
		h.slotArc(a)
		queue = append(queue, a)
		lower := h.rank[a.u]
		if h.rank[a.v] < lower {
			lower = h.rank[a.v]
		}
		if lower < minRank {
			minRank = lower
		}
	}

	for _, ga := range h.g.out[ni] {
		a := h.ensureArc(ni, ga.to)
		a.hasBase = true
		created(a)
	}
	for _, ga := range h.g.in[ni] {
		a := h.ensureArc(ga.to, ni)
		a.hasBase = true
		created(a)
	}

	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]
		if h.rank[a.u] < h.rank[a.v] {
			// a is an out-arc at its lower endpoint u: pair with in-arcs at u.
			for _, in := range h.upIn[a.u] {
				h.closeTriangle(in.u, a.v, a.u, created)
			}
		} else {
			// a is an in-arc at its lower endpoint v: pair with out-arcs at v.
			for _, out := range h.upOut[a.v] {
				h.closeTriangle(a.u, out.v, a.v, created)
			}
		}
	}

	for i := range h.upOut {
		sortArcsByHead(h.upOut[i])
		sortArcsByTail(h.upIn[i])
		sortArcsByTail(h.headArcs[i])
	}
	return minRank
}

// closeTriangle makes sure arc u->v exists with middle m recorded, handing a
// newly created arc to created for slotting and further closure.
func (h *hierarchy) closeTriangle(u, v, m int, created func(*chArc)) {
	if u == v {
		return
	}
	a, ok := h.arcs[arcKey{u, v}]
	if !ok {
		a = h.ensureArc(u, v)
		created(a)
	}
	for _, existing := range a.middles {
		if existing == m {
			return
		}
	}
	a.middles = append(a.middles, m)
}
