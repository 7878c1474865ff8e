package routing

import "container/heap"

// label is one entry in a Dijkstra frontier.
type label struct {
	node int
	dist int64
}

// labelHeap orders labels by distance, breaking ties on node index so
// repeated searches settle nodes in the same order.
type labelHeap []label

func (h labelHeap) Len() int { return len(h) }
func (h labelHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].node < h[j].node
}
func (h labelHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *labelHeap) Push(x any) {
	*h = append(*h, x.(label))
}

func (h *labelHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// shortestPath runs a plain Dijkstra over the full expanded graph from the
// given source nodes to any target node. It is the exact baseline the
// hierarchy is tested against, and the witness-free reference for debugging.
// Returns the best cost and the settled node sequence, or (Inf, nil) when no
// target is reachable.
func (g *expandedGraph) shortestPath(sources []int, targets map[int]bool) (int64, []int) {
	dist := make(map[int]int64, len(g.nodes))
	parent := make(map[int]int, len(g.nodes))
	h := &labelHeap{}

	for _, s := range sources {
		c := g.nodeCost(s)
		if c >= Inf {
			continue
		}
		if d, ok := dist[s]; !ok || c < d {
			dist[s] = c
			parent[s] = -1
			heap.Push(h, label{node: s, dist: c})
		}
	}

	settled := make(map[int]bool)
	for h.Len() > 0 {
		l := heap.Pop(h).(label)
		if settled[l.node] || l.dist > dist[l.node] {
			continue
		}
		settled[l.node] = true
		if targets[l.node] {
			// First settled target is optimal; materialize the node chain.
			var path []int
			for at := l.node; at != -1; at = parent[at] {
				path = append(path, at)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return l.dist, path
		}
		for _, a := range g.out[l.node] {
			w := g.nodeCost(a.to)
			if w >= Inf {
				continue
			}
			nd := l.dist + w
			if d, ok := dist[a.to]; !ok || nd < d || (nd == d && l.node < parent[a.to]) {
				dist[a.to] = nd
				parent[a.to] = l.node
				heap.Push(h, label{node: a.to, dist: nd})
			}
		}
	}
	return Inf, nil
}
