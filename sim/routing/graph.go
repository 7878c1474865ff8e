// Package routing implements the path index: a turn-expanded search graph
// over the road network with a contraction hierarchy on top, answering
// point-to-point queries and absorbing localized network edits without a
// wholesale rebuild.
//
// Search nodes are turns, not intersections. A turn uniquely identifies the
// (incoming-lane, intersection) pair, so a restriction spanning two
// intersections ("no left after arriving via X") reduces to the absence of
// an arc between two specific nodes. Plain shortest-path search then handles
// turn restrictions with no special casing.
package routing

import (
	"math"
	"sort"

	"github.com/traffic-sim/traffic-sim/sim/network"
)

// Inf is the arc weight standing in for "unusable" (closed lane, removed
// turn). Kept well below MaxInt64 so sums never overflow.
const Inf = int64(math.MaxInt64 / 4)

// arc is one directed connection between two turn nodes in the expanded graph.
type arc struct {
	to   int
	turn network.TurnID // the turn executed when traversing this arc (head node's turn)
}

// expandedGraph is the turn-expanded search graph for a single travel mode.
// Topology is fixed at build time except for explicit node insertion;
// weights are always derived from the current network snapshot.
type expandedGraph struct {
	mode        network.TravelMode
	turnPenalty int64
	net         *network.Network

	nodes    []network.TurnID // node index -> turn id
	idx      map[network.TurnID]int
	out      [][]arc
	in       [][]arc
	disabled []bool // tombstoned nodes (removed turns)
}

// travelTicks returns the time in ticks to traverse the lane at
// min(lane limit, mode max), or Inf if the lane is closed or forbids the mode.
func travelTicks(l *network.Lane, mode network.TravelMode) int64 {
	if l == nil || l.Closed || !l.AllowsMode(mode) {
		return Inf
	}
	speed := l.SpeedLimit
	if m := mode.MaxSpeed(); m < speed {
		speed = m
	}
	if speed <= 0 {
		return Inf
	}
	return int64(math.Ceil(l.Length / speed * 1000.0))
}

// newExpandedGraph builds the turn-expanded graph for one mode. Turns whose
// lanes forbid the mode are excluded entirely; restriction groups remove the
// arc between the two turns they span.
func newExpandedGraph(net *network.Network, mode network.TravelMode, turnPenalty int64) *expandedGraph {
	g := &expandedGraph{
		mode:        mode,
		turnPenalty: turnPenalty,
		net:         net,
		idx:         make(map[network.TurnID]int),
	}
	for _, tid := range net.TurnIDs() {
		t := net.Turn(tid)
		from, to := net.Lane(t.From), net.Lane(t.To)
		if !from.AllowsMode(mode) || !to.AllowsMode(mode) {
			continue
		}
		g.idx[tid] = len(g.nodes)
		g.nodes = append(g.nodes, tid)
	}
	g.out = make([][]arc, len(g.nodes))
	g.in = make([][]arc, len(g.nodes))
	g.disabled = make([]bool, len(g.nodes))

	for ui, uid := range g.nodes {
		u := net.Turn(uid)
		for _, v := range net.TurnsFrom(u.To) {
			vi, ok := g.idx[v.ID]
			if !ok {
				continue
			}
			if u.Restriction != "" && u.Restriction == v.Restriction {
				// The restriction group spans these two turns: taking u
				// forbids following with v.
				continue
			}
			g.out[ui] = append(g.out[ui], arc{to: vi, turn: v.ID})
			g.in[vi] = append(g.in[vi], arc{to: ui, turn: v.ID})
		}
	}
	return g
}

// nodeCost is the cost of executing the node's turn and traversing its
// target lane. It is the weight of every arc whose head is this node, and
// the initial label of a forward search source.
func (g *expandedGraph) nodeCost(i int) int64 {
	if g.disabled[i] {
		return Inf
	}
	t := g.net.Turn(g.nodes[i])
	if t == nil {
		return Inf
	}
	if from := g.net.Lane(t.From); from == nil || from.Closed {
		return Inf
	}
	tt := travelTicks(g.net.Lane(t.To), g.mode)
	if tt >= Inf {
		return Inf
	}
	return g.turnPenalty + tt
}

// addNode inserts a turn as a new node (network edit: turn added) and wires
// its arcs. Returns the new node index, or -1 if the turn's lanes forbid the
// graph's mode.
func (g *expandedGraph) addNode(t *network.Turn) int {
	from, to := g.net.Lane(t.From), g.net.Lane(t.To)
	if from == nil || to == nil || !from.AllowsMode(g.mode) || !to.AllowsMode(g.mode) {
		return -1
	}
	ni := len(g.nodes)
	g.idx[t.ID] = ni
	g.nodes = append(g.nodes, t.ID)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	g.disabled = append(g.disabled, false)

	// Predecessors: turns ending on the new turn's from-lane.
	for _, u := range g.net.TurnsTo(t.From) {
		ui, ok := g.idx[u.ID]
		if !ok || ui == ni {
			continue
		}
		if u.Restriction != "" && u.Restriction == t.Restriction {
			continue
		}
		g.out[ui] = append(g.out[ui], arc{to: ni, turn: t.ID})
		g.in[ni] = append(g.in[ni], arc{to: ui, turn: t.ID})
	}
	// Successors: turns leaving the new turn's to-lane.
	for _, v := range g.net.TurnsFrom(t.To) {
		vi, ok := g.idx[v.ID]
		if !ok || vi == ni {
			continue
		}
		if t.Restriction != "" && t.Restriction == v.Restriction {
			continue
		}
		g.out[ni] = append(g.out[ni], arc{to: vi, turn: v.ID})
		g.in[vi] = append(g.in[vi], arc{to: ni, turn: v.ID})
	}
	return ni
}

// disableNode tombstones a removed turn. Topology stays; every arc through
// the node prices at Inf.
func (g *expandedGraph) disableNode(tid network.TurnID) int {
	i, ok := g.idx[tid]
	if !ok {
		return -1
	}
	g.disabled[i] = true
	return i
}

// sourceNodes returns the usable turn nodes leaving the given lane, sorted
// by node index for determinism.
func (g *expandedGraph) sourceNodes(lane network.LaneID) []int {
	var out []int
	for _, t := range g.net.TurnsFrom(lane) {
		if i, ok := g.idx[t.ID]; ok && !g.disabled[i] {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// targetNodes returns the usable turn nodes entering the given lane.
func (g *expandedGraph) targetNodes(lane network.LaneID) []int {
	var out []int
	for _, t := range g.net.TurnsTo(lane) {
		if i, ok := g.idx[t.ID]; ok && !g.disabled[i] {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}
