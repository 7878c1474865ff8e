package routing

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/traffic-sim/traffic-sim/sim/network"
)

// Config groups the path index policy parameters.
type Config struct {
	// TurnPenalty is the fixed cost in ticks added per executed turn.
	TurnPenalty int64
	// RebuildThreshold bounds the re-customized region of a localized edit:
	// when more than this many node ranks must be reprocessed, the index
	// falls back to a full rebuild.
	RebuildThreshold int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		TurnPenalty:      2000,
		RebuildThreshold: 128,
	}
}

// Index is the hierarchical shortest-path structure for one travel mode.
// Build once per network load; ApplyEdit patches it in place. Not safe for
// concurrent use; the caller must not overlap edits with queries.
type Index struct {
	cfg  Config
	mode network.TravelMode
	net  *network.Network
	g    *expandedGraph
	ch   *hierarchy

	epoch  uint64
	issued map[PathID]*Path
	nextID PathID
}

// Build constructs the index for the given network and mode.
func Build(net *network.Network, mode network.TravelMode, cfg Config) *Index {
	g := newExpandedGraph(net, mode, cfg.TurnPenalty)
	ch := buildHierarchy(g)
	logrus.Infof("path index built: mode=%s nodes=%d arcs=%d", mode, len(g.nodes), len(ch.arcs))
	return &Index{
		cfg:    cfg,
		mode:   mode,
		net:    net,
		g:      g,
		ch:     ch,
		issued: make(map[PathID]*Path),
	}
}

// Network returns the network snapshot the index currently answers against.
func (ix *Index) Network() *network.Network { return ix.net }

// Mode returns the travel mode the index was built for.
func (ix *Index) Mode() network.TravelMode { return ix.mode }

// Epoch returns the current index generation; it increments on every applied
// edit.
func (ix *Index) Epoch() uint64 { return ix.epoch }

// Query returns the minimum-cost path from origin to dest respecting turn
// restrictions, or ErrNoRouteFound when dest is unreachable for the index's
// mode. Issued paths are registered for invalidation tracking until released.
func (ix *Index) Query(origin, dest network.LaneID) (*Path, error) {
	ol := ix.net.Lane(origin)
	if ol == nil {
		return nil, fmt.Errorf("query: unknown origin lane %q", origin)
	}
	dl := ix.net.Lane(dest)
	if dl == nil {
		return nil, fmt.Errorf("query: unknown destination lane %q", dest)
	}
	if ol.Closed || !ol.AllowsMode(ix.mode) || dl.Closed || !dl.AllowsMode(ix.mode) {
		return nil, fmt.Errorf("%w: %s -> %s (mode %s)", ErrNoRouteFound, origin, dest, ix.mode)
	}

	if origin == dest {
		return ix.issue(origin, dest, []network.LaneID{origin}, nil, travelTicks(ol, ix.mode)), nil
	}

	sources := make(map[int]int64)
	for _, s := range ix.g.sourceNodes(origin) {
		if c := ix.g.nodeCost(s); c < Inf {
			sources[s] = c
		}
	}
	targets := make(map[int]bool)
	for _, t := range ix.g.targetNodes(dest) {
		targets[t] = true
	}

	cost, turns := ix.ch.queryTurns(sources, targets)
	if cost >= Inf {
		return nil, fmt.Errorf("%w: %s -> %s (mode %s)", ErrNoRouteFound, origin, dest, ix.mode)
	}

	lanes := make([]network.LaneID, 0, len(turns)+1)
	lanes = append(lanes, origin)
	for _, tid := range turns {
		lanes = append(lanes, ix.net.Turn(tid).To)
	}
	total := travelTicks(ol, ix.mode) + cost
	return ix.issue(origin, dest, lanes, turns, total), nil
}

func (ix *Index) issue(origin, dest network.LaneID, lanes []network.LaneID, turns []network.TurnID, cost int64) *Path {
	ix.nextID++
	p := &Path{
		ID:     ix.nextID,
		Origin: origin,
		Dest:   dest,
		Lanes:  lanes,
		Turns:  turns,
		Cost:   cost,
		Epoch:  ix.epoch,
	}
	ix.issued[p.ID] = p
	return p
}

// Release drops an issued path from invalidation tracking. Called when its
// traveler reaches a terminal state.
func (ix *Index) Release(id PathID) {
	delete(ix.issued, id)
}

// ApplyEdit patches the index for a localized network mutation and returns
// the IDs of previously issued paths that may no longer be valid or optimal.
// The edit is atomic: on ErrInvalidEdit the index is unchanged. When the
// touched region is small the hierarchy keeps its topology and only
// re-derives weights from the edited rank upward; otherwise it rebuilds.
func (ix *Index) ApplyEdit(cs *network.ChangeSet) ([]PathID, error) {
	newNet, err := ix.net.Apply(cs)
	if err != nil {
		return nil, err
	}
	costDecrease := cs.HasCostDecrease(ix.net)
	affectedLanes := cs.AffectedLanes()

	ix.net = newNet
	ix.g.net = newNet

	minRank := len(ix.ch.order)
	touch := func(node int) {
		if node < 0 {
			return
		}
		for _, a := range ix.ch.headArcs[node] {
			lower := ix.ch.rank[a.u]
			if ix.ch.rank[a.v] < lower {
				lower = ix.ch.rank[a.v]
			}
			if lower < minRank {
				minRank = lower
			}
		}
		// A source node's own label also reprices; rank of the node bounds it.
		if r := ix.ch.rank[node]; r < minRank {
			minRank = r
		}
	}

	removedTurns := make(map[network.TurnID]bool)
	for _, c := range cs.Changes {
		switch c.Kind {
		case network.ChangeRemoveTurn:
			removedTurns[c.Turn.ID] = true
			touch(ix.g.disableNode(c.Turn.ID))
		case network.ChangeAddTurn:
			if ni := ix.g.addNode(newNet.Turn(c.Turn.ID)); ni >= 0 {
				if r := ix.ch.insertNode(ni); r < minRank {
					minRank = r
				}
			}
		}
	}

	laneSet := make(map[network.LaneID]bool, len(affectedLanes))
	for _, l := range affectedLanes {
		laneSet[l] = true
	}
	for i, tid := range ix.g.nodes {
		t := newNet.Turn(tid)
		if t == nil {
			continue
		}
		if laneSet[t.From] || laneSet[t.To] {
			touch(i)
		}
	}

	if len(ix.ch.order)-minRank > ix.cfg.RebuildThreshold {
		logrus.Infof("edit touches %d of %d ranks: rebuilding path index (mode=%s)",
			len(ix.ch.order)-minRank, len(ix.ch.order), ix.mode)
		ix.g = newExpandedGraph(newNet, ix.mode, ix.cfg.TurnPenalty)
		ix.ch = buildHierarchy(ix.g)
	} else {
		logrus.Debugf("patching path index from rank %d (mode=%s)", minRank, ix.mode)
		ix.ch.customizeFrom(minRank)
	}

	ix.epoch++

	var invalidated []PathID
	for id, p := range ix.issued {
		stale := costDecrease
		if !stale {
			for _, l := range p.Lanes {
				if laneSet[l] {
					stale = true
					break
				}
			}
		}
		if !stale {
			for _, t := range p.Turns {
				if removedTurns[t] {
					stale = true
					break
				}
			}
		}
		if stale {
			invalidated = append(invalidated, id)
			delete(ix.issued, id)
		}
	}
	sort.Slice(invalidated, func(i, j int) bool { return invalidated[i] < invalidated[j] })
	return invalidated, nil
}
