package routing

import (
	"errors"
	"fmt"

	"github.com/traffic-sim/traffic-sim/sim/network"
)

// ErrNoRouteFound is the normal, non-fatal outcome of a query whose
// destination is unreachable for the requested mode. Callers typically count
// the traveler as never-spawned and continue.
var ErrNoRouteFound = errors.New("no route found")

// PathID identifies one issued path for invalidation on network edits.
type PathID uint64

// Path is a concrete lane/turn sequence from origin to destination.
// Lanes and Turns alternate: Lanes[i] -> Turns[i] -> Lanes[i+1]; the final
// lane is the destination. Epoch records the index generation the path was
// computed against; an edit that may invalidate the path reports its ID and
// bumps the index epoch.
type Path struct {
	ID     PathID
	Origin network.LaneID
	Dest   network.LaneID
	Lanes  []network.LaneID
	Turns  []network.TurnID
	Cost   int64 // ticks, includes full traversal of origin and destination lanes
	Epoch  uint64
}

// NextLane returns the lane following the given lane on the path, and the
// turn connecting them. ok is false at the destination or off-path lanes.
func (p *Path) NextLane(after network.LaneID) (network.LaneID, network.TurnID, bool) {
	for i, l := range p.Lanes {
		if l == after {
			if i+1 < len(p.Lanes) {
				return p.Lanes[i+1], p.Turns[i], true
			}
			return "", "", false
		}
	}
	return "", "", false
}

// Contains reports whether the path traverses the given lane.
func (p *Path) Contains(lane network.LaneID) bool {
	for _, l := range p.Lanes {
		if l == lane {
			return true
		}
	}
	return false
}

func (p *Path) String() string {
	return fmt.Sprintf("Path(%d: %s->%s, %d lanes, cost=%d, epoch=%d)",
		p.ID, p.Origin, p.Dest, len(p.Lanes), p.Cost, p.Epoch)
}
