// Package network holds the immutable road network model shared read-only by
// the path index and the simulation driver: lanes, intersections, permitted
// turns and their restriction groups.
package network

import (
	"fmt"
	"sort"
)

// Identity types
type LaneID string
type IntersectionID string
type TurnID string
type RestrictionGroupID string

// TravelMode selects which travelers may use a lane and which speed cap applies.
type TravelMode string

const (
	ModeVehicle    TravelMode = "vehicle"
	ModeBike       TravelMode = "bike"
	ModePedestrian TravelMode = "pedestrian"
)

// MaxSpeed returns the mode's free-flow speed cap in m/s.
func (m TravelMode) MaxSpeed() float64 {
	switch m {
	case ModeVehicle:
		return 50.0
	case ModeBike:
		return 8.0
	case ModePedestrian:
		return 1.4
	default:
		return 0
	}
}

// IsValidMode reports whether s names a recognized travel mode.
func IsValidMode(s string) bool {
	switch TravelMode(s) {
	case ModeVehicle, ModeBike, ModePedestrian:
		return true
	}
	return false
}

// ControlType is the closed set of intersection control disciplines.
type ControlType string

const (
	ControlSignal       ControlType = "signal"
	ControlStop         ControlType = "stop"
	ControlUncontrolled ControlType = "uncontrolled"
)

// Lane is one directed travel channel of a road segment.
// A lane terminates at exactly one intersection (To).
type Lane struct {
	ID         LaneID
	Length     float64 // metres, > 0
	SpeedLimit float64 // m/s, > 0
	Modes      map[TravelMode]bool
	Capacity   int // max simultaneous travelers; 0 = derived from length
	To         IntersectionID
	Closed     bool
}

// AllowsMode reports whether the lane admits the given mode.
func (l *Lane) AllowsMode(m TravelMode) bool {
	return l.Modes[m]
}

// EffectiveCapacity returns the configured capacity, or one traveler per
// minGap metres of lane when unset.
func (l *Lane) EffectiveCapacity(minGap float64) int {
	if l.Capacity > 0 {
		return l.Capacity
	}
	c := int(l.Length / minGap)
	if c < 1 {
		c = 1
	}
	return c
}

// Turn is a permitted movement from one incoming lane to one outgoing lane
// at an intersection. Restriction links turns that may not be taken in
// sequence (e.g. "no left turn after arriving via X").
type Turn struct {
	ID           TurnID
	From         LaneID
	To           LaneID
	Intersection IntersectionID
	Restriction  RestrictionGroupID // empty = unrestricted
}

// Phase is a set of simultaneously-permitted turns with a fixed duration.
type Phase struct {
	Turns    []TurnID
	Duration int64 // ticks
}

// Intersection is a junction of lanes with one control discipline.
type Intersection struct {
	ID      IntersectionID
	Control ControlType
	Phases  []Phase // signal control only; cycled from phase 0
}

// Network is the immutable directed graph of lanes, intersections and turns.
// It is constructed once, validated, and shared read-only; edits produce a
// new Network via Apply.
type Network struct {
	lanes         map[LaneID]*Lane
	intersections map[IntersectionID]*Intersection
	turns         map[TurnID]*Turn
	turnsFrom     map[LaneID][]*Turn
	turnsTo       map[LaneID][]*Turn

	laneOrder []LaneID // sorted, for deterministic iteration
	turnOrder []TurnID
}

// New validates the given entities and assembles a Network.
func New(lanes []*Lane, intersections []*Intersection, turns []*Turn) (*Network, error) {
	n := &Network{
		lanes:         make(map[LaneID]*Lane, len(lanes)),
		intersections: make(map[IntersectionID]*Intersection, len(intersections)),
		turns:         make(map[TurnID]*Turn, len(turns)),
		turnsFrom:     make(map[LaneID][]*Turn),
		turnsTo:       make(map[LaneID][]*Turn),
	}

	for _, in := range intersections {
		if _, dup := n.intersections[in.ID]; dup {
			return nil, fmt.Errorf("duplicate intersection %q", in.ID)
		}
		n.intersections[in.ID] = in
	}

	for _, l := range lanes {
		if _, dup := n.lanes[l.ID]; dup {
			return nil, fmt.Errorf("duplicate lane %q", l.ID)
		}
		if l.Length <= 0 {
			return nil, fmt.Errorf("lane %q: length must be > 0, got %v", l.ID, l.Length)
		}
		if l.SpeedLimit <= 0 {
			return nil, fmt.Errorf("lane %q: speed limit must be > 0, got %v", l.ID, l.SpeedLimit)
		}
		if len(l.Modes) == 0 {
			return nil, fmt.Errorf("lane %q: at least one travel mode required", l.ID)
		}
		if _, ok := n.intersections[l.To]; !ok {
			return nil, fmt.Errorf("lane %q: unknown terminal intersection %q", l.ID, l.To)
		}
		n.lanes[l.ID] = l
	}

	for _, t := range turns {
		if _, dup := n.turns[t.ID]; dup {
			return nil, fmt.Errorf("duplicate turn %q", t.ID)
		}
		from, ok := n.lanes[t.From]
		if !ok {
			return nil, fmt.Errorf("turn %q: unknown from-lane %q", t.ID, t.From)
		}
		if _, ok := n.lanes[t.To]; !ok {
			return nil, fmt.Errorf("turn %q: unknown to-lane %q", t.ID, t.To)
		}
		if _, ok := n.intersections[t.Intersection]; !ok {
			return nil, fmt.Errorf("turn %q: unknown intersection %q", t.ID, t.Intersection)
		}
		if from.To != t.Intersection {
			return nil, fmt.Errorf("turn %q: from-lane %q terminates at %q, not %q",
				t.ID, t.From, from.To, t.Intersection)
		}
		n.turns[t.ID] = t
		n.turnsFrom[t.From] = append(n.turnsFrom[t.From], t)
		n.turnsTo[t.To] = append(n.turnsTo[t.To], t)
	}

	for _, in := range intersections {
		if in.Control == ControlSignal && len(in.Phases) == 0 {
			return nil, fmt.Errorf("intersection %q: signal control requires at least one phase", in.ID)
		}
		for pi, ph := range in.Phases {
			if ph.Duration <= 0 {
				return nil, fmt.Errorf("intersection %q phase %d: duration must be > 0", in.ID, pi)
			}
			for _, tid := range ph.Turns {
				t, ok := n.turns[tid]
				if !ok {
					return nil, fmt.Errorf("intersection %q phase %d: unknown turn %q", in.ID, pi, tid)
				}
				if t.Intersection != in.ID {
					return nil, fmt.Errorf("intersection %q phase %d: turn %q belongs to intersection %q",
						in.ID, pi, tid, t.Intersection)
				}
			}
		}
	}

	n.laneOrder = make([]LaneID, 0, len(n.lanes))
	for id := range n.lanes {
		n.laneOrder = append(n.laneOrder, id)
	}
	sort.Slice(n.laneOrder, func(i, j int) bool { return n.laneOrder[i] < n.laneOrder[j] })

	n.turnOrder = make([]TurnID, 0, len(n.turns))
	for id := range n.turns {
		n.turnOrder = append(n.turnOrder, id)
	}
	sort.Slice(n.turnOrder, func(i, j int) bool { return n.turnOrder[i] < n.turnOrder[j] })

	for _, ts := range n.turnsFrom {
		sort.Slice(ts, func(i, j int) bool { return ts[i].ID < ts[j].ID })
	}
	for _, ts := range n.turnsTo {
		sort.Slice(ts, func(i, j int) bool { return ts[i].ID < ts[j].ID })
	}

	return n, nil
}

// Lane returns the lane with the given id, or nil.
func (n *Network) Lane(id LaneID) *Lane {
	return n.lanes[id]
}

// Intersection returns the intersection with the given id, or nil.
func (n *Network) Intersection(id IntersectionID) *Intersection {
	return n.intersections[id]
}

// Turn returns the turn with the given id, or nil.
func (n *Network) Turn(id TurnID) *Turn {
	return n.turns[id]
}

// TurnsFrom returns the permitted turns out of the given lane,
// ordered by turn id.
func (n *Network) TurnsFrom(id LaneID) []*Turn {
	return n.turnsFrom[id]
}

// TurnsTo returns the permitted turns into the given lane, ordered by turn id.
func (n *Network) TurnsTo(id LaneID) []*Turn {
	return n.turnsTo[id]
}

// FindTurn returns the turn from one lane to another, or nil if the movement
// is not permitted.
func (n *Network) FindTurn(from, to LaneID) *Turn {
	for _, t := range n.turnsFrom[from] {
		if t.To == to {
			return t
		}
	}
	return nil
}

// LaneIDs returns all lane ids in sorted order.
func (n *Network) LaneIDs() []LaneID {
	return n.laneOrder
}

// TurnIDs returns all turn ids in sorted order.
func (n *Network) TurnIDs() []TurnID {
	return n.turnOrder
}

// IntersectionIDs returns all intersection ids in sorted order.
func (n *Network) IntersectionIDs() []IntersectionID {
	ids := make([]IntersectionID, 0, len(n.intersections))
	for id := range n.intersections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NumLanes returns the lane count.
func (n *Network) NumLanes() int { return len(n.lanes) }

// NumTurns returns the turn count.
func (n *Network) NumTurns() int { return len(n.turns) }
