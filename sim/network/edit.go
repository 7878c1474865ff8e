package network

import (
	"errors"
	"fmt"
)

// ErrInvalidEdit marks a change set that references entities the network does
// not have or that would leave the model inconsistent. Edits are atomic: a
// change set either validates fully and applies, or is rejected unchanged.
var ErrInvalidEdit = errors.New("invalid edit")

// ChangeKind enumerates the localized mutations a change set may carry.
type ChangeKind string

const (
	ChangeCloseLane     ChangeKind = "close_lane"
	ChangeReopenLane    ChangeKind = "reopen_lane"
	ChangeSetSpeedLimit ChangeKind = "set_speed_limit"
	ChangeAddTurn       ChangeKind = "add_turn"
	ChangeRemoveTurn    ChangeKind = "remove_turn"
)

// Change is a single localized network mutation.
type Change struct {
	Kind       ChangeKind
	Lane       LaneID  // close_lane, reopen_lane, set_speed_limit
	SpeedLimit float64 // set_speed_limit
	Turn       *Turn   // add_turn (full definition), remove_turn (ID only)
}

// ChangeSet is an ordered list of changes applied as one atomic edit.
type ChangeSet struct {
	Changes []Change
}

// Validate checks every change against the network without mutating it.
func (cs *ChangeSet) Validate(n *Network) error {
	if len(cs.Changes) == 0 {
		return fmt.Errorf("%w: empty change set", ErrInvalidEdit)
	}
	for i, c := range cs.Changes {
		switch c.Kind {
		case ChangeCloseLane, ChangeReopenLane:
			if n.Lane(c.Lane) == nil {
				return fmt.Errorf("%w: change %d: unknown lane %q", ErrInvalidEdit, i, c.Lane)
			}
		case ChangeSetSpeedLimit:
			if n.Lane(c.Lane) == nil {
				return fmt.Errorf("%w: change %d: unknown lane %q", ErrInvalidEdit, i, c.Lane)
			}
			if c.SpeedLimit <= 0 {
				return fmt.Errorf("%w: change %d: speed limit must be > 0, got %v",
					ErrInvalidEdit, i, c.SpeedLimit)
			}
		case ChangeAddTurn:
			if c.Turn == nil {
				return fmt.Errorf("%w: change %d: add_turn requires a turn definition", ErrInvalidEdit, i)
			}
			if n.Turn(c.Turn.ID) != nil {
				return fmt.Errorf("%w: change %d: turn %q already exists", ErrInvalidEdit, i, c.Turn.ID)
			}
			from := n.Lane(c.Turn.From)
			if from == nil {
				return fmt.Errorf("%w: change %d: unknown from-lane %q", ErrInvalidEdit, i, c.Turn.From)
			}
			if n.Lane(c.Turn.To) == nil {
				return fmt.Errorf("%w: change %d: unknown to-lane %q", ErrInvalidEdit, i, c.Turn.To)
			}
			if n.Intersection(c.Turn.Intersection) == nil {
				return fmt.Errorf("%w: change %d: unknown intersection %q", ErrInvalidEdit, i, c.Turn.Intersection)
			}
			if from.To != c.Turn.Intersection {
				return fmt.Errorf("%w: change %d: from-lane %q does not terminate at %q",
					ErrInvalidEdit, i, c.Turn.From, c.Turn.Intersection)
			}
		case ChangeRemoveTurn:
			if c.Turn == nil || n.Turn(c.Turn.ID) == nil {
				return fmt.Errorf("%w: change %d: unknown turn", ErrInvalidEdit, i)
			}
		default:
			return fmt.Errorf("%w: change %d: unknown change kind %q", ErrInvalidEdit, i, c.Kind)
		}
	}
	return nil
}

// AffectedLanes returns the ids of lanes touched by the change set.
func (cs *ChangeSet) AffectedLanes() []LaneID {
	seen := make(map[LaneID]bool)
	var out []LaneID
	add := func(id LaneID) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, c := range cs.Changes {
		add(c.Lane)
		if c.Turn != nil {
			add(c.Turn.From)
			add(c.Turn.To)
		}
	}
	return out
}

// HasCostDecrease reports whether any change can lower a path cost
// (reopened lane, raised speed limit, or a newly permitted turn). Such edits
// can make previously optimal paths stale even when those paths do not touch
// the edited region.
func (cs *ChangeSet) HasCostDecrease(n *Network) bool {
	for _, c := range cs.Changes {
		switch c.Kind {
		case ChangeReopenLane, ChangeAddTurn:
			return true
		case ChangeSetSpeedLimit:
			if l := n.Lane(c.Lane); l != nil && c.SpeedLimit > l.SpeedLimit {
				return true
			}
		}
	}
	return false
}

// Apply validates the change set and returns a new Network with the edit
// applied. The receiver is never mutated. Returns ErrInvalidEdit (wrapped)
// when validation fails.
func (n *Network) Apply(cs *ChangeSet) (*Network, error) {
	if err := cs.Validate(n); err != nil {
		return nil, err
	}

	lanes := make([]*Lane, 0, len(n.lanes))
	for _, id := range n.laneOrder {
		cp := *n.lanes[id]
		lanes = append(lanes, &cp)
	}
	laneByID := make(map[LaneID]*Lane, len(lanes))
	for _, l := range lanes {
		laneByID[l.ID] = l
	}

	removed := make(map[TurnID]bool)
	var added []*Turn
	for _, c := range cs.Changes {
		switch c.Kind {
		case ChangeCloseLane:
			laneByID[c.Lane].Closed = true
		case ChangeReopenLane:
			laneByID[c.Lane].Closed = false
		case ChangeSetSpeedLimit:
			laneByID[c.Lane].SpeedLimit = c.SpeedLimit
		case ChangeAddTurn:
			cp := *c.Turn
			added = append(added, &cp)
		case ChangeRemoveTurn:
			removed[c.Turn.ID] = true
		}
	}

	turns := make([]*Turn, 0, len(n.turns)+len(added))
	for _, id := range n.turnOrder {
		if removed[id] {
			continue
		}
		cp := *n.turns[id]
		turns = append(turns, &cp)
	}
	turns = append(turns, added...)

	// Removed turns must also leave any signal phase that referenced them.
	intersections := make([]*Intersection, 0, len(n.intersections))
	for _, id := range n.IntersectionIDs() {
		cp := *n.intersections[id]
		if len(removed) > 0 && len(cp.Phases) > 0 {
			phases := make([]Phase, len(cp.Phases))
			for pi, ph := range cp.Phases {
				kept := make([]TurnID, 0, len(ph.Turns))
				for _, tid := range ph.Turns {
					if !removed[tid] {
						kept = append(kept, tid)
					}
				}
				phases[pi] = Phase{Turns: kept, Duration: ph.Duration}
			}
			cp.Phases = phases
		}
		intersections = append(intersections, &cp)
	}

	return New(lanes, intersections, turns)
}
