package sim

import (
	"sort"

	"github.com/traffic-sim/traffic-sim/sim/network"
)

// Decision is the outcome of a turn request: an immediate grant, or a time
// at which the traveler should ask again.
type Decision struct {
	Granted bool
	Until   int64 // re-request time when not granted
}

func granted() Decision         { return Decision{Granted: true} }
func wait(until int64) Decision { return Decision{Until: until} }

// controller resolves conflicting turn requests at one intersection. The
// implementation (signal, stop, uncontrolled) is selected from the network
// model's control type.
type controller interface {
	// RequestTurn is called when a traveler reaches the head of its lane.
	// A grant reserves the turn's destination entry slot; the caller must
	// Release once the traveler clears the intersection.
	RequestTurn(now int64, tr TravelerID, turn *network.Turn) Decision
	// Release frees the reservation taken by a grant.
	Release(tr TravelerID, turn *network.Turn)
	// Abandon drops any ungranted request the traveler still has queued.
	// Called when a traveler leaves scheduling while waiting for a grant, so
	// a dead entry cannot hold up later arrivals.
	Abandon(tr TravelerID)
}

// newController builds the runtime controller for an intersection.
func newController(in *network.Intersection, retry int64) controller {
	switch in.Control {
	case network.ControlSignal:
		return &signalControl{
			in:        in,
			retry:     retry,
			occupancy: make(map[network.LaneID]TravelerID),
		}
	case network.ControlStop:
		return &stopControl{in: in, retry: retry}
	default:
		return &uncontrolledControl{
			in:        in,
			retry:     retry,
			occupancy: make(map[network.LaneID]TravelerID),
		}
	}
}

// === Signal ===

// signalControl cycles through the intersection's phase plan, starting at
// phase 0. A request is granted only when its turn is in the active phase
// and the destination lane's single-occupancy slot is free.
type signalControl struct {
	in         *network.Intersection
	retry      int64
	phaseIdx   int
	phaseStart int64
	occupancy  map[network.LaneID]TravelerID
}

// advancePhase moves to the next phase and returns its duration.
// Driven by PhaseChange events; the cycle never terminates.
func (c *signalControl) advancePhase(now int64) int64 {
	c.phaseIdx = (c.phaseIdx + 1) % len(c.in.Phases)
	c.phaseStart = now
	return c.in.Phases[c.phaseIdx].Duration
}

func (c *signalControl) phasePermits(idx int, id network.TurnID) bool {
	for _, t := range c.in.Phases[idx].Turns {
		if t == id {
			return true
		}
	}
	return false
}

// nextActivation returns the next time at or after now when a phase
// permitting the turn becomes active, or -1 if no phase ever permits it.
func (c *signalControl) nextActivation(now int64, id network.TurnID) int64 {
	start := c.phaseStart
	idx := c.phaseIdx
	for i := 0; i <= len(c.in.Phases); i++ {
		if c.phasePermits(idx, id) && i > 0 {
			return start
		}
		start += c.in.Phases[idx].Duration
		idx = (idx + 1) % len(c.in.Phases)
	}
	return -1
}

func (c *signalControl) RequestTurn(now int64, tr TravelerID, turn *network.Turn) Decision {
	if !c.phasePermits(c.phaseIdx, turn.ID) {
		next := c.nextActivation(now, turn.ID)
		if next < 0 {
			// No phase ever serves this turn; the stuck timeout will flag
			// the traveler. Re-request well in the future regardless.
			return wait(now + 10*c.retry)
		}
		if next <= now {
			next = now + 1
		}
		return wait(next)
	}
	if holder, busy := c.occupancy[turn.To]; busy && holder != tr {
		return wait(now + c.retry)
	}
	c.occupancy[turn.To] = tr
	return granted()
}

func (c *signalControl) Release(tr TravelerID, turn *network.Turn) {
	if c.occupancy[turn.To] == tr {
		delete(c.occupancy, turn.To)
	}
}

// Abandon is a no-op: waiting travelers hold no signal state.
func (c *signalControl) Abandon(tr TravelerID) {}

// === Stop sign / priority ===

// stopEntry records one waiting traveler at a stop-controlled intersection.
type stopEntry struct {
	arrival int64
	tr      TravelerID
}

// stopControl grants strictly in arrival order. The whole intersection is a
// single-occupancy resource: while one movement is in progress, every other
// movement through the junction waits.
type stopControl struct {
	in       *network.Intersection
	retry    int64
	queue    []stopEntry
	occupied bool
	occupant TravelerID
}

func (c *stopControl) position(tr TravelerID) int {
	for i, e := range c.queue {
		if e.tr == tr {
			return i
		}
	}
	return -1
}

func (c *stopControl) RequestTurn(now int64, tr TravelerID, turn *network.Turn) Decision {
	if c.position(tr) < 0 {
		c.queue = append(c.queue, stopEntry{arrival: now, tr: tr})
		sort.SliceStable(c.queue, func(i, j int) bool {
			if c.queue[i].arrival != c.queue[j].arrival {
				return c.queue[i].arrival < c.queue[j].arrival
			}
			return c.queue[i].tr < c.queue[j].tr
		})
	}
	if c.occupied || c.queue[0].tr != tr {
		return wait(now + c.retry)
	}
	c.queue = c.queue[1:]
	c.occupied = true
	c.occupant = tr
	return granted()
}

func (c *stopControl) Release(tr TravelerID, _ *network.Turn) {
	if c.occupied && c.occupant == tr {
		c.occupied = false
		c.occupant = ""
	}
}

// Abandon removes the traveler's queue entry so the head position cannot be
// held by a traveler that will never request again.
func (c *stopControl) Abandon(tr TravelerID) {
	if i := c.position(tr); i >= 0 {
		c.queue = append(c.queue[:i], c.queue[i+1:]...)
	}
}

// === Uncontrolled ===

// uncontrolledControl grants immediately unless the destination lane's entry
// slot is already reserved.
type uncontrolledControl struct {
	in        *network.Intersection
	retry     int64
	occupancy map[network.LaneID]TravelerID
}

func (c *uncontrolledControl) RequestTurn(now int64, tr TravelerID, turn *network.Turn) Decision {
	if holder, busy := c.occupancy[turn.To]; busy && holder != tr {
		return wait(now + c.retry)
	}
	c.occupancy[turn.To] = tr
	return granted()
}

func (c *uncontrolledControl) Release(tr TravelerID, turn *network.Turn) {
	if c.occupancy[turn.To] == tr {
		delete(c.occupancy, turn.To)
	}
}

// Abandon is a no-op: waiting travelers hold no slot.
func (c *uncontrolledControl) Abandon(tr TravelerID) {}
