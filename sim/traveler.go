package sim

import (
	"fmt"

	"github.com/traffic-sim/traffic-sim/sim/network"
	"github.com/traffic-sim/traffic-sim/sim/routing"
)

// TravelerID identifies one simulated vehicle, cyclist, or pedestrian.
type TravelerID string

// TravelerState is the lifecycle state of a traveler.
type TravelerState string

const (
	// StateQueued: spawn scheduled but the traveler is not yet on the network.
	StateQueued TravelerState = "queued"
	// StateMoving: an advance is scheduled.
	StateMoving TravelerState = "moving"
	// StateBlocked: waiting on a leader gap or an intersection grant.
	StateBlocked TravelerState = "blocked"
	// StateArrived: reached the end of the destination lane. Terminal.
	StateArrived TravelerState = "arrived"
	// StateStuck: made no progress for the stuck timeout. Terminal; the
	// traveler is excluded from further scheduling but the run continues.
	StateStuck TravelerState = "stuck"
)

// Terminal reports whether the state ends the traveler's participation.
func (s TravelerState) Terminal() bool {
	return s == StateArrived || s == StateStuck
}

// Traveler models a single agent's lifecycle. All mutable fields are owned
// exclusively by the Simulator; other components only ever see copies.
type Traveler struct {
	ID   TravelerID
	Mode network.TravelMode
	Path *routing.Path

	Lane     network.LaneID // current lane ("" before spawn)
	Position float64        // metres along Lane, within [0, lane length]
	Speed    float64        // m/s
	State    TravelerState

	SpawnTick   int64
	ArrivedTick int64

	// Scheduling bookkeeping.
	idx          int    // arena index
	pendingEvent uint64 // id of the single outstanding motion event (0 = none)
	stuckCheck   uint64 // id of the outstanding stuck check (0 = none)
	lastProgress int64  // tick of the last position or lane change

	// Grant bookkeeping: a granted turn reserves the destination lane's
	// entry slot until the traveler clears the intersection.
	heldTurn *network.Turn
}

func (t *Traveler) String() string {
	return fmt.Sprintf("Traveler(%s %s state=%s lane=%s pos=%.1f)",
		t.ID, t.Mode, t.State, t.Lane, t.Position)
}
