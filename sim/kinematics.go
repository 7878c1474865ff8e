package sim

import "math"

// Kinematics is a pure computation: no simulator state is read or written.
// It is invoked both to schedule a traveler's next event and to re-derive a
// plan when the traveler ahead changes behavior.

// AgentState is the kinematic input for one traveler.
type AgentState struct {
	Position float64 // metres along the lane
	Speed    float64 // m/s
	MaxSpeed float64 // mode speed cap, m/s
}

// LaneDynamics is the kinematic view of the lane being traversed.
type LaneDynamics struct {
	Length     float64 // metres
	SpeedLimit float64 // m/s
}

// LeaderState is the position of the immediately preceding traveler on the
// same lane, if any.
type LeaderState struct {
	Position float64
}

// Advance is the earliest feasible next move for a traveler.
type Advance struct {
	Blocked      bool    // no forward motion is possible right now
	Target       float64 // position reached
	ETA          int64   // ticks from now until Target is reached (>= 1)
	ArrivalSpeed float64 // speed at Target
	Constrained  bool    // Target was capped by the leader gap, not lane end
}

// PlanAdvance computes the earliest future move for a traveler: accelerate
// at a constant rate toward min(lane limit, mode max), then cruise, stopping
// so that the gap to the leader never falls below minGap. The leader is
// treated as stationary at its last observed position; the plan is re-derived
// when the leader moves. Pass leader == nil for pedestrians, which follow a
// constant-speed rule with no gap coupling beyond lane capacity.
func PlanAdvance(agent AgentState, lane LaneDynamics, leader *LeaderState, minGap, accel float64) Advance {
	desired := lane.SpeedLimit
	if agent.MaxSpeed < desired {
		desired = agent.MaxSpeed
	}

	target := lane.Length
	constrained := false
	if leader != nil {
		if lim := leader.Position - minGap; lim < target {
			target = lim
			constrained = true
		}
	}
	dist := target - agent.Position
	if dist <= 0 {
		return Advance{Blocked: true}
	}

	v := agent.Speed
	if v > desired {
		// Speed cap dropped (lane change, edit): clamp instantly; the
		// constant-profile model carries no deceleration curve here.
		v = desired
	}

	var t, arrival float64
	if accel <= 0 || v >= desired {
		t = dist / desired
		arrival = desired
	} else {
		tAcc := (desired - v) / accel
		dAcc := v*tAcc + 0.5*accel*tAcc*tAcc
		if dAcc >= dist {
			// Still accelerating when the target is reached.
			t = (math.Sqrt(v*v+2*accel*dist) - v) / accel
			arrival = v + accel*t
		} else {
			t = tAcc + (dist-dAcc)/desired
			arrival = desired
		}
	}

	if constrained {
		// The traveler pulls up behind the leader and stops.
		arrival = 0
	}

	eta := int64(math.Ceil(t * 1000.0))
	if eta < 1 {
		eta = 1
	}
	return Advance{
		Target:       target,
		ETA:          eta,
		ArrivalSpeed: arrival,
		Constrained:  constrained,
	}
}
