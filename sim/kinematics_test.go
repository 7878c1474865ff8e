package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanAdvance_AccelerateThenCruise(t *testing.T) {
	// From rest at 2 m/s^2 toward 10 m/s: 5 s and 25 m accelerating, then
	// 75 m cruising at 10 m/s = 7.5 s. Total 12.5 s.
	adv := PlanAdvance(
		AgentState{Position: 0, Speed: 0, MaxSpeed: 50},
		LaneDynamics{Length: 100, SpeedLimit: 10},
		nil, 4.0, 2.0,
	)
	assert.False(t, adv.Blocked)
	assert.Equal(t, 100.0, adv.Target)
	assert.Equal(t, int64(12500), adv.ETA)
	assert.Equal(t, 10.0, adv.ArrivalSpeed)
	assert.False(t, adv.Constrained)
}

func TestPlanAdvance_StillAcceleratingAtTarget(t *testing.T) {
	// 16 m from rest at 2 m/s^2: reached at t = sqrt(2*16/2) = 4 s, speed 8.
	adv := PlanAdvance(
		AgentState{Position: 0, Speed: 0, MaxSpeed: 50},
		LaneDynamics{Length: 16, SpeedLimit: 10},
		nil, 4.0, 2.0,
	)
	assert.Equal(t, int64(4000), adv.ETA)
	assert.Equal(t, 8.0, adv.ArrivalSpeed)
}

func TestPlanAdvance_ModeCapBelowLaneLimit(t *testing.T) {
	// A bike capped at 8 m/s on a 10 m/s lane, already at speed: pure cruise.
	adv := PlanAdvance(
		AgentState{Position: 0, Speed: 8, MaxSpeed: 8},
		LaneDynamics{Length: 80, SpeedLimit: 10},
		nil, 4.0, 2.0,
	)
	assert.Equal(t, int64(10000), adv.ETA)
	assert.Equal(t, 8.0, adv.ArrivalSpeed)
}

func TestPlanAdvance_LeaderConstrains(t *testing.T) {
	// Leader parked at 29 m, min gap 4: target 25 m, reached still
	// accelerating at t = sqrt(2*25/2) = 5 s. Constrained arrival stops.
	adv := PlanAdvance(
		AgentState{Position: 0, Speed: 0, MaxSpeed: 50},
		LaneDynamics{Length: 100, SpeedLimit: 10},
		&LeaderState{Position: 29}, 4.0, 2.0,
	)
	assert.False(t, adv.Blocked)
	assert.True(t, adv.Constrained)
	assert.Equal(t, 25.0, adv.Target)
	assert.Equal(t, int64(5000), adv.ETA)
	assert.Equal(t, 0.0, adv.ArrivalSpeed)
}

func TestPlanAdvance_BlockedByLeader(t *testing.T) {
	adv := PlanAdvance(
		AgentState{Position: 0, Speed: 0, MaxSpeed: 50},
		LaneDynamics{Length: 100, SpeedLimit: 10},
		&LeaderState{Position: 4}, 4.0, 2.0,
	)
	assert.True(t, adv.Blocked)

	// Leader closer than the gap: still blocked, never a negative target.
	adv = PlanAdvance(
		AgentState{Position: 10, Speed: 0, MaxSpeed: 50},
		LaneDynamics{Length: 100, SpeedLimit: 10},
		&LeaderState{Position: 12}, 4.0, 2.0,
	)
	assert.True(t, adv.Blocked)
}

func TestPlanAdvance_ClampsSpeedAboveDesired(t *testing.T) {
	// Entered faster than the lane allows: clamps to 10 m/s instantly.
	adv := PlanAdvance(
		AgentState{Position: 0, Speed: 20, MaxSpeed: 50},
		LaneDynamics{Length: 100, SpeedLimit: 10},
		nil, 4.0, 2.0,
	)
	assert.Equal(t, int64(10000), adv.ETA)
	assert.Equal(t, 10.0, adv.ArrivalSpeed)
}

func TestPlanAdvance_ZeroAccelIsConstantSpeed(t *testing.T) {
	adv := PlanAdvance(
		AgentState{Position: 0, Speed: 0, MaxSpeed: 50},
		LaneDynamics{Length: 100, SpeedLimit: 10},
		nil, 4.0, 0,
	)
	assert.Equal(t, int64(10000), adv.ETA)
	assert.Equal(t, 10.0, adv.ArrivalSpeed)
}

func TestPlanAdvance_ETANeverZero(t *testing.T) {
	adv := PlanAdvance(
		AgentState{Position: 99.999, Speed: 10, MaxSpeed: 50},
		LaneDynamics{Length: 100, SpeedLimit: 10},
		nil, 4.0, 2.0,
	)
	assert.False(t, adv.Blocked)
	assert.Equal(t, int64(1), adv.ETA)
}
