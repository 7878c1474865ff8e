package sim

import "github.com/traffic-sim/traffic-sim/sim/routing"

// KinematicsConfig groups the car-following policy constants.
// Distances in metres, speeds in m/s, times in ticks (1 tick = 1 ms).
type KinematicsConfig struct {
	MinGap          float64 // minimum following distance (must be > 0)
	Accel           float64 // constant acceleration toward desired speed
	SpawnRetryTicks int64   // re-check interval when an origin lane entry is blocked
	GrantRetryTicks int64   // re-request interval when an intersection slot is held
}

// SimConfig groups all simulation driver parameters.
type SimConfig struct {
	Horizon      int64 // ticks; run stops once the clock passes it
	Seed         int64
	StuckTimeout int64 // ticks without progress before a traveler is flagged stuck
	SpawnJitter  int64 // max random ticks added to each spawn time (0 = none)
	Kinematics   KinematicsConfig
	Index        routing.Config
}

// DefaultSimConfig returns the tuned defaults. The stuck timeout and the
// index rebuild threshold are policy knobs; callers override them per run.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Horizon:      3_600_000, // one hour
		Seed:         0,
		StuckTimeout: 60_000,
		SpawnJitter:  0,
		Kinematics: KinematicsConfig{
			MinGap:          4.0,
			Accel:           2.0,
			SpawnRetryTicks: 500,
			GrantRetryTicks: 500,
		},
		Index: routing.DefaultConfig(),
	}
}
