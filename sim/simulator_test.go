package sim

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traffic-sim/traffic-sim/sim/network"
	"github.com/traffic-sim/traffic-sim/sim/trace"
)

// TestSingleVehicleCrossesUncontrolled pins the exact timeline of one
// vehicle over A -> X -> B: 12500 ticks accelerating over A from rest,
// immediate grant, 10000 ticks over B at speed.
func TestSingleVehicleCrossesUncontrolled(t *testing.T) {
	net := lineNetwork(t, network.ControlUncontrolled, nil)
	scenario := &ScenarioSpec{Spawns: []SpawnSpec{
		{ID: "v1", Mode: "vehicle", Origin: "A", Dest: "B", SpawnTick: 0},
	}}
	s := mustSimulator(t, net, scenario, testConfig())
	require.NoError(t, s.Run())

	tr, ok := s.Traveler("v1")
	require.True(t, ok)
	assert.Equal(t, StateArrived, tr.State)
	assert.Equal(t, int64(22500), tr.ArrivedTick)

	assert.Equal(t, 1, s.Metrics.Spawned)
	assert.Equal(t, 1, s.Metrics.Arrived)
	assert.Equal(t, int64(22500), s.Metrics.TotalTravelTicks)

	var kinds []trace.RecordKind
	for _, r := range s.Trace.Records() {
		kinds = append(kinds, r.Kind)
	}
	assert.Equal(t, []trace.RecordKind{
		trace.KindSpawned,
		trace.KindAdvanced, // end of A at 12500
		trace.KindGranted,
		trace.KindEntered,
		trace.KindAdvanced, // end of B at 22500
		trace.KindArrived,
	}, kinds)
}

// TestBikeUsesModeCap runs the same line with a bike: desired speed is the
// 8 m/s mode cap, not the 10 m/s lane limit.
func TestBikeUsesModeCap(t *testing.T) {
	net := lineNetwork(t, network.ControlUncontrolled, nil)
	scenario := &ScenarioSpec{Spawns: []SpawnSpec{
		{ID: "b1", Mode: "bike", Origin: "A", Dest: "B", SpawnTick: 0},
	}}
	s := mustSimulator(t, net, scenario, testConfig())
	require.NoError(t, s.Run())

	// A: 4 s accelerating to 8 m/s over 16 m, then 84 m at 8 m/s = 14.5 s.
	// B entered at 8 m/s: 12.5 s.
	tr, _ := s.Traveler("b1")
	assert.Equal(t, StateArrived, tr.State)
	assert.Equal(t, int64(27000), tr.ArrivedTick)
}

// TestSignalHoldsUntilGreen spawns so the vehicle reaches the stop line
// during the red phase and must wait for the next activation.
func TestSignalHoldsUntilGreen(t *testing.T) {
	phases := []network.Phase{
		{Turns: []network.TurnID{"tAB"}, Duration: 5000},
		{Turns: nil, Duration: 5000},
	}
	net := lineNetwork(t, network.ControlSignal, phases)
	scenario := &ScenarioSpec{Spawns: []SpawnSpec{
		{ID: "v1", Mode: "vehicle", Origin: "A", Dest: "B", SpawnTick: 3000},
	}}
	s := mustSimulator(t, net, scenario, testConfig())
	require.NoError(t, s.Run())

	// Head of A at 15500, mid red (15000-20000). Green opens at 20000;
	// B then takes 10000 ticks.
	tr, _ := s.Traveler("v1")
	assert.Equal(t, StateArrived, tr.State)
	assert.Equal(t, int64(30000), tr.ArrivedTick)
}

// TestPlatoonNoPassing injects a column of vehicles and checks conservation
// and that arrival order matches spawn order.
func TestPlatoonNoPassing(t *testing.T) {
	net := lineNetwork(t, network.ControlUncontrolled, nil)
	scenario := &ScenarioSpec{Spawns: []SpawnSpec{
		{ID: "v1", Mode: "vehicle", Origin: "A", Dest: "B", SpawnTick: 0},
		{ID: "v2", Mode: "vehicle", Origin: "A", Dest: "B", SpawnTick: 2000},
		{ID: "v3", Mode: "vehicle", Origin: "A", Dest: "B", SpawnTick: 4000},
		{ID: "v4", Mode: "vehicle", Origin: "A", Dest: "B", SpawnTick: 6000},
	}}
	s := mustSimulator(t, net, scenario, testConfig())
	require.NoError(t, s.Run())

	assert.Equal(t, 4, s.Metrics.Spawned)
	assert.Equal(t, 4, s.Metrics.Arrived)
	assert.Equal(t, 0, s.Metrics.Stuck)
	assert.Equal(t, 0, s.Metrics.Unrouted)

	var last int64
	for _, id := range []TravelerID{"v1", "v2", "v3", "v4"} {
		tr, ok := s.Traveler(id)
		require.True(t, ok)
		require.Equal(t, StateArrived, tr.State)
		assert.Greater(t, tr.ArrivedTick, last, "%s must arrive after its leader", id)
		last = tr.ArrivedTick
	}
}

// TestStopControlMerge merges two approaches through a stop-controlled
// junction; the second arrival waits for the first to clear.
func TestStopControlMerge(t *testing.T) {
	net := forkNetwork(t, network.ControlStop)
	scenario := &ScenarioSpec{Spawns: []SpawnSpec{
		{ID: "u", Mode: "vehicle", Origin: "A1", Dest: "B", SpawnTick: 0},
		{ID: "w", Mode: "vehicle", Origin: "A2", Dest: "B", SpawnTick: 0},
	}}
	s := mustSimulator(t, net, scenario, testConfig())
	require.NoError(t, s.Run())

	u, _ := s.Traveler("u")
	w, _ := s.Traveler("w")
	assert.Equal(t, int64(22500), u.ArrivedTick)
	// w reaches its stop line at 17500 but B's entry is blocked until u
	// clears it at 22500.
	assert.Equal(t, int64(32500), w.ArrivedTick)
}

// TestDeterministicReplay runs an identical scenario twice and requires
// byte-for-byte identical traces and metrics.
func TestDeterministicReplay(t *testing.T) {
	phases := []network.Phase{
		{Turns: []network.TurnID{"tAB"}, Duration: 4000},
		{Turns: nil, Duration: 6000},
	}
	scenario := &ScenarioSpec{Spawns: []SpawnSpec{
		{ID: "v1", Mode: "vehicle", Origin: "A", Dest: "B", SpawnTick: 0},
		{ID: "v2", Mode: "vehicle", Origin: "A", Dest: "B", SpawnTick: 1000},
		{ID: "b1", Mode: "bike", Origin: "A", Dest: "B", SpawnTick: 500},
		{ID: "v3", Mode: "vehicle", Origin: "A", Dest: "B", SpawnTick: 9000},
	}}
	cfg := testConfig()
	cfg.SpawnJitter = 750

	run := func() *Simulator {
		s := mustSimulator(t, lineNetwork(t, network.ControlSignal, phases), scenario, cfg)
		require.NoError(t, s.Run())
		return s
	}
	s1 := run()
	s2 := run()

	assert.Equal(t, s1.Clock, s2.Clock)
	assert.Equal(t, *s1.Metrics, *s2.Metrics)
	assert.Equal(t, s1.Trace.Records(), s2.Trace.Records())
}

// TestUnroutedTravelerNeverSpawns counts scenario entries with no feasible
// route and keeps the run healthy.
func TestUnroutedTravelerNeverSpawns(t *testing.T) {
	net := lineNetwork(t, network.ControlUncontrolled, nil)
	scenario := &ScenarioSpec{Spawns: []SpawnSpec{
		{ID: "ok", Mode: "vehicle", Origin: "A", Dest: "B", SpawnTick: 0},
		{ID: "lost", Mode: "vehicle", Origin: "B", Dest: "A", SpawnTick: 0},
	}}
	s := mustSimulator(t, net, scenario, testConfig())
	require.NoError(t, s.Run())

	assert.Equal(t, 1, s.Metrics.Unrouted)
	assert.Equal(t, 1, s.Metrics.Arrived)
	_, exists := s.Traveler("lost")
	assert.False(t, exists)

	found := false
	for _, r := range s.Trace.Records() {
		if r.Kind == trace.KindUnrouted && r.Traveler == "lost" {
			found = true
		}
	}
	assert.True(t, found, "unrouted record missing from trace")
}

// TestStuckTimeoutFlagsStarvedTraveler uses a signal plan that never serves
// the only turn: the vehicle waits at the stop line until the stuck timeout.
func TestStuckTimeoutFlagsStarvedTraveler(t *testing.T) {
	phases := []network.Phase{{Turns: nil, Duration: 5000}}
	net := lineNetwork(t, network.ControlSignal, phases)
	scenario := &ScenarioSpec{Spawns: []SpawnSpec{
		{ID: "v1", Mode: "vehicle", Origin: "A", Dest: "B", SpawnTick: 0},
	}}
	s := mustSimulator(t, net, scenario, testConfig())
	require.NoError(t, s.Run())

	tr, _ := s.Traveler("v1")
	assert.Equal(t, StateStuck, tr.State)
	assert.Equal(t, 1, s.Metrics.Stuck)
	assert.Equal(t, 0, s.Metrics.Arrived)

	// Last progress was reaching the head of A at 12500.
	found := false
	for _, r := range s.Trace.Records() {
		if r.Kind == trace.KindStuck {
			found = true
			assert.Equal(t, int64(12500+s.Config.StuckTimeout), r.Tick)
		}
	}
	assert.True(t, found)
}

// TestHorizonStopsRun leaves a traveler en route when the horizon passes.
func TestHorizonStopsRun(t *testing.T) {
	net := lineNetwork(t, network.ControlUncontrolled, nil)
	scenario := &ScenarioSpec{
		Horizon: 5000,
		Spawns: []SpawnSpec{
			{ID: "v1", Mode: "vehicle", Origin: "A", Dest: "B", SpawnTick: 0},
		},
	}
	s := mustSimulator(t, net, scenario, testConfig())
	require.NoError(t, s.Run())

	tr, _ := s.Traveler("v1")
	assert.Equal(t, StateMoving, tr.State)
	assert.Equal(t, 0, s.Metrics.Arrived)
	assert.LessOrEqual(t, s.Clock, int64(5000))
}

// TestRunResumesAfterHorizonRaise verifies that events beyond the horizon
// stay queued when a run stops: raising the horizon and running again must
// complete the trip.
func TestRunResumesAfterHorizonRaise(t *testing.T) {
	net := lineNetwork(t, network.ControlUncontrolled, nil)
	scenario := &ScenarioSpec{
		Horizon: 5000,
		Spawns: []SpawnSpec{
			{ID: "v1", Mode: "vehicle", Origin: "A", Dest: "B", SpawnTick: 0},
		},
	}
	s := mustSimulator(t, net, scenario, testConfig())
	require.NoError(t, s.Run())

	tr, _ := s.Traveler("v1")
	require.Equal(t, StateMoving, tr.State)

	s.Horizon = 3_600_000
	require.NoError(t, s.Run())
	tr, _ = s.Traveler("v1")
	assert.Equal(t, StateArrived, tr.State)
	assert.Equal(t, int64(22500), tr.ArrivedTick)
}

// checkMinGaps asserts that on every lane, on-network travelers keep at
// least the minimum following distance.
func checkMinGaps(t *testing.T, snap *Snapshot, minGap float64) {
	t.Helper()
	byLane := make(map[network.LaneID][]float64)
	for _, v := range snap.Travelers {
		if v.Lane == "" || v.State == StateArrived {
			continue
		}
		byLane[v.Lane] = append(byLane[v.Lane], v.Position)
	}
	for lane, positions := range byLane {
		sort.Float64s(positions)
		for i := 1; i < len(positions); i++ {
			assert.GreaterOrEqual(t, positions[i]-positions[i-1], minGap-1e-6,
				"gap violation on %s at tick %d", lane, snap.Tick)
		}
	}
}

// TestSignalColumnScenario drives a column of 5 vehicles, 2 s apart, through
// a two-phase signal (30 s green, 30 s red) on a 100 m, 10 m/s lane with a
// 4 m minimum gap: all must arrive in spawn order, the gap must hold at
// every step, and repeated runs must be identical.
func TestSignalColumnScenario(t *testing.T) {
	phases := []network.Phase{
		{Turns: []network.TurnID{"tAB"}, Duration: 30000},
		{Turns: nil, Duration: 30000},
	}
	var spawns []SpawnSpec
	for i := 0; i < 5; i++ {
		spawns = append(spawns, SpawnSpec{
			ID:        fmt.Sprintf("v%d", i+1),
			Mode:      "vehicle",
			Origin:    "A",
			Dest:      "B",
			SpawnTick: int64(i) * 2000,
		})
	}
	scenario := &ScenarioSpec{Spawns: spawns}

	run := func() *Simulator {
		s := mustSimulator(t, lineNetwork(t, network.ControlSignal, phases), scenario, testConfig())
		for {
			e := s.events.Peek()
			if e == nil {
				break
			}
			n, err := s.Step(e.Timestamp())
			require.NoError(t, err)
			if n == 0 {
				break
			}
			checkMinGaps(t, s.Snapshot(), s.Config.Kinematics.MinGap)
		}
		return s
	}
	s1 := run()

	assert.Equal(t, 5, s1.Metrics.Spawned)
	assert.Equal(t, 5, s1.Metrics.Arrived)
	assert.Equal(t, 0, s1.Metrics.Stuck)

	var last int64
	for i := 0; i < 5; i++ {
		tr, ok := s1.Traveler(TravelerID(fmt.Sprintf("v%d", i+1)))
		require.True(t, ok)
		require.Equal(t, StateArrived, tr.State)
		assert.Greater(t, tr.ArrivedTick, last)
		last = tr.ArrivedTick
	}

	s2 := run()
	assert.Equal(t, s1.Trace.Records(), s2.Trace.Records())
}

// TestSnapshotMidRun checks the immutable observer view between steps.
func TestSnapshotMidRun(t *testing.T) {
	net := diamondNetwork(t)
	scenario := &ScenarioSpec{Spawns: []SpawnSpec{
		{ID: "v1", Mode: "vehicle", Origin: "A", Dest: "D", SpawnTick: 0},
	}}
	s := mustSimulator(t, net, scenario, testConfig())

	_, err := s.Step(15000)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, s.Clock, snap.Tick)
	require.Len(t, snap.Travelers, 1)
	v := snap.Travelers[0]
	assert.Equal(t, TravelerID("v1"), v.ID)
	assert.Equal(t, StateMoving, v.State)
	assert.Equal(t, network.LaneID("B"), v.Lane, "fast route through B is optimal")
	assert.Len(t, snap.Intersections, 3)
	assert.Equal(t, 1, snap.Tally.Spawned)
	assert.Equal(t, 0, snap.Tally.Arrived)

	// Finishing the run from a stepped state works.
	require.NoError(t, s.Run())
	tr, _ := s.Traveler("v1")
	assert.Equal(t, StateArrived, tr.State)
	assert.Equal(t, int64(32500), tr.ArrivedTick)
}
