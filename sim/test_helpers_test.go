package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/traffic-sim/traffic-sim/sim/network"
)

func allModes() map[network.TravelMode]bool {
	return map[network.TravelMode]bool{
		network.ModeVehicle:    true,
		network.ModeBike:       true,
		network.ModePedestrian: true,
	}
}

// lineNetwork builds A -> X -> B with the given control at X.
// Both lanes are 100 m at 10 m/s, so a vehicle accelerating from rest at
// 2 m/s^2 traverses A in exactly 12500 ticks and B (entered at speed) in
// exactly 10000.
func lineNetwork(t *testing.T, control network.ControlType, phases []network.Phase) *network.Network {
	t.Helper()
	n, err := network.New(
		[]*network.Lane{
			{ID: "A", Length: 100, SpeedLimit: 10, Modes: allModes(), To: "X"},
			{ID: "B", Length: 100, SpeedLimit: 10, Modes: allModes(), To: "end"},
		},
		[]*network.Intersection{
			{ID: "X", Control: control, Phases: phases},
			{ID: "end", Control: network.ControlUncontrolled},
		},
		[]*network.Turn{
			{ID: "tAB", From: "A", To: "B", Intersection: "X"},
		},
	)
	require.NoError(t, err)
	return n
}

// diamondNetwork builds two routes from A to D: the fast one via B and a
// slower one via C (lower speed limit).
func diamondNetwork(t *testing.T) *network.Network {
	t.Helper()
	n, err := network.New(
		[]*network.Lane{
			{ID: "A", Length: 100, SpeedLimit: 10, Modes: allModes(), To: "X"},
			{ID: "B", Length: 100, SpeedLimit: 10, Modes: allModes(), To: "Y"},
			{ID: "C", Length: 100, SpeedLimit: 5, Modes: allModes(), To: "Y"},
			{ID: "D", Length: 100, SpeedLimit: 10, Modes: allModes(), To: "end"},
		},
		[]*network.Intersection{
			{ID: "X", Control: network.ControlUncontrolled},
			{ID: "Y", Control: network.ControlUncontrolled},
			{ID: "end", Control: network.ControlUncontrolled},
		},
		[]*network.Turn{
			{ID: "tAB", From: "A", To: "B", Intersection: "X"},
			{ID: "tAC", From: "A", To: "C", Intersection: "X"},
			{ID: "tBD", From: "B", To: "D", Intersection: "Y"},
			{ID: "tCD", From: "C", To: "D", Intersection: "Y"},
		},
	)
	require.NoError(t, err)
	return n
}

// forkNetwork builds two approach lanes A1 and A2 merging onto B at one
// intersection, for controller contention tests. A2 is longer so its vehicle
// arrives second.
func forkNetwork(t *testing.T, control network.ControlType) *network.Network {
	t.Helper()
	n, err := network.New(
		[]*network.Lane{
			{ID: "A1", Length: 100, SpeedLimit: 10, Modes: allModes(), To: "X"},
			{ID: "A2", Length: 150, SpeedLimit: 10, Modes: allModes(), To: "X"},
			{ID: "B", Length: 100, SpeedLimit: 10, Modes: allModes(), To: "end"},
		},
		[]*network.Intersection{
			{ID: "X", Control: control},
			{ID: "end", Control: network.ControlUncontrolled},
		},
		[]*network.Turn{
			{ID: "tA1B", From: "A1", To: "B", Intersection: "X"},
			{ID: "tA2B", From: "A2", To: "B", Intersection: "X"},
		},
	)
	require.NoError(t, err)
	return n
}

func testConfig() SimConfig {
	cfg := DefaultSimConfig()
	cfg.Seed = 42
	return cfg
}

func mustSimulator(t *testing.T, net *network.Network, scenario *ScenarioSpec, cfg SimConfig) *Simulator {
	t.Helper()
	s, err := NewSimulator(net, scenario, cfg)
	require.NoError(t, err)
	return s
}
