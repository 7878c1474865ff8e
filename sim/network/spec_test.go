package network

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleNetworkYAML = `
lanes:
  - id: A
    length: 100
    speed_limit: 10
    modes: [vehicle, bike]
    to: X
  - id: B
    length: 50
    speed_limit: 10
    modes: [vehicle]
    capacity: 3
    to: end
intersections:
  - id: X
    control: signal
    phases:
      - turns: [tAB]
        duration: 5000
  - id: end
    control: uncontrolled
turns:
  - id: tAB
    from: A
    to: B
    intersection: X
    restriction: g1
`

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "network.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAndBuildNetworkSpec(t *testing.T) {
	spec, err := LoadNetworkSpec(writeSpec(t, sampleNetworkYAML))
	require.NoError(t, err)
	require.Len(t, spec.Lanes, 2)
	require.Len(t, spec.Intersections, 2)
	require.Len(t, spec.Turns, 1)

	n, err := spec.Build()
	require.NoError(t, err)

	a := n.Lane("A")
	require.NotNil(t, a)
	assert.Equal(t, 100.0, a.Length)
	assert.True(t, a.AllowsMode(ModeBike))
	assert.False(t, a.AllowsMode(ModePedestrian))

	b := n.Lane("B")
	require.NotNil(t, b)
	assert.Equal(t, 3, b.Capacity)

	tab := n.Turn("tAB")
	require.NotNil(t, tab)
	assert.Equal(t, RestrictionGroupID("g1"), tab.Restriction)

	x := n.Intersection("X")
	require.NotNil(t, x)
	assert.Equal(t, ControlSignal, x.Control)
	require.Len(t, x.Phases, 1)
	assert.Equal(t, int64(5000), x.Phases[0].Duration)
}

func TestLoadNetworkSpecErrors(t *testing.T) {
	_, err := LoadNetworkSpec(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading network spec")

	_, err = LoadNetworkSpec(writeSpec(t, "lanes: [not a mapping"))
	assert.ErrorContains(t, err, "parsing network spec")
}

func TestBuildRejectsUnknownEnums(t *testing.T) {
	spec := &NetworkSpec{
		Lanes:         []LaneSpec{{ID: "A", Length: 100, SpeedLimit: 10, Modes: []string{"hovercraft"}, To: "X"}},
		Intersections: []IntersectionSpec{{ID: "X", Control: "uncontrolled"}},
	}
	_, err := spec.Build()
	assert.ErrorContains(t, err, "unknown travel mode")

	spec = &NetworkSpec{
		Lanes:         []LaneSpec{{ID: "A", Length: 100, SpeedLimit: 10, Modes: []string{"vehicle"}, To: "X"}},
		Intersections: []IntersectionSpec{{ID: "X", Control: "roundabout"}},
	}
	_, err = spec.Build()
	assert.ErrorContains(t, err, "unknown control type")
}
