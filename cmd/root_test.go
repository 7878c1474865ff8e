package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") != "1" {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	os.Exit(m.Run())
}

const testNetworkYAML = `
lanes:
  - id: A
    length: 100
    speed_limit: 10
    modes: [vehicle]
    to: X
  - id: B
    length: 100
    speed_limit: 10
    modes: [vehicle]
    to: end
intersections:
  - id: X
    control: uncontrolled
  - id: end
    control: uncontrolled
turns:
  - id: tAB
    from: A
    to: B
    intersection: X
`

const testScenarioYAML = `
spawns:
  - id: v1
    mode: vehicle
    origin: A
    dest: B
    spawn_tick: 0
`

func writeSpecFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	netPath := filepath.Join(dir, "network.yaml")
	scnPath := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(netPath, []byte(testNetworkYAML), 0644))
	require.NoError(t, os.WriteFile(scnPath, []byte(testScenarioYAML), 0644))
	return netPath, scnPath
}

func TestFlagDefaults(t *testing.T) {
	cases := []struct {
		flag string
		want string
	}{
		{"seed", "42"},
		{"horizon", "3600000"},
		{"stuck-timeout", "60000"},
		{"spawn-jitter", "0"},
		{"min-gap", "4"},
		{"accel", "2"},
		{"rebuild-threshold", "128"},
	}
	for _, tc := range cases {
		f := runCmd.Flags().Lookup(tc.flag)
		require.NotNil(t, f, "flag %s not registered", tc.flag)
		assert.Equal(t, tc.want, f.DefValue, "flag %s", tc.flag)
	}

	tp := rootCmd.PersistentFlags().Lookup("turn-penalty")
	require.NotNil(t, tp)
	assert.Equal(t, "2000", tp.DefValue)
}

func TestBuildSimConfigFromFlags(t *testing.T) {
	defer func() {
		seed, horizon, stuckTimeout, spawnJitter = 42, 3_600_000, 60_000, 0
		minGap, accel = 4.0, 2.0
		turnPenalty, rebuildThreshold = 2000, 128
	}()

	seed = 7
	horizon = 120_000
	stuckTimeout = 30_000
	spawnJitter = 250
	minGap = 5.5
	accel = 1.5
	turnPenalty = 1000
	rebuildThreshold = 64

	cfg := buildSimConfig()
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, int64(120_000), cfg.Horizon)
	assert.Equal(t, int64(30_000), cfg.StuckTimeout)
	assert.Equal(t, int64(250), cfg.SpawnJitter)
	assert.Equal(t, 5.5, cfg.Kinematics.MinGap)
	assert.Equal(t, 1.5, cfg.Kinematics.Accel)
	assert.Equal(t, int64(1000), cfg.Index.TurnPenalty)
	assert.Equal(t, 64, cfg.Index.RebuildThreshold)

	// Knobs without flags keep the tuned defaults.
	assert.Equal(t, int64(500), cfg.Kinematics.SpawnRetryTicks)
	assert.Equal(t, int64(500), cfg.Kinematics.GrantRetryTicks)
}

func TestRunCommand(t *testing.T) {
	netPath, scnPath := writeSpecFiles(t)
	rootCmd.SetArgs([]string{"run", "--network", netPath, "--scenario", scnPath, "--seed", "7"})
	require.NoError(t, rootCmd.Execute())
}

func TestRouteCommand(t *testing.T) {
	netPath, _ := writeSpecFiles(t)
	rootCmd.SetArgs([]string{"route", "--network", netPath, "--origin", "A", "--dest", "B"})
	require.NoError(t, rootCmd.Execute())
}
