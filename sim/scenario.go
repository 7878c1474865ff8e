package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/traffic-sim/traffic-sim/sim/network"
)

// ScenarioSpec is an ordered list of spawn records fed to the simulation
// driver. Loaded from YAML via LoadScenarioSpec(path).
type ScenarioSpec struct {
	Seed    int64       `yaml:"seed"`
	Horizon int64       `yaml:"horizon,omitempty"` // ticks; 0 = use config default
	Spawns  []SpawnSpec `yaml:"spawns"`
}

// SpawnSpec describes one traveler to inject.
type SpawnSpec struct {
	ID        string `yaml:"id"`
	Mode      string `yaml:"mode"`
	Origin    string `yaml:"origin"`
	Dest      string `yaml:"dest"`
	SpawnTick int64  `yaml:"spawn_tick"`
}

// LoadScenarioSpec reads and parses a YAML scenario spec from path.
func LoadScenarioSpec(path string) (*ScenarioSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario spec: %w", err)
	}
	var spec ScenarioSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing scenario spec: %w", err)
	}
	return &spec, nil
}

// Validate checks every spawn record against the network.
func (spec *ScenarioSpec) Validate(net *network.Network) error {
	seen := make(map[string]bool, len(spec.Spawns))
	for i, sp := range spec.Spawns {
		if sp.ID == "" {
			return fmt.Errorf("spawn %d: id required", i)
		}
		if seen[sp.ID] {
			return fmt.Errorf("spawn %d: duplicate traveler id %q", i, sp.ID)
		}
		seen[sp.ID] = true
		if !network.IsValidMode(sp.Mode) {
			return fmt.Errorf("spawn %q: unknown mode %q", sp.ID, sp.Mode)
		}
		if net.Lane(network.LaneID(sp.Origin)) == nil {
			return fmt.Errorf("spawn %q: unknown origin lane %q", sp.ID, sp.Origin)
		}
		if net.Lane(network.LaneID(sp.Dest)) == nil {
			return fmt.Errorf("spawn %q: unknown destination lane %q", sp.ID, sp.Dest)
		}
		if sp.SpawnTick < 0 {
			return fmt.Errorf("spawn %q: negative spawn tick", sp.ID)
		}
	}
	return nil
}
