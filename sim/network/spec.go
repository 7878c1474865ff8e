package network

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NetworkSpec is the top-level network description.
// Loaded from YAML via LoadNetworkSpec(path).
type NetworkSpec struct {
	Lanes         []LaneSpec         `yaml:"lanes"`
	Intersections []IntersectionSpec `yaml:"intersections"`
	Turns         []TurnSpec         `yaml:"turns"`
}

// LaneSpec describes one directed lane.
type LaneSpec struct {
	ID         string   `yaml:"id"`
	Length     float64  `yaml:"length"`      // metres
	SpeedLimit float64  `yaml:"speed_limit"` // m/s
	Modes      []string `yaml:"modes"`
	Capacity   int      `yaml:"capacity,omitempty"` // 0 = derived
	To         string   `yaml:"to"`                 // terminal intersection
}

// IntersectionSpec describes one junction and its control discipline.
type IntersectionSpec struct {
	ID      string      `yaml:"id"`
	Control string      `yaml:"control"` // signal, stop, uncontrolled
	Phases  []PhaseSpec `yaml:"phases,omitempty"`
}

// PhaseSpec is one signal phase: a set of simultaneously permitted turns.
type PhaseSpec struct {
	Turns    []string `yaml:"turns"`
	Duration int64    `yaml:"duration"` // ticks
}

// TurnSpec describes one permitted lane-to-lane movement.
type TurnSpec struct {
	ID           string `yaml:"id"`
	From         string `yaml:"from"`
	To           string `yaml:"to"`
	Intersection string `yaml:"intersection"`
	Restriction  string `yaml:"restriction,omitempty"`
}

// LoadNetworkSpec reads and parses a YAML network spec from path.
func LoadNetworkSpec(path string) (*NetworkSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network spec: %w", err)
	}
	var spec NetworkSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing network spec: %w", err)
	}
	return &spec, nil
}

// Build assembles and validates the immutable Network from the spec.
func (spec *NetworkSpec) Build() (*Network, error) {
	lanes := make([]*Lane, 0, len(spec.Lanes))
	for _, ls := range spec.Lanes {
		modes := make(map[TravelMode]bool, len(ls.Modes))
		for _, m := range ls.Modes {
			if !IsValidMode(m) {
				return nil, fmt.Errorf("lane %q: unknown travel mode %q", ls.ID, m)
			}
			modes[TravelMode(m)] = true
		}
		lanes = append(lanes, &Lane{
			ID:         LaneID(ls.ID),
			Length:     ls.Length,
			SpeedLimit: ls.SpeedLimit,
			Modes:      modes,
			Capacity:   ls.Capacity,
			To:         IntersectionID(ls.To),
		})
	}

	intersections := make([]*Intersection, 0, len(spec.Intersections))
	for _, is := range spec.Intersections {
		switch ControlType(is.Control) {
		case ControlSignal, ControlStop, ControlUncontrolled:
		default:
			return nil, fmt.Errorf("intersection %q: unknown control type %q", is.ID, is.Control)
		}
		phases := make([]Phase, 0, len(is.Phases))
		for _, ps := range is.Phases {
			turns := make([]TurnID, 0, len(ps.Turns))
			for _, t := range ps.Turns {
				turns = append(turns, TurnID(t))
			}
			phases = append(phases, Phase{Turns: turns, Duration: ps.Duration})
		}
		intersections = append(intersections, &Intersection{
			ID:      IntersectionID(is.ID),
			Control: ControlType(is.Control),
			Phases:  phases,
		})
	}

	turns := make([]*Turn, 0, len(spec.Turns))
	for _, ts := range spec.Turns {
		turns = append(turns, &Turn{
			ID:           TurnID(ts.ID),
			From:         LaneID(ts.From),
			To:           LaneID(ts.To),
			Intersection: IntersectionID(ts.Intersection),
			Restriction:  RestrictionGroupID(ts.Restriction),
		})
	}

	return New(lanes, intersections, turns)
}
