package sim

import (
	"sort"

	"github.com/traffic-sim/traffic-sim/sim/network"
)

// TravelerView is an immutable copy of one traveler's observable state.
type TravelerView struct {
	ID        TravelerID
	Mode      network.TravelMode
	State     TravelerState
	Lane      network.LaneID
	Position  float64
	Speed     float64
	SpawnTick int64
}

// IntersectionView is an immutable copy of one intersection's control state.
type IntersectionView struct {
	ID          network.IntersectionID
	Control     network.ControlType
	ActivePhase int                           // signal control only
	Occupancy   map[network.LaneID]TravelerID // held destination entry slots
	Occupant    TravelerID                    // stop control: traveler holding the junction
}

// Snapshot is the immutable view handed to rendering/analytics consumers.
// It shares no storage with the simulator and is safe to read while the
// driver is paused between steps.
type Snapshot struct {
	Tick          int64
	Travelers     []TravelerView
	Intersections []IntersectionView
	Tally         Tally
}

// Snapshot deep-copies all current traveler and intersection state.
func (s *Simulator) Snapshot() *Snapshot {
	snap := &Snapshot{
		Tick:  s.Clock,
		Tally: s.Metrics.Tally(),
	}

	for _, tr := range s.travelers {
		snap.Travelers = append(snap.Travelers, TravelerView{
			ID:        tr.ID,
			Mode:      tr.Mode,
			State:     tr.State,
			Lane:      tr.Lane,
			Position:  tr.Position,
			Speed:     tr.Speed,
			SpawnTick: tr.SpawnTick,
		})
	}
	sort.Slice(snap.Travelers, func(i, j int) bool {
		return snap.Travelers[i].ID < snap.Travelers[j].ID
	})

	for _, id := range s.net.IntersectionIDs() {
		in := s.net.Intersection(id)
		view := IntersectionView{
			ID:        id,
			Control:   in.Control,
			Occupancy: make(map[network.LaneID]TravelerID),
		}
		switch c := s.controllers[id].(type) {
		case *signalControl:
			view.ActivePhase = c.phaseIdx
			for lane, tr := range c.occupancy {
				view.Occupancy[lane] = tr
			}
		case *stopControl:
			if c.occupied {
				view.Occupant = c.occupant
			}
		case *uncontrolledControl:
			for lane, tr := range c.occupancy {
				view.Occupancy[lane] = tr
			}
		}
		snap.Intersections = append(snap.Intersections, view)
	}
	return snap
}
