// Tracks simulation-wide and per-traveler outcome counters.

package sim

import "fmt"

// Metrics aggregates statistics about the simulation for final reporting
// and for the degraded-run tally exposed through snapshots.
type Metrics struct {
	Spawned  int // travelers placed on the network
	Arrived  int // travelers that reached their destination
	Stuck    int // travelers flagged by the stuck timeout
	Unrouted int // scenario entries with no route (never spawned)
	Reroutes int // reroute events executed after network edits

	TotalTravelTicks int64 // sum of (arrival - spawn) over arrived travelers

	TravelerTravelTicks map[TravelerID]int64 // traveler -> travel time
}

// NewMetrics returns zeroed metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		TravelerTravelTicks: make(map[TravelerID]int64),
	}
}

// Tally is the compact counter view carried on every snapshot, letting a
// caller detect degraded runs (disconnected regions, gridlock) without
// inspecting internals.
type Tally struct {
	Spawned  int
	Arrived  int
	Stuck    int
	Unrouted int
}

// Tally returns the current counter view.
func (m *Metrics) Tally() Tally {
	return Tally{
		Spawned:  m.Spawned,
		Arrived:  m.Arrived,
		Stuck:    m.Stuck,
		Unrouted: m.Unrouted,
	}
}

// Print displays aggregated metrics at the end of the simulation.
func (m *Metrics) Print(endTick int64) {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Simulated time     : %d ticks\n", endTick)
	fmt.Printf("Spawned            : %d\n", m.Spawned)
	fmt.Printf("Arrived            : %d\n", m.Arrived)
	fmt.Printf("Stuck              : %d\n", m.Stuck)
	fmt.Printf("Unrouted           : %d\n", m.Unrouted)
	fmt.Printf("Reroutes           : %d\n", m.Reroutes)
	if m.Arrived > 0 {
		fmt.Printf("Average travel time: %.2f ticks\n", float64(m.TotalTravelTicks)/float64(m.Arrived))
	}
}
