package trace

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary aggregates statistics from a Trace.
type Summary struct {
	Spawned  int
	Arrived  int
	Stuck    int
	Unrouted int
	Reroutes int

	MeanTravelTicks float64
	P50TravelTicks  float64
	P90TravelTicks  float64
	P99TravelTicks  float64
}

// Summarize computes aggregate statistics from a Trace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(t *Trace) *Summary {
	s := &Summary{}
	if t == nil {
		return s
	}

	spawnTick := make(map[string]int64)
	var travelTimes []float64
	for _, r := range t.records {
		switch r.Kind {
		case KindSpawned:
			s.Spawned++
			spawnTick[r.Traveler] = r.Tick
		case KindArrived:
			s.Arrived++
			if st, ok := spawnTick[r.Traveler]; ok {
				travelTimes = append(travelTimes, float64(r.Tick-st))
			}
		case KindStuck:
			s.Stuck++
		case KindUnrouted:
			s.Unrouted++
		case KindRerouted:
			s.Reroutes++
		}
	}

	if len(travelTimes) > 0 {
		sort.Float64s(travelTimes)
		s.MeanTravelTicks = stat.Mean(travelTimes, nil)
		s.P50TravelTicks = stat.Quantile(0.5, stat.Empirical, travelTimes, nil)
		s.P90TravelTicks = stat.Quantile(0.9, stat.Empirical, travelTimes, nil)
		s.P99TravelTicks = stat.Quantile(0.99, stat.Empirical, travelTimes, nil)
	}
	return s
}
