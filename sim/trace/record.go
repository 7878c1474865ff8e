// Package trace provides the state-change record stream emitted as
// simulation events fire. It stores pure data types with no dependency on
// sim/; rendering and analytics collaborators consume it through a cursor.
package trace

// RecordKind names one observable traveler state transition.
type RecordKind string

const (
	KindSpawned  RecordKind = "spawned"
	KindEntered  RecordKind = "entered" // crossed an intersection onto a new lane
	KindAdvanced RecordKind = "advanced"
	KindGranted  RecordKind = "granted"
	KindArrived  RecordKind = "arrived"
	KindStuck    RecordKind = "stuck"
	KindRerouted RecordKind = "rerouted"
	KindUnrouted RecordKind = "unrouted"
)

// Record captures a single state change: who, when, what, where.
type Record struct {
	Tick     int64
	Traveler string
	Kind     RecordKind
	Lane     string
	Position float64 // metres along Lane
}
