package sim

// EventType names a kind of scheduled state transition.
type EventType string

const (
	EventTypeSpawn       EventType = "Spawn"
	EventTypePhaseChange EventType = "PhaseChange"
	EventTypeReroute     EventType = "Reroute"
	EventTypeAdvance     EventType = "Advance"
	EventTypeTurnRequest EventType = "TurnRequest"
	EventTypeStuckCheck  EventType = "StuckCheck"
)

// EventTypePriority defines ordering for simultaneous events.
// Lower values are processed first. Together with the event ID tie-break,
// this fixes a total order over same-tick events and is the basis of
// run-to-run determinism.
var EventTypePriority = map[EventType]int{
	EventTypeSpawn:       1,
	EventTypePhaseChange: 2,
	EventTypeReroute:     3,
	EventTypeAdvance:     4,
	EventTypeTurnRequest: 5,
	EventTypeStuckCheck:  6,
}

// Event represents a timestamped future state transition.
// Event IDs are assigned by the owning Simulator at schedule time, in
// schedule order, so a fixed seed reproduces the same IDs.
type Event interface {
	Timestamp() int64
	EventID() uint64
	Type() EventType
	Execute(sim *Simulator)
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	timestamp int64
	eventID   uint64
	eventType EventType
}

func (e *BaseEvent) Timestamp() int64 { return e.timestamp }
func (e *BaseEvent) EventID() uint64  { return e.eventID }
func (e *BaseEvent) Type() EventType  { return e.eventType }

// setID is called by the Simulator when the event enters the queue.
func (e *BaseEvent) setID(id uint64) { e.eventID = id }
