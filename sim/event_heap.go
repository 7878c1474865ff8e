package sim

import "container/heap"

// EventHeap implements a priority queue with deterministic ordering.
// Ordering: timestamp → type priority → event ID.
type EventHeap struct {
	events    []Event
	cancelled map[uint64]bool
}

// NewEventHeap creates a new event heap.
func NewEventHeap() *EventHeap {
	h := &EventHeap{
		events:    make([]Event, 0),
		cancelled: make(map[uint64]bool),
	}
	heap.Init(h)
	return h
}

// Len implements heap.Interface.
func (h *EventHeap) Len() int {
	return len(h.events)
}

// Less implements heap.Interface with deterministic ordering.
// Order by: timestamp → type priority → event ID.
func (h *EventHeap) Less(i, j int) bool {
	ei, ej := h.events[i], h.events[j]

	if ei.Timestamp() != ej.Timestamp() {
		return ei.Timestamp() < ej.Timestamp()
	}

	priI := EventTypePriority[ei.Type()]
	priJ := EventTypePriority[ej.Type()]
	if priI != priJ {
		return priI < priJ
	}

	return ei.EventID() < ej.EventID()
}

// Swap implements heap.Interface.
func (h *EventHeap) Swap(i, j int) {
	h.events[i], h.events[j] = h.events[j], h.events[i]
}

// Push implements heap.Interface.
func (h *EventHeap) Push(x interface{}) {
	h.events = append(h.events, x.(Event))
}

// Pop implements heap.Interface.
func (h *EventHeap) Pop() interface{} {
	old := h.events
	n := len(old)
	item := old[n-1]
	h.events = old[0 : n-1]
	return item
}

// Schedule adds an event to the heap.
func (h *EventHeap) Schedule(e Event) {
	heap.Push(h, e)
}

// Cancel marks an event id as cancelled; the event is discarded when it
// reaches the head of the queue. Used when a network edit or traveler
// removal invalidates pending transitions.
func (h *EventHeap) Cancel(id uint64) {
	h.cancelled[id] = true
}

// PopNext removes and returns the next live event, discarding cancelled
// ones. Returns nil when the queue is exhausted.
func (h *EventHeap) PopNext() Event {
	for h.Len() > 0 {
		e := heap.Pop(h).(Event)
		if h.cancelled[e.EventID()] {
			delete(h.cancelled, e.EventID())
			continue
		}
		return e
	}
	return nil
}

// Peek returns the next live event without removing it.
func (h *EventHeap) Peek() Event {
	for h.Len() > 0 {
		e := h.events[0]
		if h.cancelled[e.EventID()] {
			heap.Pop(h)
			delete(h.cancelled, e.EventID())
			continue
		}
		return e
	}
	return nil
}
