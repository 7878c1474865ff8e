package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/traffic-sim/traffic-sim/sim/network"
	"github.com/traffic-sim/traffic-sim/sim/trace"
)

func newBaseEvent(timestamp int64, eventType EventType) BaseEvent {
	return BaseEvent{timestamp: timestamp, eventType: eventType}
}

// SpawnEvent places a traveler on its origin lane, or re-checks later when
// the lane entry is blocked.
type SpawnEvent struct {
	BaseEvent
	idx int
}

func newSpawnEvent(timestamp int64, idx int) *SpawnEvent {
	return &SpawnEvent{BaseEvent: newBaseEvent(timestamp, EventTypeSpawn), idx: idx}
}

func (e *SpawnEvent) Execute(s *Simulator) {
	tr := s.travelers[e.idx]
	if tr.State.Terminal() || tr.pendingEvent != e.EventID() {
		return
	}
	tr.pendingEvent = 0

	origin := tr.Path.Origin
	if !s.canEnter(origin, tr.Mode) {
		tr.State = StateQueued
		tr.pendingEvent = s.Schedule(newSpawnEvent(s.Clock+s.Config.Kinematics.SpawnRetryTicks, e.idx))
		s.ensureStuckCheck(e.idx)
		return
	}

	logrus.Infof("<< Spawn: %s onto %s at %d ticks", tr.ID, origin, s.Clock)
	tr.Lane = origin
	tr.Position = 0
	tr.Speed = 0
	tr.State = StateMoving
	tr.lastProgress = s.Clock
	s.laneOcc[origin] = append(s.laneOcc[origin], e.idx)
	s.Metrics.Spawned++
	s.record(trace.KindSpawned, tr)
	s.planAdvance(e.idx)
}

// AdvanceEvent moves a traveler to the position planned when the event was
// scheduled. The plan is conservative (the leader was treated as parked), so
// it is always still feasible when the event fires.
type AdvanceEvent struct {
	BaseEvent
	idx          int
	target       float64
	arrivalSpeed float64
}

func newAdvanceEvent(timestamp int64, idx int, target, arrivalSpeed float64) *AdvanceEvent {
	return &AdvanceEvent{
		BaseEvent:    newBaseEvent(timestamp, EventTypeAdvance),
		idx:          idx,
		target:       target,
		arrivalSpeed: arrivalSpeed,
	}
}

func (e *AdvanceEvent) Execute(s *Simulator) {
	tr := s.travelers[e.idx]
	if tr.State.Terminal() || tr.pendingEvent != e.EventID() {
		return
	}
	tr.pendingEvent = 0

	// First motion on a new lane clears the intersection behind us.
	s.releaseGrant(tr)

	tr.Position = e.target
	tr.Speed = e.arrivalSpeed
	tr.lastProgress = s.Clock
	s.record(trace.KindAdvanced, tr)
	s.wakeFollower(tr.Lane, e.idx)

	lane := s.net.Lane(tr.Lane)
	if tr.Position >= lane.Length-positionEps {
		if tr.Lane == tr.Path.Dest {
			s.arrive(e.idx)
			return
		}
		tr.pendingEvent = s.Schedule(newTurnRequestEvent(s.Clock, e.idx))
		return
	}
	s.planAdvance(e.idx)
}

// TurnRequestEvent asks the intersection controller for permission to cross
// onto the next lane of the traveler's path.
type TurnRequestEvent struct {
	BaseEvent
	idx int
}

func newTurnRequestEvent(timestamp int64, idx int) *TurnRequestEvent {
	return &TurnRequestEvent{BaseEvent: newBaseEvent(timestamp, EventTypeTurnRequest), idx: idx}
}

func (e *TurnRequestEvent) Execute(s *Simulator) {
	tr := s.travelers[e.idx]
	if tr.State.Terminal() || tr.pendingEvent != e.EventID() {
		return
	}
	tr.pendingEvent = 0

	next, turnID, ok := tr.Path.NextLane(tr.Lane)
	if !ok {
		s.fail(fmt.Errorf("%w: traveler %s at %s has no path continuation (tick %d)",
			ErrInvalidTurn, tr.ID, tr.Lane, s.Clock))
		return
	}
	turn := s.net.Turn(turnID)
	if turn == nil || turn.From != tr.Lane || turn.To != next {
		s.fail(fmt.Errorf("%w: traveler %s requested turn %s from %s to %s (tick %d)",
			ErrInvalidTurn, tr.ID, turnID, tr.Lane, next, s.Clock))
		return
	}

	if !s.canEnter(next, tr.Mode) {
		tr.State = StateBlocked
		tr.pendingEvent = s.Schedule(newTurnRequestEvent(s.Clock+s.Config.Kinematics.GrantRetryTicks, e.idx))
		s.ensureStuckCheck(e.idx)
		return
	}

	decision := s.controllers[turn.Intersection].RequestTurn(s.Clock, tr.ID, turn)
	if !decision.Granted {
		until := decision.Until
		if until <= s.Clock {
			until = s.Clock + 1
		}
		tr.State = StateBlocked
		tr.pendingEvent = s.Schedule(newTurnRequestEvent(until, e.idx))
		s.ensureStuckCheck(e.idx)
		return
	}

	s.record(trace.KindGranted, tr)
	s.removeFromLane(tr.Lane, e.idx)

	entrySpeed := s.net.Lane(next).SpeedLimit
	if m := tr.Mode.MaxSpeed(); m < entrySpeed {
		entrySpeed = m
	}
	if tr.Speed < entrySpeed {
		entrySpeed = tr.Speed
	}

	tr.Lane = next
	tr.Position = 0
	tr.Speed = entrySpeed
	tr.State = StateMoving
	tr.lastProgress = s.Clock
	tr.heldTurn = turn
	s.laneOcc[next] = append(s.laneOcc[next], e.idx)
	s.record(trace.KindEntered, tr)
	s.planAdvance(e.idx)
}

// PhaseChangeEvent advances a signal intersection to its next phase and
// perpetuates the cycle while any traveler is still outstanding.
type PhaseChangeEvent struct {
	BaseEvent
	intersection network.IntersectionID
}

func newPhaseChangeEvent(timestamp int64, id network.IntersectionID) *PhaseChangeEvent {
	return &PhaseChangeEvent{BaseEvent: newBaseEvent(timestamp, EventTypePhaseChange), intersection: id}
}

func (e *PhaseChangeEvent) Execute(s *Simulator) {
	c, ok := s.controllers[e.intersection].(*signalControl)
	if !ok {
		return
	}
	if s.active == 0 {
		// Nobody left to serve; let the queue drain.
		return
	}
	dur := c.advancePhase(s.Clock)
	logrus.Debugf("[tick %07d] %s -> phase %d", s.Clock, e.intersection, c.phaseIdx)
	s.Schedule(newPhaseChangeEvent(s.Clock+dur, e.intersection))
}

// RerouteEvent re-queries the path index for a traveler whose path was
// invalidated by a network edit.
type RerouteEvent struct {
	BaseEvent
	idx int
}

func newRerouteEvent(timestamp int64, idx int) *RerouteEvent {
	return &RerouteEvent{BaseEvent: newBaseEvent(timestamp, EventTypeReroute), idx: idx}
}

func (e *RerouteEvent) Execute(s *Simulator) {
	tr := s.travelers[e.idx]
	if tr.State.Terminal() {
		return
	}
	s.reroute(e.idx)
}

// StuckCheckEvent flags a traveler that has made no progress for the stuck
// timeout, excluding it from further scheduling.
type StuckCheckEvent struct {
	BaseEvent
	idx int
}

func newStuckCheckEvent(timestamp int64, idx int) *StuckCheckEvent {
	return &StuckCheckEvent{BaseEvent: newBaseEvent(timestamp, EventTypeStuckCheck), idx: idx}
}

func (e *StuckCheckEvent) Execute(s *Simulator) {
	tr := s.travelers[e.idx]
	if tr.stuckCheck != e.EventID() {
		return
	}
	tr.stuckCheck = 0
	if tr.State.Terminal() {
		return
	}
	if s.Clock-tr.lastProgress >= s.Config.StuckTimeout {
		s.markStuck(e.idx)
		return
	}
	tr.stuckCheck = s.Schedule(newStuckCheckEvent(tr.lastProgress+s.Config.StuckTimeout, e.idx))
}
