package sim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/traffic-sim/traffic-sim/sim/network"
	"github.com/traffic-sim/traffic-sim/sim/routing"
	"github.com/traffic-sim/traffic-sim/sim/trace"
)

// positionEps absorbs float accumulation when comparing a position against
// the lane length.
const positionEps = 1e-9

// Simulator is the discrete-event driver: it owns the clock, the event
// queue, all traveler state, the per-mode path indexes, and the intersection
// controllers. Single-goroutine by construction; determinism for a fixed
// seed and scenario is a hard invariant.
type Simulator struct {
	Clock   int64
	Horizon int64
	Config  SimConfig
	Metrics *Metrics
	Trace   *trace.Trace

	net     *network.Network
	indexes map[network.TravelMode]*routing.Index
	rng     *PartitionedRNG

	events      *EventHeap
	nextEventID uint64

	travelers []*Traveler
	byID      map[TravelerID]int
	pathOwner map[routing.PathID]int

	// laneOcc holds arena indexes front-to-back per lane. Order is entry
	// order; travelers never pass each other within a lane.
	laneOcc map[network.LaneID][]int

	controllers map[network.IntersectionID]controller

	active int // travelers not yet in a terminal state
	fatal  error
}

// NewSimulator validates the scenario against the network, builds one path
// index per travel mode present, routes every spawn record, and schedules
// the initial events.
func NewSimulator(net *network.Network, scenario *ScenarioSpec, cfg SimConfig) (*Simulator, error) {
	if err := scenario.Validate(net); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	seed := cfg.Seed
	if scenario.Seed != 0 {
		seed = scenario.Seed
	}
	horizon := cfg.Horizon
	if scenario.Horizon > 0 {
		horizon = scenario.Horizon
	}

	s := &Simulator{
		Horizon:     horizon,
		Config:      cfg,
		Metrics:     NewMetrics(),
		Trace:       trace.New(),
		net:         net,
		indexes:     make(map[network.TravelMode]*routing.Index),
		rng:         NewPartitionedRNG(NewSimulationKey(seed)),
		events:      NewEventHeap(),
		byID:        make(map[TravelerID]int),
		pathOwner:   make(map[routing.PathID]int),
		laneOcc:     make(map[network.LaneID][]int),
		controllers: make(map[network.IntersectionID]controller),
	}

	for _, id := range net.IntersectionIDs() {
		in := net.Intersection(id)
		s.controllers[id] = newController(in, cfg.Kinematics.GrantRetryTicks)
		if in.Control == network.ControlSignal && len(in.Phases) > 0 {
			s.Schedule(newPhaseChangeEvent(in.Phases[0].Duration, id))
		}
	}

	if err := s.ingest(scenario); err != nil {
		return nil, err
	}
	return s, nil
}

// ingest routes every spawn record and schedules the spawn events.
// Unroutable entries are counted and skipped; the run proceeds degraded.
func (s *Simulator) ingest(scenario *ScenarioSpec) error {
	jitterRNG := s.rng.ForSubsystem(SubsystemScenario)
	for _, sp := range scenario.Spawns {
		mode := network.TravelMode(sp.Mode)
		origin := network.LaneID(sp.Origin)
		dest := network.LaneID(sp.Dest)

		path, err := s.indexFor(mode).Query(origin, dest)
		if err != nil {
			if !errors.Is(err, routing.ErrNoRouteFound) {
				return fmt.Errorf("routing spawn %q: %w", sp.ID, err)
			}
			logrus.Warnf("no route for %s: %s -> %s (%s)", sp.ID, origin, dest, mode)
			s.Metrics.Unrouted++
			s.Trace.Append(trace.Record{
				Tick:     sp.SpawnTick,
				Traveler: sp.ID,
				Kind:     trace.KindUnrouted,
				Lane:     sp.Origin,
			})
			continue
		}

		tick := sp.SpawnTick
		if s.Config.SpawnJitter > 0 {
			tick += jitterRNG.Int63n(s.Config.SpawnJitter + 1)
		}

		idx := len(s.travelers)
		tr := &Traveler{
			ID:           TravelerID(sp.ID),
			Mode:         mode,
			Path:         path,
			State:        StateQueued,
			SpawnTick:    tick,
			idx:          idx,
			lastProgress: tick,
		}
		s.travelers = append(s.travelers, tr)
		s.byID[tr.ID] = idx
		s.pathOwner[path.ID] = idx
		s.active++
		tr.pendingEvent = s.Schedule(newSpawnEvent(tick, idx))
	}
	return nil
}

// indexFor returns the path index for a mode, building it on first use.
func (s *Simulator) indexFor(mode network.TravelMode) *routing.Index {
	if ix, ok := s.indexes[mode]; ok {
		return ix
	}
	ix := routing.Build(s.net, mode, s.Config.Index)
	s.indexes[mode] = ix
	return ix
}

// Schedule assigns the event its queue ID and enqueues it. IDs are issued in
// schedule order, which fixes the same-tick tie-break across runs.
func (s *Simulator) Schedule(e Event) uint64 {
	s.nextEventID++
	if be, ok := e.(interface{ setID(uint64) }); ok {
		be.setID(s.nextEventID)
	}
	s.events.Schedule(e)
	return s.nextEventID
}

// Run drains the event queue until the horizon passes, the network empties,
// or a fatal inconsistency aborts the run.
func (s *Simulator) Run() error {
	logrus.Infof("starting simulation: horizon=%d ticks, travelers=%d", s.Horizon, s.active)
	for {
		if s.fatal != nil {
			return s.fatal
		}
		e := s.events.Peek()
		if e == nil {
			break
		}
		// Events past the horizon stay queued; a caller can raise the horizon
		// and resume.
		if e.Timestamp() > s.Horizon {
			logrus.Infof("[tick %07d] horizon reached with %d travelers outstanding", s.Clock, s.active)
			return nil
		}
		s.events.PopNext()
		s.Clock = e.Timestamp()
		logrus.Debugf("[tick %07d] executing %s #%d", s.Clock, e.Type(), e.EventID())
		e.Execute(s)
	}
	if s.fatal != nil {
		return s.fatal
	}
	if s.active > 0 {
		return fmt.Errorf("%w: %d travelers outstanding at tick %d",
			ErrSchedulerExhausted, s.active, s.Clock)
	}
	logrus.Infof("[tick %07d] simulation complete: all travelers terminal", s.Clock)
	return nil
}

// Step executes events up to and including the given tick and returns the
// number executed. Lets an interactive caller interleave edits and
// snapshots with simulated time.
func (s *Simulator) Step(until int64) (int, error) {
	n := 0
	for {
		if s.fatal != nil {
			return n, s.fatal
		}
		e := s.events.Peek()
		if e == nil || e.Timestamp() > until || e.Timestamp() > s.Horizon {
			return n, nil
		}
		s.events.PopNext()
		s.Clock = e.Timestamp()
		e.Execute(s)
		n++
	}
}

// ApplyEdit applies one atomic network edit at the current clock: every
// per-mode index is patched, invalidated travelers have their pending motion
// cancelled synchronously, and reroutes are scheduled at the current tick.
func (s *Simulator) ApplyEdit(cs *network.ChangeSet) error {
	if err := cs.Validate(s.net); err != nil {
		return err
	}
	newNet, err := s.net.Apply(cs)
	if err != nil {
		return err
	}

	staleIdx := make(map[int]bool)
	for _, mode := range s.modesSorted() {
		invalidated, err := s.indexes[mode].ApplyEdit(cs)
		if err != nil {
			// Validation passed against the same network; an index failure
			// here means the structures diverged.
			s.fail(fmt.Errorf("index edit (mode %s): %w", mode, err))
			return s.fatal
		}
		for _, pid := range invalidated {
			if idx, ok := s.pathOwner[pid]; ok {
				staleIdx[idx] = true
				delete(s.pathOwner, pid)
			}
		}
	}
	s.net = newNet
	s.refreshControllers()

	stale := make([]int, 0, len(staleIdx))
	for idx := range staleIdx {
		stale = append(stale, idx)
	}
	sort.Ints(stale)

	for _, idx := range stale {
		tr := s.travelers[idx]
		if tr.State.Terminal() {
			continue
		}
		if tr.pendingEvent != 0 {
			s.events.Cancel(tr.pendingEvent)
			tr.pendingEvent = 0
		}
		s.Schedule(newRerouteEvent(s.Clock, idx))
	}
	logrus.Infof("[tick %07d] edit applied: %d changes, %d travelers rerouting",
		s.Clock, len(cs.Changes), len(stale))
	return nil
}

// refreshControllers repoints each controller at the post-edit intersection
// value while preserving its runtime state (phase position, occupancy).
func (s *Simulator) refreshControllers() {
	for id, c := range s.controllers {
		in := s.net.Intersection(id)
		switch ctl := c.(type) {
		case *signalControl:
			ctl.in = in
		case *stopControl:
			ctl.in = in
		case *uncontrolledControl:
			ctl.in = in
		}
	}
}

func (s *Simulator) modesSorted() []network.TravelMode {
	modes := make([]network.TravelMode, 0, len(s.indexes))
	for m := range s.indexes {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

// Traveler returns a copy of the traveler's current state for inspection.
func (s *Simulator) Traveler(id TravelerID) (Traveler, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return Traveler{}, false
	}
	return *s.travelers[idx], true
}

// Network returns the driver's current network snapshot.
func (s *Simulator) Network() *network.Network { return s.net }

// fail records the first fatal inconsistency; Run aborts before the next
// event.
func (s *Simulator) fail(err error) {
	if s.fatal == nil {
		logrus.Errorf("[tick %07d] fatal: %v", s.Clock, err)
		s.fatal = err
	}
}

func (s *Simulator) record(kind trace.RecordKind, tr *Traveler) {
	s.Trace.Append(trace.Record{
		Tick:     s.Clock,
		Traveler: string(tr.ID),
		Kind:     kind,
		Lane:     string(tr.Lane),
		Position: tr.Position,
	})
}

// canEnter reports whether a traveler of the given mode may enter the lane
// right now: the lane is open, below capacity, and the most recent entrant
// has moved at least a minimum gap from the entry point. Pedestrian flows
// couple through capacity only.
func (s *Simulator) canEnter(id network.LaneID, mode network.TravelMode) bool {
	lane := s.net.Lane(id)
	if lane == nil || lane.Closed || !lane.AllowsMode(mode) {
		return false
	}
	occ := s.laneOcc[id]
	if len(occ) >= lane.EffectiveCapacity(s.Config.Kinematics.MinGap) {
		return false
	}
	if len(occ) > 0 && mode != network.ModePedestrian {
		tail := s.travelers[occ[len(occ)-1]]
		if tail.Position < s.Config.Kinematics.MinGap {
			return false
		}
	}
	return true
}

// planAdvance derives and schedules the traveler's next motion event, or
// parks it blocked behind its leader.
func (s *Simulator) planAdvance(idx int) {
	tr := s.travelers[idx]
	lane := s.net.Lane(tr.Lane)

	var leader *LeaderState
	if tr.Mode != network.ModePedestrian {
		occ := s.laneOcc[tr.Lane]
		for i, o := range occ {
			if o == idx && i > 0 {
				leader = &LeaderState{Position: s.travelers[occ[i-1]].Position}
				break
			}
		}
	}

	adv := PlanAdvance(
		AgentState{Position: tr.Position, Speed: tr.Speed, MaxSpeed: tr.Mode.MaxSpeed()},
		LaneDynamics{Length: lane.Length, SpeedLimit: lane.SpeedLimit},
		leader,
		s.Config.Kinematics.MinGap,
		s.Config.Kinematics.Accel,
	)
	if adv.Blocked {
		tr.State = StateBlocked
		s.ensureStuckCheck(idx)
		return
	}
	tr.State = StateMoving
	tr.pendingEvent = s.Schedule(newAdvanceEvent(s.Clock+adv.ETA, idx, adv.Target, adv.ArrivalSpeed))
}

// wakeFollower re-plans the traveler immediately behind idx on the lane if
// it was parked waiting for the gap to open.
func (s *Simulator) wakeFollower(id network.LaneID, idx int) {
	occ := s.laneOcc[id]
	for i, o := range occ {
		if o == idx {
			if i+1 < len(occ) && s.travelers[occ[i+1]].State == StateBlocked {
				s.planAdvance(occ[i+1])
			}
			return
		}
	}
}

// removeFromLane drops the traveler from the lane's ordered occupancy and
// wakes whoever was following it.
func (s *Simulator) removeFromLane(id network.LaneID, idx int) {
	occ := s.laneOcc[id]
	for i, o := range occ {
		if o == idx {
			s.laneOcc[id] = append(occ[:i], occ[i+1:]...)
			if i < len(s.laneOcc[id]) {
				follower := s.laneOcc[id][i]
				if s.travelers[follower].State == StateBlocked {
					s.planAdvance(follower)
				}
			}
			return
		}
	}
}

// releaseGrant frees the intersection reservation held since the traveler
// entered its current lane.
func (s *Simulator) releaseGrant(tr *Traveler) {
	if tr.heldTurn == nil {
		return
	}
	s.controllers[tr.heldTurn.Intersection].Release(tr.ID, tr.heldTurn)
	tr.heldTurn = nil
}

// ensureStuckCheck guarantees exactly one pending stuck check for the
// traveler, anchored at its last progress tick.
func (s *Simulator) ensureStuckCheck(idx int) {
	tr := s.travelers[idx]
	if tr.stuckCheck != 0 {
		return
	}
	at := tr.lastProgress + s.Config.StuckTimeout
	if at <= s.Clock {
		at = s.Clock + 1
	}
	tr.stuckCheck = s.Schedule(newStuckCheckEvent(at, idx))
}

// arrive finalizes a traveler that reached the end of its destination lane.
func (s *Simulator) arrive(idx int) {
	tr := s.travelers[idx]
	s.releaseGrant(tr)
	s.removeFromLane(tr.Lane, idx)
	s.cancelPending(tr)

	tr.State = StateArrived
	tr.ArrivedTick = s.Clock
	s.active--

	travel := s.Clock - tr.SpawnTick
	s.Metrics.Arrived++
	s.Metrics.TotalTravelTicks += travel
	s.Metrics.TravelerTravelTicks[tr.ID] = travel
	s.record(trace.KindArrived, tr)
	logrus.Infof(">> Arrived: %s at %s after %d ticks", tr.ID, tr.Lane, travel)

	s.indexFor(tr.Mode).Release(tr.Path.ID)
	delete(s.pathOwner, tr.Path.ID)
}

// markStuck flags a traveler that made no progress for the stuck timeout.
// The traveler leaves scheduling but keeps its lane slot: downstream
// congestion stays visible until the run ends.
func (s *Simulator) markStuck(idx int) {
	tr := s.travelers[idx]
	s.releaseGrant(tr)
	s.cancelPending(tr)

	// A traveler flagged while waiting at the head of its lane may still sit
	// in the intersection's request queue; drop that entry so it cannot block
	// later arrivals.
	if tr.Lane != "" {
		if lane := s.net.Lane(tr.Lane); lane != nil {
			s.controllers[lane.To].Abandon(tr.ID)
		}
	}

	tr.State = StateStuck
	s.active--
	s.Metrics.Stuck++
	s.record(trace.KindStuck, tr)
	logrus.Warnf("!! Stuck: %s on %s at pos %.1f (no progress since tick %d)",
		tr.ID, tr.Lane, tr.Position, tr.lastProgress)

	s.indexFor(tr.Mode).Release(tr.Path.ID)
	delete(s.pathOwner, tr.Path.ID)
}

func (s *Simulator) cancelPending(tr *Traveler) {
	if tr.pendingEvent != 0 {
		s.events.Cancel(tr.pendingEvent)
		tr.pendingEvent = 0
	}
	if tr.stuckCheck != 0 {
		s.events.Cancel(tr.stuckCheck)
		tr.stuckCheck = 0
	}
}

// reroute re-queries the index for a traveler whose path was invalidated.
// A traveler with no remaining route is flagged stuck; the run continues.
func (s *Simulator) reroute(idx int) {
	tr := s.travelers[idx]

	from := tr.Lane
	if tr.State == StateQueued {
		from = tr.Path.Origin
	}
	path, err := s.indexFor(tr.Mode).Query(from, tr.Path.Dest)
	if err != nil {
		if errors.Is(err, routing.ErrNoRouteFound) {
			logrus.Warnf("reroute failed for %s: %s -> %s", tr.ID, from, tr.Path.Dest)
			s.markStuck(idx)
			return
		}
		s.fail(fmt.Errorf("reroute %s: %w", tr.ID, err))
		return
	}

	tr.Path = path
	s.pathOwner[path.ID] = idx
	s.Metrics.Reroutes++
	s.record(trace.KindRerouted, tr)
	logrus.Infof("[tick %07d] rerouted %s via %d lanes (cost %d)",
		s.Clock, tr.ID, len(path.Lanes), path.Cost)

	switch {
	case tr.State == StateQueued:
		at := tr.SpawnTick
		if at < s.Clock {
			at = s.Clock
		}
		tr.pendingEvent = s.Schedule(newSpawnEvent(at, idx))
	case tr.Position >= s.net.Lane(tr.Lane).Length-positionEps:
		if tr.Lane == tr.Path.Dest {
			s.arrive(idx)
			return
		}
		tr.pendingEvent = s.Schedule(newTurnRequestEvent(s.Clock, idx))
	default:
		if tr.pendingEvent != 0 {
			s.events.Cancel(tr.pendingEvent)
			tr.pendingEvent = 0
		}
		s.planAdvance(idx)
	}
}
