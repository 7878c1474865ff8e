package sim

import "errors"

// Error taxonomy for the simulation core. Recoverable conditions
// (ErrNoRouteFound lives in sim/routing, rejected edits wrap
// network.ErrInvalidEdit) are reported and the run continues; consistency
// violations are fatal and abort the run with full context.
var (
	// ErrInvalidTurn marks a turn request the network model does not permit.
	// It indicates a path index defect and is a fatal consistency violation.
	ErrInvalidTurn = errors.New("invalid turn request")

	// ErrSchedulerExhausted is returned when the event queue drains while
	// travelers remain un-arrived. With a healthy model it can only happen
	// when every traveler has reached a terminal state.
	ErrSchedulerExhausted = errors.New("scheduler exhausted with travelers outstanding")
)
