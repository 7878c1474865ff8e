// Package sim implements a deterministic discrete-event traffic
// micro-simulation: travelers spawn onto lanes, follow paths issued by the
// routing index, negotiate intersections through controllers, and advance
// via closed-form kinematic plans scheduled on a single event heap.
//
// Determinism contract: a fixed seed, network, scenario, and edit sequence
// produces bit-for-bit identical clocks, metrics, and traces. Everything that
// could introduce run-to-run variation is pinned: event ordering (timestamp,
// type priority, schedule-order event ID), map iteration (sorted), and
// randomness (PartitionedRNG per subsystem).
package sim
