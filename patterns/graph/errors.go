package graph

import "errors"

var (
	// ErrUnmappedRoute is returned when a conditional route picks a key that
	// is not in its candidate map. It signals a wiring mistake, not a
	// transient failure.
	ErrUnmappedRoute = errors.New("graph: route selected an unmapped target")

	// ErrUnknownNode is returned when a fan-out dispatches to a node that was
	// never added.
	ErrUnknownNode = errors.New("graph: unknown node")

	// ErrMaxStepsExceeded is returned when a run visits more nodes than the
	// configured step budget, which usually means a routing cycle.
	ErrMaxStepsExceeded = errors.New("graph: maximum steps exceeded")
)
