package graph

import (
	"context"
	"time"

	"github.com/leofalp/draftly/core/overview"
	"github.com/leofalp/draftly/providers/observability"
)

// End is the pseudo-node that terminates a run when used as a route target.
const End = "__end__"

// NodeStatus represents the lifecycle status of a node invocation.
type NodeStatus string

const (
	// NodeCompleted indicates the node returned without error.
	NodeCompleted NodeStatus = "completed"

	// NodeFailed indicates the node returned an error.
	NodeFailed NodeStatus = "failed"
)

// ErrorStrategy defines how a fan-out reacts when one of its sends fails.
type ErrorStrategy string

const (
	// ErrorStrategyFailFast cancels sibling sends and aborts the run on the
	// first failure. This is the default strategy.
	ErrorStrategyFailFast ErrorStrategy = "fail_fast"

	// ErrorStrategyContinueOnError lets the remaining sends finish. Failed
	// sends contribute nothing to the merged state.
	ErrorStrategyContinueOnError ErrorStrategy = "continue_on_error"
)

// NodeInput contains everything available to a node invocation.
type NodeInput struct {
	// State is a private snapshot of the run state taken before the node started.
	State State

	// Payload carries the per-send value when the node was reached through a
	// fan-out. It is nil otherwise.
	Payload any

	// NodeID is the id the node was registered under.
	NodeID string

	// SendIndex is the position of the send in its fan-out, or -1.
	SendIndex int
}

// NodeExecutor is the interface every graph node implements. It returns the
// fields it wants to change; a nil Update changes nothing.
type NodeExecutor interface {
	Execute(ctx context.Context, input *NodeInput) (Update, error)
}

// NodeExecutorFunc is an adapter that allows using an ordinary function as a
// NodeExecutor.
type NodeExecutorFunc func(ctx context.Context, input *NodeInput) (Update, error)

// Execute calls the underlying function, satisfying the NodeExecutor interface.
func (executorFunc NodeExecutorFunc) Execute(ctx context.Context, input *NodeInput) (Update, error) {
	return executorFunc(ctx, input)
}

// RouteFunc inspects the state after a node ran and returns a key of the
// candidate map registered with AddConditionalEdges.
type RouteFunc func(state State) string

// Send is one dynamically dispatched invocation of Node with Payload.
type Send struct {
	Node    string
	Payload any
}

// FanOutFunc expands the state into independent sends. Returning no sends
// moves straight to the join node.
type FanOutFunc func(state State) []Send

type routeKind int

const (
	routeEdge routeKind = iota + 1
	routeConditional
	routeFanOut
)

// route is the single outgoing transition of a node.
type route struct {
	kind       routeKind
	to         string
	condition  RouteFunc
	candidates map[string]string
	dispatch   FanOutFunc
	join       string
}

// node represents a single processing step in the graph.
type node struct {
	id       string
	executor NodeExecutor
	timeout  time.Duration
}

// graphConfig holds the configuration for a Graph, populated by Options.
type graphConfig struct {
	// maxConcurrency bounds in-flight sends of a fan-out. Zero means unlimited.
	maxConcurrency int

	// executionTimeout bounds a whole run. Zero means no deadline.
	executionTimeout time.Duration

	errorStrategy ErrorStrategy

	// maxSteps bounds sequential node visits per run.
	maxSteps int

	observer     observability.Provider
	eventHandler EventHandler
	reducers     map[string]Reducer
}

// Graph is a validated, executable state graph. It holds no per-run state and
// is safe for concurrent Execute calls.
type Graph struct {
	nodes      map[string]*node
	routes     map[string]*route
	entryPoint string
	config     *graphConfig
}

// Result describes a finished run.
type Result struct {
	// State is the final state after the last update was merged.
	State State

	// Path lists node ids in the order their updates were merged. Fan-out
	// sends appear in send order.
	Path []string

	// Steps is the number of sequential node visits.
	Steps int

	Duration time.Duration

	// Overview holds the completion usage recorded while the run executed.
	Overview *overview.Overview
}
