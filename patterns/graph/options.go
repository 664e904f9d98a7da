package graph

import (
	"time"

	"github.com/leofalp/draftly/providers/observability"
)

// DefaultMaxSteps bounds sequential node visits when WithMaxSteps is not used.
const DefaultMaxSteps = 25

// Option is a functional option for configuring Graph behavior.
// Options are applied by NewBuilder.
type Option func(*graphConfig)

// NodeOption is a functional option for configuring individual node behavior.
// Node options are applied via Builder.AddNode.
type NodeOption func(*node)

// --- Graph Options ---

// WithMaxConcurrency limits the number of fan-out sends running at once.
// A value of 0 (default) means every send starts immediately.
//
// Example:
//
//	graph.NewBuilder(
//	    graph.WithMaxConcurrency(5), // at most 5 workers in flight
//	)
func WithMaxConcurrency(maxConcurrency int) Option {
	return func(config *graphConfig) {
		config.maxConcurrency = maxConcurrency
	}
}

// WithExecutionTimeout sets the maximum duration for a whole run. When it
// expires every running node sees a cancelled context. A value of 0 (default)
// means no timeout.
func WithExecutionTimeout(timeout time.Duration) Option {
	return func(config *graphConfig) {
		config.executionTimeout = timeout
	}
}

// WithErrorStrategy sets how fan-outs handle failing sends.
// The default is ErrorStrategyFailFast.
func WithErrorStrategy(strategy ErrorStrategy) Option {
	return func(config *graphConfig) {
		config.errorStrategy = strategy
	}
}

// WithMaxSteps caps sequential node visits per run. Non-positive values keep
// DefaultMaxSteps.
func WithMaxSteps(steps int) Option {
	return func(config *graphConfig) {
		if steps > 0 {
			config.maxSteps = steps
		}
	}
}

// WithObserver enables spans, metrics and logs for every run. Without it the
// observer carried by the Execute context is used, if any.
func WithObserver(observer observability.Provider) Option {
	return func(config *graphConfig) {
		config.observer = observer
	}
}

// WithEventHandler receives progress events. The handler is called
// synchronously and concurrently during fan-out, so it must be safe for
// concurrent use and should return quickly.
func WithEventHandler(handler EventHandler) Option {
	return func(config *graphConfig) {
		config.eventHandler = handler
	}
}

// WithReducer registers how updates to field are merged.
//
// Example:
//
//	graph.NewBuilder(
//	    graph.WithReducer("sections", graph.AppendReducer[Section]()),
//	)
func WithReducer(field string, reducer Reducer) Option {
	return func(config *graphConfig) {
		if config.reducers == nil {
			config.reducers = make(map[string]Reducer)
		}
		config.reducers[field] = reducer
	}
}

// --- Node Options ---

// WithNodeTimeout sets the maximum duration of each invocation of the node.
// The run-level timeout still applies.
func WithNodeTimeout(timeout time.Duration) NodeOption {
	return func(nodeConfig *node) {
		nodeConfig.timeout = timeout
	}
}
