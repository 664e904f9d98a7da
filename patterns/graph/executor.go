package graph

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leofalp/draftly/core/overview"
)

// Execute runs the graph from its entry point until a node without a route,
// or a route to End, has run.
//
// The execution proceeds as follows:
//  1. Clone initial into the run state and attach an Overview to ctx
//  2. Run the current node on a snapshot and fold its Update into the state
//  3. Follow the node's route: an edge, a conditional pick, or a fan-out whose
//     sends run in parallel and are merged in send order before the join node
//  4. Stop at End, on the first fatal error, or when the step budget is spent
//
// Execute keeps all run data on the stack, so a Graph can serve concurrent runs.
func (graph *Graph) Execute(ctx context.Context, initial State) (*Result, error) {
	executionStart := time.Now()

	runOverview := overview.OverviewFromContext(&ctx)
	observer := graph.observeRunStart(&ctx)

	if graph.config.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, graph.config.executionTimeout)
		defer cancel()
	}

	run := &execution{
		graph:    graph,
		observer: observer,
		state:    initial.Clone(),
		path:     make([]string, 0, len(graph.nodes)),
	}

	executionError := run.loop(ctx)
	totalDuration := time.Since(executionStart)

	if executionError != nil {
		observer.runFailed(ctx, executionError, totalDuration)
		return nil, fmt.Errorf("graph execution failed: %w", executionError)
	}

	observer.runCompleted(ctx, totalDuration, run.steps)

	return &Result{
		State:    run.state,
		Path:     run.path,
		Steps:    run.steps,
		Duration: totalDuration,
		Overview: runOverview,
	}, nil
}

// execution is the mutable bookkeeping of a single run.
type execution struct {
	graph    *Graph
	observer *runObserver
	state    State
	path     []string
	steps    int
}

func (run *execution) loop(ctx context.Context) error {
	config := run.graph.config
	current := run.graph.entryPoint

	for current != End {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context done before node %q: %w", current, err)
		}
		if run.steps >= config.maxSteps {
			return fmt.Errorf("%w: limit %d reached before node %q", ErrMaxStepsExceeded, config.maxSteps, current)
		}
		run.steps++

		graphNode, exists := run.graph.nodes[current]
		if !exists {
			return fmt.Errorf("%w: %q", ErrUnknownNode, current)
		}

		update, err := run.invoke(ctx, graphNode, nil, -1, run.state)
		if err != nil {
			return fmt.Errorf("node %q: %w", current, err)
		}
		if err := run.merge(current, update); err != nil {
			return err
		}

		next, err := run.advance(ctx, current)
		if err != nil {
			return err
		}
		current = next
	}

	return nil
}

// advance follows the route of the node that just ran and returns the next node.
func (run *execution) advance(ctx context.Context, from string) (string, error) {
	graphRoute, exists := run.graph.routes[from]
	if !exists {
		return End, nil
	}

	switch graphRoute.kind {
	case routeEdge:
		return graphRoute.to, nil

	case routeConditional:
		key := graphRoute.condition(run.state.Clone())
		target, mapped := graphRoute.candidates[key]
		if !mapped {
			return "", fmt.Errorf("%w: node %q selected %q", ErrUnmappedRoute, from, key)
		}
		run.observer.routeSelected(ctx, from, key, target)
		run.graph.config.emit(Event{Type: EventRouteSelected, NodeID: from, SendIndex: -1, Route: key, Target: target})
		return target, nil

	case routeFanOut:
		if err := run.fanOut(ctx, from, graphRoute); err != nil {
			return "", err
		}
		return graphRoute.join, nil
	}

	return "", fmt.Errorf("node %q has an invalid route", from)
}

// fanOut runs every send against the same snapshot. Updates land in slots
// indexed by send order and are merged only after all sends returned.
func (run *execution) fanOut(ctx context.Context, from string, graphRoute *route) error {
	config := run.graph.config
	snapshot := run.state
	sends := graphRoute.dispatch(snapshot.Clone())

	for index, send := range sends {
		if _, exists := run.graph.nodes[send.Node]; !exists {
			return fmt.Errorf("%w: fan-out from %q send %d targets %q", ErrUnknownNode, from, index, send.Node)
		}
	}

	fanOutStart := time.Now()
	run.observer.fanOutStarted(ctx, from, len(sends))
	config.emit(Event{Type: EventFanOutStarted, NodeID: from, SendIndex: -1, Sends: len(sends)})

	updates := make([]Update, len(sends))
	succeeded := make([]bool, len(sends))
	var failed atomic.Int32

	group, groupContext := errgroup.WithContext(ctx)
	if config.maxConcurrency > 0 {
		group.SetLimit(config.maxConcurrency)
	}

	for index, send := range sends {
		group.Go(func() error {
			if err := groupContext.Err(); err != nil {
				return err
			}

			update, err := run.invoke(groupContext, run.graph.nodes[send.Node], send.Payload, index, snapshot)
			if err != nil {
				if config.errorStrategy == ErrorStrategyContinueOnError {
					failed.Add(1)
					config.emit(Event{Type: EventFanOutSendFailed, NodeID: send.Node, SendIndex: index, Err: err})
					return nil
				}
				return fmt.Errorf("fan-out from %q: send %d to %q: %w", from, index, send.Node, err)
			}

			updates[index] = update
			succeeded[index] = true
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("fan-out from %q: %w", from, err)
	}

	for index, send := range sends {
		if !succeeded[index] {
			continue
		}
		if err := run.merge(send.Node, updates[index]); err != nil {
			return err
		}
	}

	fanOutDuration := time.Since(fanOutStart)
	run.observer.fanOutCompleted(ctx, from, len(sends), int(failed.Load()), fanOutDuration)
	config.emit(Event{
		Type:      EventFanOutCompleted,
		NodeID:    from,
		SendIndex: -1,
		Sends:     len(sends),
		Failed:    int(failed.Load()),
		Duration:  fanOutDuration,
	})

	return nil
}

// invoke runs one node on a private copy of snapshot with span, timeout and events.
func (run *execution) invoke(ctx context.Context, graphNode *node, payload any, sendIndex int, snapshot State) (Update, error) {
	config := run.graph.config

	nodeContext := ctx
	run.observer.nodeStarted(&nodeContext, graphNode.id, sendIndex)
	config.emit(Event{Type: EventNodeStarted, NodeID: graphNode.id, SendIndex: sendIndex})

	if graphNode.timeout > 0 {
		var cancel context.CancelFunc
		nodeContext, cancel = context.WithTimeout(nodeContext, graphNode.timeout)
		defer cancel()
	}

	input := &NodeInput{
		State:     snapshot.Clone(),
		Payload:   payload,
		NodeID:    graphNode.id,
		SendIndex: sendIndex,
	}

	nodeStart := time.Now()
	update, err := graphNode.executor.Execute(nodeContext, input)
	nodeDuration := time.Since(nodeStart)

	if err != nil {
		run.observer.nodeFailed(nodeContext, graphNode.id, err, nodeDuration)
		config.emit(Event{Type: EventNodeFailed, NodeID: graphNode.id, SendIndex: sendIndex, Err: err, Duration: nodeDuration})
		return nil, err
	}

	run.observer.nodeCompleted(nodeContext, graphNode.id, nodeDuration)
	config.emit(Event{Type: EventNodeCompleted, NodeID: graphNode.id, SendIndex: sendIndex, Duration: nodeDuration})
	return update, nil
}

func (run *execution) merge(nodeID string, update Update) error {
	next, err := applyUpdate(run.state, update, run.graph.config.reducers)
	if err != nil {
		return fmt.Errorf("merge update from node %q: %w", nodeID, err)
	}
	run.state = next
	run.path = append(run.path, nodeID)
	return nil
}
