package graph

import (
	"context"
	"time"

	"github.com/leofalp/draftly/providers/observability"
)

// Semantic conventions for graph observability attributes.
const (
	// spanGraphExecute is the span name for the entire graph execution.
	spanGraphExecute = "graph.execute"

	// spanGraphNodeExecute is the span name for individual node execution.
	spanGraphNodeExecute = "graph.node.execute"

	attrGraphNodeID        = "graph.node.id"
	attrGraphNodeStatus    = "graph.node.status"
	attrGraphSendIndex     = "graph.send.index"
	attrGraphTotalNodes    = "graph.total_nodes"
	attrGraphEntryPoint    = "graph.entry_point"
	attrGraphErrorStrategy = "graph.error_strategy"
	attrGraphSteps         = "graph.steps"
	attrGraphRouteKey      = "graph.route.key"
	attrGraphRouteTarget   = "graph.route.target"
	attrGraphFanOutSends   = "graph.fanout.sends"
	attrGraphFanOutFailed  = "graph.fanout.failed"

	// metricGraphNodeDuration is the histogram for individual node execution duration.
	metricGraphNodeDuration = "draftly.graph.node.duration"

	// metricGraphNodeCount is the counter for node executions by status.
	metricGraphNodeCount = "draftly.graph.node.count"

	// metricGraphExecutionDuration is the histogram for total graph execution duration.
	metricGraphExecutionDuration = "draftly.graph.execution.duration"
)

// runObserver holds the observability provider and root span of one run.
// A nil provider disables every hook.
type runObserver struct {
	provider observability.Provider
	rootSpan observability.Span
}

// observeRunStart resolves the observer (graph option first, then context),
// opens the root span and attaches it to ctx.
func (graph *Graph) observeRunStart(ctx *context.Context) *runObserver {
	observer := &runObserver{provider: graph.config.observer}
	if observer.provider == nil {
		observer.provider = observability.ObserverFromContext(*ctx)
	}
	if observer.provider == nil {
		return observer
	}

	*ctx, observer.rootSpan = observer.provider.StartSpan(*ctx, spanGraphExecute,
		observability.Int(attrGraphTotalNodes, len(graph.nodes)),
		observability.String(attrGraphEntryPoint, graph.entryPoint),
		observability.String(attrGraphErrorStrategy, string(graph.config.errorStrategy)),
	)

	*ctx = observability.ContextWithSpan(*ctx, observer.rootSpan)
	*ctx = observability.ContextWithObserver(*ctx, observer.provider)

	observer.provider.Info(*ctx, "graph execution started",
		observability.Int(attrGraphTotalNodes, len(graph.nodes)),
		observability.String(attrGraphEntryPoint, graph.entryPoint),
	)
	return observer
}

func (observer *runObserver) runCompleted(ctx context.Context, totalDuration time.Duration, steps int) {
	if observer.provider == nil {
		return
	}

	observer.provider.Histogram(metricGraphExecutionDuration).Record(ctx, totalDuration.Seconds())
	observer.provider.Info(ctx, "graph execution completed",
		observability.Int(attrGraphSteps, steps),
		observability.Duration(observability.AttrDuration, totalDuration),
	)

	if observer.rootSpan != nil {
		observer.rootSpan.SetAttributes(observability.Int(attrGraphSteps, steps))
		observer.rootSpan.SetStatus(observability.StatusOK, "graph execution completed")
		observer.rootSpan.End()
	}
}

func (observer *runObserver) runFailed(ctx context.Context, executionError error, totalDuration time.Duration) {
	if observer.provider == nil {
		return
	}

	observer.provider.Histogram(metricGraphExecutionDuration).Record(ctx, totalDuration.Seconds())
	observer.provider.Error(ctx, "graph execution failed",
		observability.Error(executionError),
		observability.Duration(observability.AttrDuration, totalDuration),
	)

	if observer.rootSpan != nil {
		observer.rootSpan.RecordError(executionError)
		observer.rootSpan.SetStatus(observability.StatusError, "graph execution failed")
		observer.rootSpan.End()
	}
}

// nodeStarted opens a child span for a node invocation and attaches it to ctx.
func (observer *runObserver) nodeStarted(ctx *context.Context, nodeID string, sendIndex int) {
	if observer.provider == nil {
		return
	}

	var nodeSpan observability.Span
	*ctx, nodeSpan = observer.provider.StartSpan(*ctx, spanGraphNodeExecute,
		observability.String(attrGraphNodeID, nodeID),
		observability.Int(attrGraphSendIndex, sendIndex),
	)
	*ctx = observability.ContextWithSpan(*ctx, nodeSpan)

	observer.provider.Debug(*ctx, "node execution started",
		observability.String(attrGraphNodeID, nodeID),
		observability.Int(attrGraphSendIndex, sendIndex),
	)
}

func (observer *runObserver) nodeCompleted(ctx context.Context, nodeID string, duration time.Duration) {
	observer.nodeFinished(ctx, nodeID, NodeCompleted, nil, duration)
}

func (observer *runObserver) nodeFailed(ctx context.Context, nodeID string, nodeError error, duration time.Duration) {
	observer.nodeFinished(ctx, nodeID, NodeFailed, nodeError, duration)
}

func (observer *runObserver) nodeFinished(ctx context.Context, nodeID string, status NodeStatus, nodeError error, duration time.Duration) {
	if observer.provider == nil {
		return
	}

	observer.provider.Histogram(metricGraphNodeDuration).Record(ctx, duration.Seconds(),
		observability.String(attrGraphNodeID, nodeID),
	)
	observer.provider.Counter(metricGraphNodeCount).Add(ctx, 1,
		observability.String(attrGraphNodeStatus, string(status)),
		observability.String(attrGraphNodeID, nodeID),
	)

	nodeSpan := observability.SpanFromContext(ctx)

	if nodeError != nil {
		observer.provider.Error(ctx, "node execution failed",
			observability.String(attrGraphNodeID, nodeID),
			observability.Error(nodeError),
			observability.Duration(observability.AttrDuration, duration),
		)
		if nodeSpan != nil {
			nodeSpan.RecordError(nodeError)
			nodeSpan.SetStatus(observability.StatusError, "node failed")
		}
	} else {
		observer.provider.Info(ctx, "node execution completed",
			observability.String(attrGraphNodeID, nodeID),
			observability.Duration(observability.AttrDuration, duration),
		)
		if nodeSpan != nil {
			nodeSpan.SetStatus(observability.StatusOK, "node completed")
		}
	}

	if nodeSpan != nil {
		nodeSpan.SetAttributes(
			observability.String(attrGraphNodeStatus, string(status)),
			observability.Duration(observability.AttrDuration, duration),
		)
		nodeSpan.End()
	}
}

func (observer *runObserver) routeSelected(ctx context.Context, from, key, target string) {
	if observer.provider == nil {
		return
	}
	observer.provider.Info(ctx, "route selected",
		observability.String(attrGraphNodeID, from),
		observability.String(attrGraphRouteKey, key),
		observability.String(attrGraphRouteTarget, target),
	)
}

func (observer *runObserver) fanOutStarted(ctx context.Context, from string, sends int) {
	if observer.provider == nil {
		return
	}
	observer.provider.Info(ctx, "fan-out started",
		observability.String(attrGraphNodeID, from),
		observability.Int(attrGraphFanOutSends, sends),
	)
}

func (observer *runObserver) fanOutCompleted(ctx context.Context, from string, sends, failed int, duration time.Duration) {
	if observer.provider == nil {
		return
	}
	observer.provider.Info(ctx, "fan-out completed",
		observability.String(attrGraphNodeID, from),
		observability.Int(attrGraphFanOutSends, sends),
		observability.Int(attrGraphFanOutFailed, failed),
		observability.Duration(observability.AttrDuration, duration),
	)
}
