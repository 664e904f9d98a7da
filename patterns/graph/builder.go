package graph

import (
	"errors"
	"fmt"
	"sort"
)

// Builder constructs a validated Graph using a fluent API.
// Nodes and routes are added incrementally; problems are accumulated and
// reported together by Build.
//
// The builder enforces the following constraints:
//   - Node IDs must be unique, non-empty and not End
//   - Every node has at most one outgoing route
//   - Route endpoints must reference existing nodes (or End where allowed)
//   - An entry point must be set
//
// Example:
//
//	g, err := graph.NewBuilder(graph.WithMaxConcurrency(4)).
//	    AddNode("route", routeExecutor).
//	    AddNode("research", researchExecutor).
//	    AddNode("plan", planExecutor).
//	    SetEntryPoint("route").
//	    AddConditionalEdges("route", pickBranch, map[string]string{
//	        "research": "research",
//	        "skip":     "plan",
//	    }).
//	    AddEdge("research", "plan").
//	    AddEdge("plan", graph.End).
//	    Build()
type Builder struct {
	config *graphConfig

	nodes map[string]*node

	routes map[string]*route

	// routeOrder keeps validation output deterministic.
	routeOrder []string

	entryPoint string

	// buildErrors accumulates problems found while adding nodes and routes.
	buildErrors []error
}

// NewBuilder creates a Builder. Graph-level options are applied here; node
// options are passed to AddNode.
func NewBuilder(opts ...Option) *Builder {
	config := &graphConfig{
		errorStrategy: ErrorStrategyFailFast,
		maxSteps:      DefaultMaxSteps,
		reducers:      make(map[string]Reducer),
	}

	for _, opt := range opts {
		opt(config)
	}

	return &Builder{
		config: config,
		nodes:  make(map[string]*node),
		routes: make(map[string]*route),
	}
}

// AddNode registers a processing node under a unique id.
func (builder *Builder) AddNode(nodeID string, executor NodeExecutor, opts ...NodeOption) *Builder {
	if nodeID == "" {
		builder.fail(fmt.Errorf("node ID must not be empty"))
		return builder
	}

	if nodeID == End {
		builder.fail(fmt.Errorf("node ID %q is reserved", End))
		return builder
	}

	if executor == nil {
		builder.fail(fmt.Errorf("executor must not be nil for node %q", nodeID))
		return builder
	}

	if _, exists := builder.nodes[nodeID]; exists {
		builder.fail(fmt.Errorf("duplicate node ID %q", nodeID))
		return builder
	}

	graphNode := &node{
		id:       nodeID,
		executor: executor,
	}

	for _, opt := range opts {
		opt(graphNode)
	}

	builder.nodes[nodeID] = graphNode
	return builder
}

// SetEntryPoint selects the node a run starts at.
func (builder *Builder) SetEntryPoint(nodeID string) *Builder {
	builder.entryPoint = nodeID
	return builder
}

// AddEdge adds an unconditional transition. to may be End.
func (builder *Builder) AddEdge(from, to string) *Builder {
	if to == "" {
		builder.fail(fmt.Errorf("edge from %q has an empty target", from))
		return builder
	}
	return builder.addRoute(from, &route{kind: routeEdge, to: to})
}

// AddConditionalEdges routes from to candidates[condition(state)] after from
// runs. Candidate targets may be End.
func (builder *Builder) AddConditionalEdges(from string, condition RouteFunc, candidates map[string]string) *Builder {
	if condition == nil {
		builder.fail(fmt.Errorf("route function must not be nil for node %q", from))
		return builder
	}
	if len(candidates) == 0 {
		builder.fail(fmt.Errorf("conditional edges from %q need at least one candidate", from))
		return builder
	}

	copied := make(map[string]string, len(candidates))
	for key, target := range candidates {
		copied[key] = target
	}
	return builder.addRoute(from, &route{kind: routeConditional, condition: condition, candidates: copied})
}

// AddFanOut dispatches the sends returned by dispatch in parallel after from
// runs, merges their updates in send order and continues at join.
func (builder *Builder) AddFanOut(from string, dispatch FanOutFunc, join string) *Builder {
	if dispatch == nil {
		builder.fail(fmt.Errorf("fan-out function must not be nil for node %q", from))
		return builder
	}
	if join == "" || join == End {
		builder.fail(fmt.Errorf("fan-out from %q needs a join node", from))
		return builder
	}
	return builder.addRoute(from, &route{kind: routeFanOut, dispatch: dispatch, join: join})
}

func (builder *Builder) addRoute(from string, graphRoute *route) *Builder {
	if from == "" {
		builder.fail(fmt.Errorf("route source must not be empty"))
		return builder
	}
	if _, exists := builder.routes[from]; exists {
		builder.fail(fmt.Errorf("node %q already has an outgoing route", from))
		return builder
	}
	builder.routes[from] = graphRoute
	builder.routeOrder = append(builder.routeOrder, from)
	return builder
}

func (builder *Builder) fail(err error) {
	builder.buildErrors = append(builder.buildErrors, err)
}

// Build validates the graph structure and produces an executable Graph.
// Every problem found is reported, joined into a single error.
func (builder *Builder) Build() (*Graph, error) {
	problems := append([]error(nil), builder.buildErrors...)

	if len(builder.nodes) == 0 {
		problems = append(problems, fmt.Errorf("graph must contain at least one node"))
	}

	switch {
	case builder.entryPoint == "":
		problems = append(problems, fmt.Errorf("entry point is not set"))
	case builder.nodes[builder.entryPoint] == nil:
		problems = append(problems, fmt.Errorf("entry point %q does not exist", builder.entryPoint))
	}

	problems = append(problems, builder.validateRoutes()...)

	if len(problems) > 0 {
		return nil, fmt.Errorf("graph build errors: %w", errors.Join(problems...))
	}

	return &Graph{
		nodes:      builder.nodes,
		routes:     builder.routes,
		entryPoint: builder.entryPoint,
		config:     builder.config,
	}, nil
}

// validateRoutes checks that every route starts at a known node and ends at a
// known node or End.
func (builder *Builder) validateRoutes() []error {
	var problems []error

	known := func(target string, allowEnd bool) bool {
		if allowEnd && target == End {
			return true
		}
		_, exists := builder.nodes[target]
		return exists
	}

	for _, from := range builder.routeOrder {
		graphRoute := builder.routes[from]

		if _, exists := builder.nodes[from]; !exists {
			problems = append(problems, fmt.Errorf("route references non-existent source node %q", from))
		}

		switch graphRoute.kind {
		case routeEdge:
			if !known(graphRoute.to, true) {
				problems = append(problems, fmt.Errorf("edge from %q references non-existent target node %q", from, graphRoute.to))
			}
		case routeConditional:
			keys := make([]string, 0, len(graphRoute.candidates))
			for key := range graphRoute.candidates {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				if target := graphRoute.candidates[key]; !known(target, true) {
					problems = append(problems, fmt.Errorf("conditional edge %q from %q references non-existent target node %q", key, from, target))
				}
			}
		case routeFanOut:
			if !known(graphRoute.join, false) {
				problems = append(problems, fmt.Errorf("fan-out from %q references non-existent join node %q", from, graphRoute.join))
			}
		}
	}

	return problems
}
