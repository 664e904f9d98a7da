// Package graph provides a small state-graph executor for multi-stage LLM
// workflows.
//
// A graph is a set of nodes connected by routes. Each node reads a snapshot
// of the shared [State] and returns an [Update]; updates are folded into the
// state field by field with a [Reducer] (replace unless configured
// otherwise). Every node has at most one outgoing route:
//
//   - [Builder.AddEdge] always moves to the same node (or [End])
//   - [Builder.AddConditionalEdges] picks the next node from a candidate map
//   - [Builder.AddFanOut] dispatches a dynamic list of [Send] values in
//     parallel and continues at a join node once all of them returned
//
// Fan-out sends all see the same snapshot. Their updates are merged in send
// order after the barrier, so the final state does not depend on completion
// order. Use [AppendReducer] for fields that several sends contribute to.
//
// Example:
//
//	sections := graph.NewKey[[]Section]("sections")
//
//	g, err := graph.NewBuilder(
//	    graph.WithMaxConcurrency(5),
//	    graph.WithReducer(sections.Name(), graph.AppendReducer[Section]()),
//	).
//	    AddNode("plan", planner).
//	    AddNode("write", writer).
//	    AddNode("merge", merger).
//	    SetEntryPoint("plan").
//	    AddFanOut("plan", dispatchSections, "merge").
//	    AddEdge("merge", graph.End).
//	    Build()
//	if err != nil {
//	    return err
//	}
//
//	result, err := g.Execute(ctx, graph.State{"topic": "Go generics"})
//
// Observability is opt-in through [WithObserver] or an observer carried by the
// context. Progress events are delivered to the handler set with
// [WithEventHandler].
package graph
