// Package blog wires the long-form writing workflow on top of the graph
// executor.
//
// A run flows Router → (Research) → Planner → N × Worker → Merger:
//
//	wf, err := blog.New(blog.Dependencies{Client: c, Search: tavilyProvider, Cache: store}, blog.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	result, err := wf.Run(ctx, blog.Request{Topic: "Intermittent Fasting", Platform: "linkedin"})
//
// Router classifies the topic and proposes search queries. Research is
// best-effort: a missing search provider or any search failure degrades to
// empty evidence. Planner produces an outline whose sections are drafted in
// parallel by Workers; Merger restores section order by id, so completion
// order never affects the document.
package blog
