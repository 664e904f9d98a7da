package blog

import (
	"context"
	"fmt"
	"strings"

	"github.com/leofalp/draftly/core/client"
	"github.com/leofalp/draftly/patterns/graph"
	"github.com/leofalp/draftly/providers/ai"
	"github.com/leofalp/draftly/providers/observability"
)

// route classifies the topic. A research request from the caller forces
// needs_research but keeps the classifier's mode and queries.
func (wf *Workflow) route(ctx context.Context, input *graph.NodeInput) (graph.Update, error) {
	state := input.State
	requested := ResearchRequestedKey.Value(state)

	decision, err := client.CompleteStructured[RouterDecision](ctx, wf.client, client.CompletionRequest{
		Model: wf.options.Models.Router,
		Messages: []ai.Message{
			ai.SystemMessage(systemPrompt),
			ai.UserMessage(routerContext(TopicKey.Value(state), PlatformKey.Value(state), requested, wf.now())),
		},
		Temperature: wf.options.Temperature,
		MaxTokens:   wf.options.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	mode := strings.TrimSpace(decision.Mode)
	if mode == "" {
		mode = ModeClosedBook
		if requested {
			mode = ModeResearch
		}
	}
	needsResearch := decision.NeedsResearch || requested
	queries := limitQueries(decision.Queries, wf.options.MaxResearchQueries)

	wf.logInfo(ctx, "route decided", stageAttrs(state, NodeRouter,
		observability.String("mode", mode),
		observability.Bool("needs_research", needsResearch),
		observability.Int("queries", len(queries)),
	)...)

	update := graph.Update{}
	NeedsResearchKey.Set(update, needsResearch)
	ModeKey.Set(update, mode)
	QueriesKey.Set(update, queries)
	return update, nil
}

// nextAfterRouter picks Research or Planner.
func nextAfterRouter(state graph.State) string {
	if NeedsResearchKey.Value(state) {
		return NodeResearch
	}
	return NodePlanner
}

// limitQueries drops blank queries and keeps at most limit of the rest.
// Queries are otherwise kept verbatim: they double as cache keys.
func limitQueries(queries []string, limit int) []string {
	kept := make([]string, 0, min(len(queries), limit))
	for _, query := range queries {
		if len(kept) == limit {
			break
		}
		if strings.TrimSpace(query) == "" {
			continue
		}
		kept = append(kept, query)
	}
	return kept
}
