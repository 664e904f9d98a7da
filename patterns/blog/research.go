package blog

import (
	"context"
	"fmt"

	"github.com/leofalp/draftly/patterns/graph"
	"github.com/leofalp/draftly/providers/cache"
	"github.com/leofalp/draftly/providers/observability"
	"github.com/leofalp/draftly/providers/search"
)

// ResearchCacheKeyPrefix prefixes the query to form the evidence cache key.
const ResearchCacheKeyPrefix = "tavily_"

// ResearchCacheKey returns the cache key of query. Queries are not
// normalized, so keys differing in case or spacing stay distinct.
func ResearchCacheKey(query string) string {
	return ResearchCacheKeyPrefix + query
}

// research gathers evidence for the router's queries. It never fails the
// run: without a search provider, or on the first failing query, it yields
// empty evidence.
func (wf *Workflow) research(ctx context.Context, input *graph.NodeInput) (graph.Update, error) {
	state := input.State
	update := graph.Update{}
	EvidenceKey.Set(update, []search.Evidence{})

	if wf.search == nil {
		wf.logWarn(ctx, "search provider not configured, skipping research", stageAttrs(state, NodeResearch)...)
		return update, nil
	}

	queries := QueriesKey.Value(state)
	queries = queries[:min(len(queries), wf.options.MaxResearchQueries)]

	evidence := make([]search.Evidence, 0, len(queries)*wf.options.ResultsPerQuery)
	for _, query := range queries {
		found, err := wf.lookup(ctx, state, query)
		if err != nil {
			wf.logWarn(ctx, "research failed, continuing without evidence", stageAttrs(state, NodeResearch,
				observability.String(observability.AttrSearchQuery, query),
				observability.Error(err),
			)...)
			return update, nil
		}
		evidence = append(evidence, found...)
	}

	wf.logInfo(ctx, "research completed", stageAttrs(state, NodeResearch,
		observability.Int("queries", len(queries)),
		observability.Int("evidence", len(evidence)),
	)...)

	EvidenceKey.Set(update, evidence)
	return update, nil
}

// lookup serves query from the cache or, on a miss, from the search
// provider, storing the normalized hits. Cache failures only cost a
// duplicate search.
func (wf *Workflow) lookup(ctx context.Context, state graph.State, query string) ([]search.Evidence, error) {
	key := ResearchCacheKey(query)

	cached, hit, err := cache.GetJSON[[]search.Evidence](ctx, wf.cache, key)
	if err != nil {
		wf.logWarn(ctx, "evidence cache read failed", stageAttrs(state, NodeResearch,
			observability.String(observability.AttrSearchQuery, query),
			observability.Error(err),
		)...)
	}
	if wf.observer != nil {
		wf.observer.Counter(observability.MetricCacheLookups).Add(ctx, 1, observability.Bool(observability.AttrCacheHit, hit))
	}
	if hit {
		wf.logDebug(ctx, "evidence cache hit", stageAttrs(state, NodeResearch,
			observability.String(observability.AttrSearchQuery, query),
		)...)
		return cached, nil
	}

	results, err := wf.search.Search(ctx, search.Request{Query: query, MaxResults: wf.options.ResultsPerQuery})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	normalized := search.Normalize(results, search.DefaultSnippetLength)

	if err := cache.SetJSON(ctx, wf.cache, key, normalized); err != nil {
		wf.logWarn(ctx, "evidence cache write failed", stageAttrs(state, NodeResearch,
			observability.String(observability.AttrSearchQuery, query),
			observability.Error(err),
		)...)
	}
	return normalized, nil
}
