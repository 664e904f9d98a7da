package blog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/draftly/core/client"
	"github.com/leofalp/draftly/core/client/middleware"
	"github.com/leofalp/draftly/core/cost"
	"github.com/leofalp/draftly/core/parse"
	"github.com/leofalp/draftly/patterns/graph"
	"github.com/leofalp/draftly/providers/ai"
	"github.com/leofalp/draftly/providers/cache/memcache"
	"github.com/leofalp/draftly/providers/search"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// scriptedProvider answers by stage: the router and planner get fixed JSON,
// workers get the writer func's output for their section title.
type scriptedProvider struct {
	mu       sync.Mutex
	router   string
	planner  string
	writer   func(title string, attempt int) (string, error)
	finish   map[string]string
	attempts map[string]int
	requests map[string][]ai.ChatRequest
}

func newScriptedProvider(router, planner string) *scriptedProvider {
	return &scriptedProvider{
		router:   router,
		planner:  planner,
		attempts: map[string]int{},
		requests: map[string][]ai.ChatRequest{},
	}
}

func (p *scriptedProvider) SendMessage(_ context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	stage, title := classify(request)

	p.mu.Lock()
	p.requests[stage] = append(p.requests[stage], request)
	p.attempts[title]++
	attempt := p.attempts[title]
	p.mu.Unlock()

	var (
		content string
		err     error
	)
	switch stage {
	case NodeRouter:
		content = p.router
	case NodePlanner:
		content = p.planner
	default:
		if p.writer != nil {
			content, err = p.writer(title, attempt)
		} else {
			content = fmt.Sprintf("## %s\n\nBody of %s.", title, strings.ToLower(title))
		}
	}
	if err != nil {
		return nil, err
	}
	finishReason := "stop"
	if reason, ok := p.finish[stage]; ok {
		finishReason = reason
	}
	return &ai.ChatResponse{
		Content:      content,
		FinishReason: finishReason,
		Usage:        &ai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (p *scriptedProvider) WithAPIKey(string) ai.Provider           { return p }
func (p *scriptedProvider) WithBaseURL(string) ai.Provider          { return p }
func (p *scriptedProvider) WithHttpClient(*http.Client) ai.Provider { return p }

func (p *scriptedProvider) stageRequests(stage string) []ai.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ai.ChatRequest(nil), p.requests[stage]...)
}

func (p *scriptedProvider) attemptsFor(title string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts[title]
}

// classify returns the stage of a request and, for workers, the section title.
func classify(request ai.ChatRequest) (string, string) {
	user := request.Messages[len(request.Messages)-1].Content
	switch {
	case strings.Contains(user, "Decide whether the topic needs web research"):
		return NodeRouter, NodeRouter
	case strings.Contains(user, "Create the outline"):
		return NodePlanner, NodePlanner
	}
	for _, line := range strings.Split(user, "\n") {
		if title, ok := strings.CutPrefix(line, "Section: "); ok {
			return NodeWorker, title
		}
	}
	return NodeWorker, ""
}

type fakeSearch struct {
	mu      sync.Mutex
	queries []string
	err     error
}

func (s *fakeSearch) Search(_ context.Context, req search.Request) ([]search.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, req.Query)
	if s.err != nil {
		return nil, s.err
	}
	return []search.Result{
		{Title: "Result for " + req.Query, URL: "https://example.com/first", Content: "Findings about " + req.Query},
		{Title: "Second result", URL: "https://example.org/second", Content: strings.Repeat("x", 400)},
	}, nil
}

func (s *fakeSearch) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func routerJSON(needsResearch bool, mode string, queries ...string) string {
	raw, _ := json.Marshal(RouterDecision{NeedsResearch: needsResearch, Mode: mode, Queries: append([]string{}, queries...)})
	return string(raw)
}

func planJSON(title string, ids ...int) string {
	plan := Plan{BlogTitle: title, Sections: []SectionSpec{}}
	for _, id := range ids {
		plan.Sections = append(plan.Sections, SectionSpec{
			ID:          id,
			Title:       fmt.Sprintf("Section %d", id),
			Goal:        fmt.Sprintf("Explain part %d", id),
			Bullets:     []string{"first point", "second point", "third point"},
			TargetWords: 200,
		})
	}
	raw, _ := json.Marshal(plan)
	return string(raw)
}

func newTestWorkflow(t *testing.T, provider ai.Provider, deps Dependencies, options Options, middlewares ...client.MiddlewareConfig) (*Workflow, *client.Client) {
	t.Helper()

	completionClient, err := client.New(provider, client.WithMiddleware(middlewares...))
	require.NoError(t, err)

	deps.Client = completionClient
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return testNow }
	}

	wf, err := New(deps, options)
	require.NoError(t, err)
	return wf, completionClient
}

func TestRun_ClosedBookSkipsResearch(t *testing.T) {
	provider := newScriptedProvider(routerJSON(false, ModeClosedBook), planJSON("Fasting, Explained", 1, 2, 3, 4, 5))
	searcher := &fakeSearch{}
	wf, _ := newTestWorkflow(t, provider, Dependencies{Search: searcher}, Options{})

	result, err := wf.Run(context.Background(), Request{Topic: "Intermittent Fasting", Platform: "linkedin"})
	require.NoError(t, err)

	assert.Zero(t, searcher.calls())
	assert.False(t, result.Metadata.ResearchUsed)
	assert.Equal(t, ModeClosedBook, result.Metadata.Mode)
	assert.Equal(t, "linkedin", result.Metadata.Platform)
	assert.Equal(t, 5, result.Metadata.Sections)
	assert.Zero(t, result.Metadata.EvidenceCount)

	planner := provider.stageRequests(NodePlanner)
	require.Len(t, planner, 1)
	user := planner[0].Messages[len(planner[0].Messages)-1].Content
	assert.True(t, strings.HasSuffix(user, "Evidence:\n"), "planner should get an empty evidence context")
	assert.Contains(t, user, "Tone: professional")
	assert.Contains(t, user, "Word Target: 800-1500 words")
}

func TestRun_SectionsOrderedByID(t *testing.T) {
	provider := newScriptedProvider(routerJSON(false, ModeClosedBook), planJSON("Ordered", 4, 2, 7, 1, 3, 6, 5))
	provider.writer = func(title string, _ int) (string, error) {
		var id int
		_, _ = fmt.Sscanf(title, "Section %d", &id)
		// Higher ids finish first.
		time.Sleep(time.Duration(10-id) * 5 * time.Millisecond)
		return fmt.Sprintf("## %s\n\nbody-%d", title, id), nil
	}
	wf, _ := newTestWorkflow(t, provider, Dependencies{}, Options{MaxParallelWorkers: 7})

	result, err := wf.Run(context.Background(), Request{Topic: "Ordering"})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(result.FinalDocument, "# Ordered\n\n"))
	last := -1
	for id := 1; id <= 7; id++ {
		position := strings.Index(result.FinalDocument, fmt.Sprintf("body-%d", id))
		require.NotEqual(t, -1, position, "section %d missing", id)
		assert.Greater(t, position, last, "section %d out of order", id)
		last = position
	}
	assert.Equal(t, 7, result.Metadata.Sections)
}

func TestRun_ForcedResearchKeepsClassifierOutput(t *testing.T) {
	provider := newScriptedProvider(routerJSON(false, ModeHybrid, "go generics", "go iterators"), planJSON("Go", 1, 2, 3, 4, 5))
	searcher := &fakeSearch{}
	wf, _ := newTestWorkflow(t, provider, Dependencies{Search: searcher}, Options{})

	result, err := wf.Run(context.Background(), Request{Topic: "Go in 2026", Platform: "devto", EnableResearch: true})
	require.NoError(t, err)

	assert.True(t, result.Metadata.ResearchUsed)
	assert.Equal(t, ModeHybrid, result.Metadata.Mode)
	assert.Equal(t, []string{"go generics", "go iterators"}, searcher.queries)
	assert.Equal(t, 4, result.Metadata.EvidenceCount)

	planner := provider.stageRequests(NodePlanner)
	require.Len(t, planner, 1)
	assert.Contains(t, planner[0].Messages[len(planner[0].Messages)-1].Content, "- Result for go generics: Findings about go generics (https://example.com/")

	writer := provider.stageRequests(NodeWorker)
	require.NotEmpty(t, writer)
	assert.Contains(t, writer[0].Messages[len(writer[0].Messages)-1].Content, "Evidence Content:\n- Findings about go generics (Source: https://example.com/")
}

func TestRun_ForcedResearchWithoutModeUsesResearchMode(t *testing.T) {
	provider := newScriptedProvider(`{"needs_research": false, "queries": ["q"]}`, planJSON("T", 1, 2, 3, 4, 5))
	wf, _ := newTestWorkflow(t, provider, Dependencies{Search: &fakeSearch{}}, Options{})

	result, err := wf.Run(context.Background(), Request{Topic: "Topic", EnableResearch: true})
	require.NoError(t, err)
	assert.Equal(t, ModeResearch, result.Metadata.Mode)
	assert.True(t, result.Metadata.ResearchUsed)
}

func TestRun_ResearchServedFromCache(t *testing.T) {
	provider := newScriptedProvider(routerJSON(true, ModeOpenBook, "latest go release", "Latest Go Release "), planJSON("Go", 1, 2, 3, 4, 5))
	searcher := &fakeSearch{}
	store := memcache.New(time.Hour)
	wf, _ := newTestWorkflow(t, provider, Dependencies{Search: searcher, Cache: store}, Options{})

	first, err := wf.Run(context.Background(), Request{Topic: "Go releases"})
	require.NoError(t, err)
	// Keys differing in case and spacing are distinct.
	assert.Equal(t, 2, searcher.calls())
	assert.Equal(t, 2, store.Len())

	second, err := wf.Run(context.Background(), Request{Topic: "Go releases"})
	require.NoError(t, err)
	assert.Equal(t, 2, searcher.calls(), "second run must not search again")
	assert.Equal(t, first.Metadata.EvidenceCount, second.Metadata.EvidenceCount)

	cached, ok, err := store.Get(context.Background(), ResearchCacheKey("latest go release"))
	require.NoError(t, err)
	require.True(t, ok)
	var evidence []search.Evidence
	require.NoError(t, json.Unmarshal(cached, &evidence))
	require.Len(t, evidence, 2)
	assert.Len(t, []rune(evidence[1].Snippet), search.DefaultSnippetLength)
}

func TestRun_ResearchFailureDegradesToNoEvidence(t *testing.T) {
	provider := newScriptedProvider(routerJSON(true, ModeOpenBook, "a", "b"), planJSON("T", 1, 2, 3, 4, 5))
	searcher := &fakeSearch{err: errors.New("search backend down")}
	wf, _ := newTestWorkflow(t, provider, Dependencies{Search: searcher}, Options{})

	result, err := wf.Run(context.Background(), Request{Topic: "News"})
	require.NoError(t, err)
	assert.Equal(t, 1, searcher.calls(), "research stops at the first failure")
	assert.Zero(t, result.Metadata.EvidenceCount)
	assert.True(t, result.Metadata.ResearchUsed)
}

func TestRun_NoSearchProvider(t *testing.T) {
	provider := newScriptedProvider(routerJSON(true, ModeOpenBook, "a"), planJSON("T", 1, 2, 3, 4, 5))
	wf, _ := newTestWorkflow(t, provider, Dependencies{}, Options{})

	result, err := wf.Run(context.Background(), Request{Topic: "News"})
	require.NoError(t, err)
	assert.Zero(t, result.Metadata.EvidenceCount)
	assert.Equal(t, 5, result.Metadata.Sections)
}

func TestRun_EmptyPlanProducesEmptyDocument(t *testing.T) {
	provider := newScriptedProvider(routerJSON(false, ModeClosedBook), `{"blog_title": "Nothing", "sections": []}`)
	wf, _ := newTestWorkflow(t, provider, Dependencies{}, Options{})

	result, err := wf.Run(context.Background(), Request{Topic: "Empty"})
	require.NoError(t, err)

	assert.Equal(t, "# Untitled\n\n", result.FinalDocument)
	assert.Zero(t, result.Metadata.Sections)
	assert.Equal(t, DefaultTitle, result.Metadata.Title)
	assert.Empty(t, provider.stageRequests(NodeWorker))
}

func TestRun_WorkerRetriedUntilSuccess(t *testing.T) {
	provider := newScriptedProvider(routerJSON(false, ModeClosedBook), planJSON("Retry", 1, 2, 3))
	provider.writer = func(title string, attempt int) (string, error) {
		if title == "Section 2" && attempt <= 2 {
			return "", &ai.ProviderError{Provider: "test", StatusCode: http.StatusServiceUnavailable, Body: "busy"}
		}
		return "## " + title + "\n\ntext of " + title, nil
	}
	retry := middleware.NewRetryMiddleware(middleware.RetryConfig{
		MaxRetries: 2,
		Sleep:      func(context.Context, time.Duration) error { return nil },
	})
	wf, completionClient := newTestWorkflow(t, provider, Dependencies{}, Options{MinSections: 3}, retry)

	result, err := wf.Run(context.Background(), Request{Topic: "Retries"})
	require.NoError(t, err)

	assert.Contains(t, result.FinalDocument, "text of Section 2")
	assert.Equal(t, 3, provider.attemptsFor("Section 2"))

	stats := completionClient.Stats()
	// router + planner + 3 sections + 2 retried attempts
	assert.Equal(t, int64(7), stats.Calls)
	assert.Equal(t, int64(2), stats.Failures)
	assert.Equal(t, 7, result.Metadata.Usage.Calls)
	assert.Equal(t, 75, result.Metadata.Usage.TotalTokens)
}

func TestRun_WorkerFailureAbortsRun(t *testing.T) {
	provider := newScriptedProvider(routerJSON(false, ModeClosedBook), planJSON("Broken", 1, 2, 3, 4, 5))
	provider.writer = func(title string, _ int) (string, error) {
		if title == "Section 4" {
			return "", &ai.ProviderError{Provider: "test", StatusCode: http.StatusBadRequest, Body: "bad request"}
		}
		return "ok", nil
	}
	wf, _ := newTestWorkflow(t, provider, Dependencies{}, Options{})

	result, err := wf.Run(context.Background(), Request{Topic: "Failure"})
	require.Error(t, err)
	assert.Nil(t, result)

	var providerErr *ai.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Contains(t, err.Error(), "section 4")
}

func TestRun_ContinueOnErrorDropsFailedSection(t *testing.T) {
	provider := newScriptedProvider(routerJSON(false, ModeClosedBook), planJSON("Partial", 1, 2, 3, 4, 5))
	provider.writer = func(title string, _ int) (string, error) {
		if title == "Section 4" {
			return "", errors.New("boom")
		}
		return "text of " + title, nil
	}

	var mu sync.Mutex
	var failed []graph.Event
	handler := func(event graph.Event) {
		if event.Type == graph.EventFanOutSendFailed {
			mu.Lock()
			failed = append(failed, event)
			mu.Unlock()
		}
	}
	wf, _ := newTestWorkflow(t, provider, Dependencies{}, Options{
		ErrorStrategy: graph.ErrorStrategyContinueOnError,
		EventHandler:  handler,
	})

	result, err := wf.Run(context.Background(), Request{Topic: "Partial"})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Metadata.Sections)
	assert.NotContains(t, result.FinalDocument, "text of Section 4")
	assert.Len(t, failed, 1)
}

func TestRun_MalformedRouterOutput(t *testing.T) {
	provider := newScriptedProvider("I think research is a good idea.", planJSON("T", 1))
	wf, _ := newTestWorkflow(t, provider, Dependencies{}, Options{})

	_, err := wf.Run(context.Background(), Request{Topic: "Anything"})
	require.Error(t, err)
	assert.ErrorIs(t, err, parse.ErrMalformedStructuredOutput)
	assert.Empty(t, provider.stageRequests(NodePlanner))
}

func TestRun_TruncatedPlannerOutputFails(t *testing.T) {
	complete := planJSON("Cut", 1, 2, 3, 4, 5)
	cutMidSection := complete[:strings.Index(complete, `"title":"Section 2"`)+len(`"title":"Sec`)]

	tests := []struct {
		name    string
		planner string
		finish  string
	}{
		{name: "only an opening brace", planner: "{", finish: "stop"},
		{name: "cut inside the sections array", planner: cutMidSection, finish: "stop"},
		{name: "complete json at the token limit", planner: complete, finish: "length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newScriptedProvider(routerJSON(false, ModeClosedBook), tt.planner)
			provider.finish = map[string]string{NodePlanner: tt.finish}
			wf, _ := newTestWorkflow(t, provider, Dependencies{}, Options{})

			result, err := wf.Run(context.Background(), Request{Topic: "Truncation"})
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, parse.ErrMalformedStructuredOutput)
			assert.Empty(t, provider.stageRequests(NodeWorker))
		})
	}
}

func TestRun_TruncatedRouterOutputFails(t *testing.T) {
	provider := newScriptedProvider(`{"needs_research": true, "mode": "open_book", "queries": ["latest`, planJSON("T", 1))
	wf, _ := newTestWorkflow(t, provider, Dependencies{}, Options{})

	_, err := wf.Run(context.Background(), Request{Topic: "Anything"})
	require.Error(t, err)
	assert.ErrorIs(t, err, parse.ErrMalformedStructuredOutput)
	assert.Empty(t, provider.stageRequests(NodePlanner))
}

func TestRun_EmptyTopic(t *testing.T) {
	provider := newScriptedProvider(routerJSON(false, ModeClosedBook), planJSON("T", 1))
	wf, _ := newTestWorkflow(t, provider, Dependencies{}, Options{})

	_, err := wf.Run(context.Background(), Request{Topic: "   "})
	assert.ErrorIs(t, err, ErrEmptyTopic)
	assert.Empty(t, provider.stageRequests(NodeRouter))
}

func TestRun_UnknownPlatformFallsBackToGeneric(t *testing.T) {
	provider := newScriptedProvider(routerJSON(false, ModeClosedBook), planJSON("T", 1, 2, 3, 4, 5))
	wf, _ := newTestWorkflow(t, provider, Dependencies{}, Options{})

	result, err := wf.Run(context.Background(), Request{Topic: "Topic", Platform: "myspace"})
	require.NoError(t, err)
	assert.Equal(t, DefaultPlatform, result.Metadata.Platform)

	planner := provider.stageRequests(NodePlanner)
	require.Len(t, planner, 1)
	assert.Contains(t, planner[0].Messages[len(planner[0].Messages)-1].Content, "Tone: balanced")
}

func TestRun_Metadata(t *testing.T) {
	provider := newScriptedProvider(routerJSON(false, ModeClosedBook), planJSON("  Metadata Matters  ", 1, 2, 3, 4, 5))
	models := Models{Router: "router-model", Research: "research-model", Planner: "planner-model", Writer: "writer-model"}
	pricing := cost.Pricing{"writer-model": {InputCostPerMillion: 1_000_000, OutputCostPerMillion: 0}}
	wf, _ := newTestWorkflow(t, provider, Dependencies{}, Options{Models: models, Pricing: pricing})

	result, err := wf.Run(context.Background(), Request{Topic: "  Metadata  ", Platform: "Medium"})
	require.NoError(t, err)

	metadata := result.Metadata
	assert.Equal(t, "Metadata Matters", metadata.Title)
	assert.Equal(t, "Metadata", metadata.Topic)
	assert.Equal(t, "medium", metadata.Platform)
	assert.Equal(t, models, metadata.ModelsUsed)
	assert.Equal(t, "2026-03-01", metadata.GeneratedAt)
	assert.Equal(t, len(strings.Fields(result.FinalDocument)), metadata.WordCount)
	assert.Zero(t, metadata.GenerationTime)
	_, err = uuid.Parse(metadata.RunID)
	assert.NoError(t, err)

	assert.Equal(t, 7, metadata.Usage.Calls)
	require.NotNil(t, metadata.EstimatedCostUSD)
	// 5 writer calls × 10 prompt tokens at $1 per token
	assert.InDelta(t, 50.0, *metadata.EstimatedCostUSD, 1e-9)

	router := provider.stageRequests(NodeRouter)
	require.Len(t, router, 1)
	assert.Equal(t, "router-model", router[0].Model)
	assert.Contains(t, router[0].Messages[len(router[0].Messages)-1].Content, "Date: 2026-03-01\nResearch Requested: false")
}

func TestRun_NoPricingOmitsCost(t *testing.T) {
	provider := newScriptedProvider(routerJSON(false, ModeClosedBook), planJSON("T", 1, 2, 3, 4, 5))
	wf, _ := newTestWorkflow(t, provider, Dependencies{}, Options{})

	result, err := wf.Run(context.Background(), Request{Topic: "Topic"})
	require.NoError(t, err)
	assert.Nil(t, result.Metadata.EstimatedCostUSD)

	raw, err := json.Marshal(result.Metadata)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "estimated_cost_usd")
}

func TestRun_ConcurrentRuns(t *testing.T) {
	provider := newScriptedProvider(routerJSON(false, ModeClosedBook), planJSON("T", 1, 2, 3, 4, 5))
	wf, _ := newTestWorkflow(t, provider, Dependencies{}, Options{})

	var wg sync.WaitGroup
	results := make([]*Result, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = wf.Run(context.Background(), Request{Topic: fmt.Sprintf("Topic %d", i)})
		}()
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("Topic %d", i), results[i].Metadata.Topic)
		assert.Equal(t, 5, results[i].Metadata.Sections)
		assert.Equal(t, 7, results[i].Metadata.Usage.Calls)
	}
}

func TestNew_Validation(t *testing.T) {
	provider := newScriptedProvider("", "")
	completionClient, err := client.New(provider)
	require.NoError(t, err)

	tests := []struct {
		name    string
		deps    Dependencies
		options Options
		wantErr string
	}{
		{name: "missing client", deps: Dependencies{}, wantErr: "completion client is required"},
		{name: "min above max", deps: Dependencies{Client: completionClient}, options: Options{MinSections: 6, MaxSections: 4}, wantErr: "min sections"},
		{name: "temperature out of range", deps: Dependencies{Client: completionClient}, options: Options{Temperature: 2.5}, wantErr: "temperature"},
		{name: "defaults", deps: Dependencies{Client: completionClient}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, err := New(tt.deps, tt.options)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultOptions().Models, wf.options.Models)
			assert.Equal(t, 5, wf.options.MaxParallelWorkers)
		})
	}
}
