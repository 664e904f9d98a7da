package blog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/draftly/core/client"
	"github.com/leofalp/draftly/core/cost"
	"github.com/leofalp/draftly/core/overview"
	"github.com/leofalp/draftly/patterns/graph"
	"github.com/leofalp/draftly/providers/cache"
	"github.com/leofalp/draftly/providers/observability"
	"github.com/leofalp/draftly/providers/search"
)

// Node identifiers of the workflow graph.
const (
	NodeRouter   = "router"
	NodeResearch = "research"
	NodePlanner  = "planner"
	NodeWorker   = "worker"
	NodeMerger   = "merger"
)

// ErrEmptyTopic is returned by Run when the topic is blank.
var ErrEmptyTopic = errors.New("blog: topic is empty")

// Models names the completion model used by each stage. Research makes no
// completion calls; its model is only reported in the metadata.
type Models struct {
	Router   string `json:"router"`
	Research string `json:"research"` // metadata only
	Planner  string `json:"planner"`
	Writer   string `json:"writer"`
}

// Dependencies are the collaborators of a Workflow.
type Dependencies struct {
	// Client is required.
	Client *client.Client

	// Search is optional. Without it research yields no evidence.
	Search search.Provider

	// Cache stores normalized search results. Nil disables caching.
	Cache cache.Store

	// Observer receives workflow logs, spans and metrics. Optional.
	Observer observability.Provider

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Options tunes a Workflow. Zero values other than Temperature take the
// DefaultOptions value.
type Options struct {
	Models             Models
	Temperature        float32
	MaxTokens          int
	MinSections        int
	MaxSections        int
	ResultsPerQuery    int
	MaxResearchQueries int
	MaxParallelWorkers int
	ErrorStrategy      graph.ErrorStrategy

	// Pricing enables estimated_cost_usd in the metadata.
	Pricing cost.Pricing

	// EventHandler receives graph progress events.
	EventHandler graph.EventHandler
}

// DefaultOptions returns the options used for unset fields.
func DefaultOptions() Options {
	return Options{
		Models: Models{
			Router:   "meta-llama/llama-3.3-70b-instruct",
			Research: "meta-llama/llama-3.3-70b-instruct",
			Planner:  "google/gemini-2.0-flash-001",
			Writer:   "google/gemini-2.0-flash-001",
		},
		Temperature:        0.7,
		MaxTokens:          4096,
		MinSections:        5,
		MaxSections:        9,
		ResultsPerQuery:    5,
		MaxResearchQueries: 5,
		MaxParallelWorkers: 5,
		ErrorStrategy:      graph.ErrorStrategyFailFast,
	}
}

func (options Options) withDefaults() Options {
	defaults := DefaultOptions()
	if options.Models.Router == "" {
		options.Models.Router = defaults.Models.Router
	}
	if options.Models.Research == "" {
		options.Models.Research = defaults.Models.Research
	}
	if options.Models.Planner == "" {
		options.Models.Planner = defaults.Models.Planner
	}
	if options.Models.Writer == "" {
		options.Models.Writer = defaults.Models.Writer
	}
	if options.MaxTokens <= 0 {
		options.MaxTokens = defaults.MaxTokens
	}
	if options.MinSections <= 0 {
		options.MinSections = defaults.MinSections
	}
	if options.MaxSections <= 0 {
		options.MaxSections = defaults.MaxSections
	}
	if options.ResultsPerQuery <= 0 {
		options.ResultsPerQuery = defaults.ResultsPerQuery
	}
	if options.MaxResearchQueries <= 0 {
		options.MaxResearchQueries = defaults.MaxResearchQueries
	}
	if options.MaxParallelWorkers <= 0 {
		options.MaxParallelWorkers = defaults.MaxParallelWorkers
	}
	if options.ErrorStrategy == "" {
		options.ErrorStrategy = defaults.ErrorStrategy
	}
	return options
}

// Request is the caller input of one run.
type Request struct {
	Topic          string
	Platform       string
	EnableResearch bool
}

// Result is the output of a successful run.
type Result struct {
	FinalDocument string
	Metadata      Metadata
}

// Workflow generates documents. It is safe for concurrent runs.
type Workflow struct {
	client   *client.Client
	search   search.Provider
	cache    cache.Store
	observer observability.Provider
	now      func() time.Time
	options  Options
	graph    *graph.Graph
}

// New validates options and wires the stage graph.
func New(deps Dependencies, options Options) (*Workflow, error) {
	if deps.Client == nil {
		return nil, errors.New("blog: completion client is required")
	}

	options = options.withDefaults()
	if options.MinSections > options.MaxSections {
		return nil, fmt.Errorf("blog: min sections (%d) exceeds max sections (%d)", options.MinSections, options.MaxSections)
	}
	if options.Temperature < 0 || options.Temperature > 2 {
		return nil, fmt.Errorf("blog: temperature %.2f outside [0,2]", options.Temperature)
	}

	wf := &Workflow{
		client:   deps.Client,
		search:   deps.Search,
		cache:    deps.Cache,
		observer: deps.Observer,
		now:      deps.Clock,
		options:  options,
	}
	if wf.cache == nil {
		wf.cache = cache.Disabled()
	}
	if wf.now == nil {
		wf.now = time.Now
	}

	workflowGraph, err := graph.NewBuilder(
		graph.WithMaxConcurrency(options.MaxParallelWorkers),
		graph.WithErrorStrategy(options.ErrorStrategy),
		graph.WithReducer(SectionsKey.Name(), graph.AppendReducer[SectionDraft]()),
		graph.WithObserver(deps.Observer),
		graph.WithEventHandler(options.EventHandler),
	).
		AddNode(NodeRouter, graph.NodeExecutorFunc(wf.route)).
		AddNode(NodeResearch, graph.NodeExecutorFunc(wf.research)).
		AddNode(NodePlanner, graph.NodeExecutorFunc(wf.plan)).
		AddNode(NodeWorker, graph.NodeExecutorFunc(wf.write)).
		AddNode(NodeMerger, graph.NodeExecutorFunc(wf.merge)).
		SetEntryPoint(NodeRouter).
		AddConditionalEdges(NodeRouter, nextAfterRouter, map[string]string{
			NodeResearch: NodeResearch,
			NodePlanner:  NodePlanner,
		}).
		AddEdge(NodeResearch, NodePlanner).
		AddFanOut(NodePlanner, dispatchSections, NodeMerger).
		AddEdge(NodeMerger, graph.End).
		Build()
	if err != nil {
		return nil, fmt.Errorf("blog: %w", err)
	}
	wf.graph = workflowGraph

	return wf, nil
}

// Run generates one document. The caller gets either the complete document
// or an error, never a partial result.
func (wf *Workflow) Run(ctx context.Context, req Request) (*Result, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	started := wf.now()
	runID := uuid.NewString()
	runOverview := overview.OverviewFromContext(&ctx)

	platform, _, known := ResolvePlatform(req.Platform)
	if !known {
		wf.logWarn(ctx, "unknown platform, using generic rules",
			observability.String(observability.AttrRunID, runID),
			observability.String("requested_platform", req.Platform),
		)
	}

	wf.logInfo(ctx, "blog generation started",
		observability.String(observability.AttrRunID, runID),
		observability.String(observability.AttrTopic, topic),
		observability.String(observability.AttrPlatform, platform),
		observability.Bool("research_requested", req.EnableResearch),
	)

	initial := graph.Update{}
	TopicKey.Set(initial, topic)
	PlatformKey.Set(initial, platform)
	ResearchRequestedKey.Set(initial, req.EnableResearch)
	RunIDKey.Set(initial, runID)

	executed, err := wf.graph.Execute(ctx, graph.State(initial))
	if err != nil {
		wf.logError(ctx, "blog generation failed",
			observability.String(observability.AttrRunID, runID),
			observability.Error(err),
		)
		return nil, fmt.Errorf("blog: run %s: %w", runID, err)
	}

	document, hasDocument := FinalDocumentKey.Get(executed.State)
	metadata, hasMetadata := MetadataKey.Get(executed.State)
	if !hasDocument || !hasMetadata {
		return nil, fmt.Errorf("blog: run %s ended without a document", runID)
	}

	snapshot := runOverview.Snapshot()
	metadata.Usage = Usage{
		Calls:            snapshot.Calls,
		PromptTokens:     snapshot.TotalUsage.PromptTokens,
		CompletionTokens: snapshot.TotalUsage.CompletionTokens,
		TotalTokens:      snapshot.TotalUsage.TotalTokens,
	}
	if estimated, ok := runOverview.EstimatedCost(wf.options.Pricing); ok {
		metadata.EstimatedCostUSD = &estimated
	}
	metadata.GenerationTime = math.Round(wf.now().Sub(started).Seconds()*100) / 100

	wf.logInfo(ctx, "blog generation completed",
		observability.String(observability.AttrRunID, runID),
		observability.Int("word_count", metadata.WordCount),
		observability.Int("sections", metadata.Sections),
		observability.Int("llm_calls", snapshot.Calls),
		observability.Float64("generation_time_s", metadata.GenerationTime),
	)

	return &Result{FinalDocument: document, Metadata: metadata}, nil
}

func (wf *Workflow) logDebug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if wf.observer != nil {
		wf.observer.Debug(ctx, msg, attrs...)
	}
}

func (wf *Workflow) logInfo(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if wf.observer != nil {
		wf.observer.Info(ctx, msg, attrs...)
	}
}

func (wf *Workflow) logWarn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if wf.observer != nil {
		wf.observer.Warn(ctx, msg, attrs...)
	}
}

func (wf *Workflow) logError(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if wf.observer != nil {
		wf.observer.Error(ctx, msg, attrs...)
	}
}

// stageAttrs tags a log line with the run and the emitting stage.
func stageAttrs(state graph.State, stage string, attrs ...observability.Attribute) []observability.Attribute {
	return append([]observability.Attribute{
		observability.String(observability.AttrRunID, RunIDKey.Value(state)),
		observability.String(observability.AttrStage, stage),
	}, attrs...)
}
