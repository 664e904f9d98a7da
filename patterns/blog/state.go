package blog

import (
	"github.com/leofalp/draftly/patterns/graph"
	"github.com/leofalp/draftly/providers/search"
)

// Workflow state fields. Each is owned by the stage that writes it.
var (
	TopicKey             = graph.NewKey[string]("topic")
	PlatformKey          = graph.NewKey[string]("platform")
	ResearchRequestedKey = graph.NewKey[bool]("research_requested")
	RunIDKey             = graph.NewKey[string]("run_id")

	// Router
	NeedsResearchKey = graph.NewKey[bool]("needs_research")
	ModeKey          = graph.NewKey[string]("mode")
	QueriesKey       = graph.NewKey[[]string]("queries")

	// Research
	EvidenceKey = graph.NewKey[[]search.Evidence]("evidence")

	// Planner
	PlanKey = graph.NewKey[*Plan]("plan")

	// Workers, accumulated with graph.AppendReducer.
	SectionsKey = graph.NewKey[[]SectionDraft]("sections")

	// Merger
	FinalDocumentKey = graph.NewKey[string]("final_document")
	MetadataKey      = graph.NewKey[Metadata]("metadata")
)

// Routing modes returned by the Router classifier.
const (
	ModeClosedBook = "closed_book"
	ModeHybrid     = "hybrid"
	ModeOpenBook   = "open_book"

	// ModeResearch is used when research was forced and the classifier
	// returned no mode.
	ModeResearch = "research"
)

// RouterDecision is the structured answer of the routing call.
type RouterDecision struct {
	NeedsResearch bool     `json:"needs_research" jsonschema:"description=true when the topic needs web research,required"`
	Mode          string   `json:"mode" jsonschema:"enum=closed_book,enum=hybrid,enum=open_book,required"`
	Queries       []string `json:"queries" jsonschema:"description=focused web search queries"`
}

// SectionSpec describes one section of the outline. ID is the fan-in sort
// key and is unique within a plan.
type SectionSpec struct {
	ID          int      `json:"id" jsonschema:"required"`
	Title       string   `json:"title" jsonschema:"required"`
	Goal        string   `json:"goal" jsonschema:"required"`
	Bullets     []string `json:"bullets" jsonschema:"description=3 to 6 points the section covers,required"`
	TargetWords int      `json:"target_words" jsonschema:"minimum=1,required"`
}

// Plan is the outline produced by the Planner.
type Plan struct {
	BlogTitle string        `json:"blog_title" jsonschema:"required"`
	Sections  []SectionSpec `json:"sections" jsonschema:"required"`
}

// SectionDraft is one Worker's contribution.
type SectionDraft struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// WorkItem is the private payload of one Worker invocation.
type WorkItem struct {
	Section       SectionSpec
	Topic         string
	Platform      string
	DocumentTitle string
	Evidence      []search.Evidence
}
