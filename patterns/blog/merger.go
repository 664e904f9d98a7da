package blog

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/leofalp/draftly/patterns/graph"
	"github.com/leofalp/draftly/providers/observability"
)

// Metadata summarizes a generated document.
type Metadata struct {
	Title         string `json:"title"`
	WordCount     int    `json:"word_count"`
	Sections      int    `json:"sections"`
	Platform      string `json:"platform"`
	Topic         string `json:"topic"`
	Mode          string `json:"mode"`
	ModelsUsed    Models `json:"models_used"`
	ResearchUsed  bool   `json:"research_used"`
	EvidenceCount int    `json:"evidence_count"`
	GeneratedAt   string `json:"generated_at"`
	RunID         string `json:"run_id"`

	// Filled by Run once the graph has finished.
	Usage            Usage    `json:"usage"`
	EstimatedCostUSD *float64 `json:"estimated_cost_usd,omitempty"`
	GenerationTime   float64  `json:"generation_time"`
}

// Usage counts the completion attempts of one run, retries included.
type Usage struct {
	Calls            int `json:"calls"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// merge renders the document once every worker has returned. Sections are
// ordered by id whatever order the workers finished in.
func (wf *Workflow) merge(ctx context.Context, input *graph.NodeInput) (graph.Update, error) {
	state := input.State
	title := documentTitle(PlanKey.Value(state))
	drafts := SectionsKey.Value(state)
	document := RenderDocument(title, drafts)

	metadata := Metadata{
		Title:         title,
		WordCount:     CountWords(document),
		Sections:      len(drafts),
		Platform:      PlatformKey.Value(state),
		Topic:         TopicKey.Value(state),
		Mode:          ModeKey.Value(state),
		ModelsUsed:    wf.options.Models,
		ResearchUsed:  NeedsResearchKey.Value(state),
		EvidenceCount: len(EvidenceKey.Value(state)),
		GeneratedAt:   wf.now().Format(time.DateOnly),
		RunID:         RunIDKey.Value(state),
	}

	wf.logInfo(ctx, "document merged", stageAttrs(state, NodeMerger,
		observability.Int("sections", metadata.Sections),
		observability.Int("word_count", metadata.WordCount),
	)...)

	update := graph.Update{}
	FinalDocumentKey.Set(update, document)
	MetadataKey.Set(update, metadata)
	return update, nil
}

// RenderDocument places the drafts, sorted by id and separated by a blank
// line, under a single top-level heading.
func RenderDocument(title string, drafts []SectionDraft) string {
	sorted := slices.Clone(drafts)
	slices.SortStableFunc(sorted, func(a, b SectionDraft) int {
		return cmp.Compare(a.ID, b.ID)
	})

	bodies := make([]string, 0, len(sorted))
	for _, draft := range sorted {
		bodies = append(bodies, draft.Text)
	}
	return "# " + title + "\n\n" + strings.Join(bodies, "\n\n")
}

// CountWords counts whitespace-separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
