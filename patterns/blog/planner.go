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

// DefaultTitle is used when the plan has no title or there is no plan.
const DefaultTitle = "Untitled"

// plan asks for the outline and normalizes it. A plan without sections is
// stored as absent and leads to an empty document.
func (wf *Workflow) plan(ctx context.Context, input *graph.NodeInput) (graph.Update, error) {
	state := input.State
	_, rules, _ := ResolvePlatform(PlatformKey.Value(state))

	outline, err := client.CompleteStructured[Plan](ctx, wf.client, client.CompletionRequest{
		Model: wf.options.Models.Planner,
		Messages: []ai.Message{
			ai.SystemMessage(systemPrompt),
			ai.UserMessage(plannerContext(TopicKey.Value(state), rules,
				wf.options.MinSections, wf.options.MaxSections, EvidenceKey.Value(state))),
		},
		Temperature: wf.options.Temperature,
		MaxTokens:   wf.options.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}

	normalized, notes := normalizePlan(outline, wf.options.MinSections, wf.options.MaxSections)
	for _, note := range notes {
		wf.logWarn(ctx, note, stageAttrs(state, NodePlanner)...)
	}

	sections := 0
	if normalized != nil {
		sections = len(normalized.Sections)
	}
	wf.logInfo(ctx, "plan ready", stageAttrs(state, NodePlanner, observability.Int("sections", sections))...)

	update := graph.Update{}
	PlanKey.Set(update, normalized)
	return update, nil
}

// normalizePlan trims the title, drops sections beyond maxSections and
// renumbers duplicate ids after the highest one so ids stay unique. It
// returns nil when no section is left, plus human-readable notes about
// every correction.
func normalizePlan(outline Plan, minSections, maxSections int) (*Plan, []string) {
	var notes []string

	sections := outline.Sections
	if maxSections > 0 && len(sections) > maxSections {
		notes = append(notes, fmt.Sprintf("plan has %d sections, keeping the first %d", len(sections), maxSections))
		sections = sections[:maxSections]
	}
	if len(sections) == 0 {
		notes = append(notes, "plan has no sections")
		return nil, notes
	}
	if len(sections) < minSections {
		notes = append(notes, fmt.Sprintf("plan has %d sections, fewer than the %d expected", len(sections), minSections))
	}

	highest := sections[0].ID
	for _, section := range sections {
		highest = max(highest, section.ID)
	}

	seen := make(map[int]bool, len(sections))
	normalized := make([]SectionSpec, 0, len(sections))
	for _, section := range sections {
		if seen[section.ID] {
			highest++
			notes = append(notes, fmt.Sprintf("duplicate section id %d renumbered to %d", section.ID, highest))
			section.ID = highest
		}
		seen[section.ID] = true
		normalized = append(normalized, section)
	}

	return &Plan{BlogTitle: strings.TrimSpace(outline.BlogTitle), Sections: normalized}, notes
}

// documentTitle returns the plan title or DefaultTitle.
func documentTitle(plan *Plan) string {
	if plan == nil || plan.BlogTitle == "" {
		return DefaultTitle
	}
	return plan.BlogTitle
}
