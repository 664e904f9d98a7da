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

// DefaultTargetWords is used for sections without a word target.
const DefaultTargetWords = 300

// dispatchSections emits one worker send per planned section. No plan means
// no sends, and the run goes straight to the merger.
func dispatchSections(state graph.State) []graph.Send {
	plan := PlanKey.Value(state)
	if plan == nil || len(plan.Sections) == 0 {
		return nil
	}

	title := documentTitle(plan)
	topic := TopicKey.Value(state)
	platform := PlatformKey.Value(state)
	evidence := EvidenceKey.Value(state)

	sends := make([]graph.Send, 0, len(plan.Sections))
	for _, section := range plan.Sections {
		sends = append(sends, graph.Send{
			Node: NodeWorker,
			Payload: WorkItem{
				Section:       section,
				Topic:         topic,
				Platform:      platform,
				DocumentTitle: title,
				Evidence:      evidence,
			},
		})
	}
	return sends
}

// write drafts one section. Its contribution is appended to the shared
// sections field.
func (wf *Workflow) write(ctx context.Context, input *graph.NodeInput) (graph.Update, error) {
	item, ok := input.Payload.(WorkItem)
	if !ok {
		return nil, fmt.Errorf("worker: unexpected payload %T", input.Payload)
	}

	_, rules, _ := ResolvePlatform(item.Platform)
	targetWords := item.Section.TargetWords
	if targetWords <= 0 {
		targetWords = DefaultTargetWords
	}

	text, err := wf.client.Complete(ctx, client.CompletionRequest{
		Model: wf.options.Models.Writer,
		Messages: []ai.Message{
			ai.SystemMessage(systemPrompt),
			ai.UserMessage(writerContext(item, rules, targetWords)),
		},
		Temperature: wf.options.Temperature,
		MaxTokens:   wf.options.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("worker: section %d: %w", item.Section.ID, err)
	}

	wf.logDebug(ctx, "section drafted", stageAttrs(input.State, NodeWorker,
		observability.Int(observability.AttrSectionID, item.Section.ID),
		observability.Int("words", len(strings.Fields(text))),
	)...)

	update := graph.Update{}
	SectionsKey.Set(update, []SectionDraft{{ID: item.Section.ID, Text: strings.TrimSpace(text)}})
	return update, nil
}
