package blog

import (
	"fmt"
	"strings"
	"time"

	"github.com/leofalp/draftly/providers/search"
)

const systemPrompt = `You are a senior content strategist and writer who covers many domains.

Your writing is:
- clear and structured
- driven by examples
- easy to skim, with clean formatting
- insightful rather than surface-level
- actionable
- aware of the platform it is published on

Rules:
1. Open with a strong hook in the first two or three sentences. Never start with "In this article".
2. Every section carries a concrete example (code, data, a scenario or a case study) and a practical takeaway.
3. Use H2 for sections and H3 for sub-points. Keep paragraphs to five sentences or fewer. Use bullets for three or more items. Bold key terms on first use only.
4. Stay conversational but credible and confident without exaggerating. Cut filler and vague claims.
5. No repetition, no empty motivation, no unsupported claims, no academic padding.`

const routerPrompt = `Decide whether the topic needs web research before writing.

Modes:
closed_book: timeless or foundational topics and how-to basics.
hybrid: benefits from current tools, examples, statistics or case studies.
open_book: time-sensitive topics, recent events, "latest" lists and rankings.

When research is needed, propose 3 to 6 precise and focused search queries.

Return JSON: {"needs_research": boolean, "mode": "closed_book|hybrid|open_book", "queries": []}`

const plannerPrompt = `Create the outline of a high-quality blog post.

Requirements:
- between %d and %d sections with a logical progression
- a strong introduction and an insightful conclusion
- every section has an id, a title, a goal, 3 to 6 bullets and target_words

Adapt to the kind of topic:
Technical: implementation details and real examples.
Business: frameworks, metrics and case studies.
Health: evidence-based steps and realistic expectations.
Lifestyle: personal insight and habit-forming actions.
Finance: risk explanation and practical numbers.

The sum of target_words must fit the platform range.
Avoid generic section titles such as "Overview".

Return JSON only.`

const writerPrompt = `Write ONE section of the blog post "%s".

Section: %s
Goal: %s
Bullets:
%s
Target: %d words (±15%%)
Platform: %s (tone: %s)

Rules:
- Start with a micro-hook or a smooth transition.
- Cover the bullets in order.
- Include at least one concrete example suited to the topic.
- Do not repeat other sections.
- Use clean markdown and a tone that fits the platform.
- End with a bold, actionable takeaway sentence.

Do not add an introduction or a conclusion unless this section is one.
Return markdown only.`

func routerContext(topic, platform string, researchRequested bool, today time.Time) string {
	return fmt.Sprintf("%s\n\nTopic: %s\nPlatform: %s\nDate: %s\nResearch Requested: %t",
		routerPrompt, topic, platform, today.Format(time.DateOnly), researchRequested)
}

func plannerContext(topic string, rules PlatformRules, minSections, maxSections int, evidence []search.Evidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, plannerPrompt, minSections, maxSections)
	fmt.Fprintf(&b, "\n\nTopic: %s\nTone: %s\nWord Target: %s\nEvidence:\n", topic, rules.Tone, rules.WordRange())
	b.WriteString(formatPlannerEvidence(evidence))
	return b.String()
}

// formatPlannerEvidence renders up to five items as "- title: snippet (url)".
func formatPlannerEvidence(evidence []search.Evidence) string {
	lines := make([]string, 0, 5)
	for _, item := range evidence[:min(len(evidence), 5)] {
		title := item.Title
		if title == "" {
			title = "N/A"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s (%s)", title, item.Snippet, item.URL))
	}
	return strings.Join(lines, "\n")
}

func writerContext(item WorkItem, rules PlatformRules, targetWords int) string {
	bullets := make([]string, 0, len(item.Section.Bullets))
	for _, bullet := range item.Section.Bullets {
		bullets = append(bullets, "- "+bullet)
	}

	title := item.Section.Title
	if title == "" {
		title = "No Title"
	}

	prompt := fmt.Sprintf(writerPrompt, item.DocumentTitle, title, item.Section.Goal,
		strings.Join(bullets, "\n"), targetWords, item.Platform, rules.Tone)
	return prompt + "\n\nEvidence Content:\n" + formatWorkerEvidence(item.Evidence)
}

// formatWorkerEvidence renders up to three items as "- snippet (Source: url)".
func formatWorkerEvidence(evidence []search.Evidence) string {
	lines := make([]string, 0, 3)
	for _, item := range evidence[:min(len(evidence), 3)] {
		lines = append(lines, fmt.Sprintf("- %s (Source: %s)", item.Snippet, item.URL))
	}
	return strings.Join(lines, "\n")
}
