package blog

import (
	"fmt"
	"strings"
)

// DefaultPlatform is used for unknown platform keys.
const DefaultPlatform = "generic"

// PlatformRules are the per-platform writing constraints.
type PlatformRules struct {
	MinWords int
	MaxWords int
	Tone     string
}

// WordRange renders the target range for prompts.
func (rules PlatformRules) WordRange() string {
	return fmt.Sprintf("%d-%d words", rules.MinWords, rules.MaxWords)
}

var platforms = map[string]PlatformRules{
	"medium":   {MinWords: 1500, MaxWords: 3000, Tone: "conversational, storytelling"},
	"devto":    {MinWords: 1000, MaxWords: 2000, Tone: "technical, tutorial"},
	"linkedin": {MinWords: 800, MaxWords: 1500, Tone: "professional"},
	"generic":  {MinWords: 1500, MaxWords: 2500, Tone: "balanced"},
}

// ResolvePlatform normalizes key and returns its rules. ok is false when key
// is unknown, in which case the generic rules are returned.
func ResolvePlatform(key string) (string, PlatformRules, bool) {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if rules, found := platforms[normalized]; found {
		return normalized, rules, true
	}
	return DefaultPlatform, platforms[DefaultPlatform], false
}

// Platforms lists the known platform keys in sorted order.
func Platforms() []string {
	return []string{"devto", "generic", "linkedin", "medium"}
}
