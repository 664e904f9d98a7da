package search

import (
	"context"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/draftly/internal/utils"
)

// DefaultSnippetLength bounds the number of characters kept from a hit's content.
const DefaultSnippetLength = 300

// Request asks for up to MaxResults hits for Query.
type Request struct {
	Query      string
	MaxResults int
}

// Result is a raw hit as returned by a provider.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Evidence is a normalized hit ready to be embedded in prompts and cached.
type Evidence struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Provider runs web searches.
type Provider interface {
	Search(ctx context.Context, req Request) ([]Result, error)
}

// Normalize converts raw results into evidence with snippets bounded to
// maxChars characters. A non-positive maxChars uses DefaultSnippetLength.
func Normalize(results []Result, maxChars int) []Evidence {
	if maxChars <= 0 {
		maxChars = DefaultSnippetLength
	}
	out := make([]Evidence, 0, len(results))
	for _, r := range results {
		out = append(out, Evidence{
			Title:   strings.TrimSpace(r.Title),
			URL:     strings.TrimSpace(r.URL),
			Snippet: NormalizeSnippet(r.Content, maxChars),
		})
	}
	return out
}

// NormalizeSnippet turns content into plain markdown text of at most maxChars
// characters. HTML fragments are converted first so the bound applies to
// readable text rather than markup.
func NormalizeSnippet(content string, maxChars int) string {
	text := strings.TrimSpace(content)
	if looksLikeHTML(text) {
		if md, err := htmltomarkdown.ConvertString(text); err == nil {
			text = strings.TrimSpace(md)
		}
	}
	return utils.TruncateRunes(text, maxChars)
}

func looksLikeHTML(s string) bool {
	i := strings.IndexByte(s, '<')
	if i < 0 {
		return false
	}
	j := strings.IndexByte(s[i:], '>')
	if j <= 1 {
		return false
	}
	c := s[i+1]
	return c == '/' || c == '!' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
