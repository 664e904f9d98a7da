package tavily

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/leofalp/draftly/internal/utils"
	"github.com/leofalp/draftly/providers/observability"
	"github.com/leofalp/draftly/providers/search"
)

const (
	defaultBaseURL = "https://api.tavily.com"
	envAPIKey      = "TAVILY_API_KEY"
	maxResults     = 20
	defaultResults = 5
)

// ErrMissingAPIKey is returned by Search when no API key is configured.
var ErrMissingAPIKey = errors.New("tavily: " + envAPIKey + " is not set")

// Provider calls the Tavily /search endpoint.
type Provider struct {
	apiKey      string
	baseURL     string
	searchDepth string
	client      *http.Client
	observer    observability.Provider
}

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL overrides the API endpoint, mostly for tests.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithSearchDepth selects "basic" (default) or "advanced" search.
func WithSearchDepth(depth string) Option {
	return func(p *Provider) { p.searchDepth = depth }
}

// WithObserver traces each search call.
func WithObserver(o observability.Provider) Option {
	return func(p *Provider) { p.observer = o }
}

// New returns a Provider authenticated with apiKey.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:      strings.TrimSpace(apiKey),
		baseURL:     defaultBaseURL,
		searchDepth: "basic",
		client:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromEnv reads the API key from TAVILY_API_KEY.
func NewFromEnv(opts ...Option) *Provider {
	return New(os.Getenv(envAPIKey), opts...)
}

var _ search.Provider = (*Provider)(nil)

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type searchResponse struct {
	Query        string       `json:"query"`
	Results      []resultItem `json:"results"`
	ResponseTime float64      `json:"response_time"`
	RequestID    string       `json:"request_id"`
}

type resultItem struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type apiError struct {
	Detail struct {
		Error string `json:"error"`
	} `json:"detail"`
}

// Search returns up to req.MaxResults hits, clamped to the API limit of 20.
func (p *Provider) Search(ctx context.Context, req search.Request) (results []search.Result, err error) {
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, errors.New("tavily: empty query")
	}

	if p.observer != nil {
		var span observability.Span
		ctx, span = p.observer.StartSpan(ctx, observability.SpanSearch,
			observability.String(observability.AttrSearchQuery, query),
		)
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(observability.StatusError, err.Error())
			} else {
				span.SetAttributes(observability.Int("search.results", len(results)))
				span.SetStatus(observability.StatusOK, "")
			}
			span.End()
		}()
	}

	n := req.MaxResults
	if n <= 0 {
		n = defaultResults
	}
	if n > maxResults {
		n = maxResults
	}

	body := searchRequest{
		APIKey:      p.apiKey,
		Query:       query,
		SearchDepth: p.searchDepth,
		MaxResults:  n,
	}

	_, resp, err := utils.DoPostSync[searchResponse](ctx, p.client, p.baseURL+"/search", "", body)
	if err != nil {
		var statusErr *utils.StatusError
		if errors.As(err, &statusErr) {
			var apiErr apiError
			if json.Unmarshal([]byte(statusErr.Body), &apiErr) == nil && apiErr.Detail.Error != "" {
				return nil, fmt.Errorf("tavily API error (status %d): %s: %w", statusErr.StatusCode, apiErr.Detail.Error, err)
			}
		}
		return nil, fmt.Errorf("tavily: search %q: %w", query, err)
	}

	results = make([]search.Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, search.Result{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
	}
	return results, nil
}
