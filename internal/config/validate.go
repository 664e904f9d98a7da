package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/leofalp/draftly/providers/observability/slogobs"
)

// ErrInvalidConfig is matched by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// FieldError names the setting that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalidConfig }

// Validate checks every setting and reports all violations joined together.
// errors.As with a *FieldError yields the first one.
func (c *Config) Validate() error {
	var problems []error
	check := func(ok bool, field, reason string) {
		if !ok {
			problems = append(problems, &FieldError{Field: field, Reason: reason})
		}
	}

	check(strings.TrimSpace(c.OpenRouterAPIKey) != "", EnvOpenRouterAPIKey, "is required")
	check(validBaseURL(c.BaseURL), "base_url", fmt.Sprintf("must be an absolute http(s) URL, got %q", c.BaseURL))

	check(c.Models.Router != "", "models.router", "is required")
	check(c.Models.Planner != "", "models.planner", "is required")
	check(c.Models.Writer != "", "models.writer", "is required")

	check(c.Temperature >= 0 && c.Temperature <= 2, "temperature", fmt.Sprintf("must be within [0,2], got %g", c.Temperature))
	check(c.MaxTokens > 0, "max_tokens", fmt.Sprintf("must be positive, got %d", c.MaxTokens))
	check(c.MinSections >= 1, "min_sections", fmt.Sprintf("must be at least 1, got %d", c.MinSections))
	check(c.MinSections <= c.MaxSections, "max_sections",
		fmt.Sprintf("must not be below min_sections (%d), got %d", c.MinSections, c.MaxSections))
	check(c.MaxRetries >= 0, "max_retries", fmt.Sprintf("must not be negative, got %d", c.MaxRetries))
	check(c.Retry.InitialBackoff > 0, "retry.initial_backoff", fmt.Sprintf("must be positive, got %s", c.Retry.InitialBackoff))
	check(c.Retry.MaxBackoff >= c.Retry.InitialBackoff, "retry.max_backoff",
		fmt.Sprintf("must not be below retry.initial_backoff (%s), got %s", c.Retry.InitialBackoff, c.Retry.MaxBackoff))
	check(c.RequestTimeout > 0, "request_timeout", fmt.Sprintf("must be positive, got %s", c.RequestTimeout))
	check(c.ResultsPerQuery > 0, "results_per_query", fmt.Sprintf("must be positive, got %d", c.ResultsPerQuery))
	check(c.MaxResearchQueries > 0, "max_research_queries", fmt.Sprintf("must be positive, got %d", c.MaxResearchQueries))
	check(c.MaxParallelWorkers > 0, "max_parallel_workers", fmt.Sprintf("must be positive, got %d", c.MaxParallelWorkers))
	check(c.ErrorStrategy == "fail_fast" || c.ErrorStrategy == "continue_on_error", "error_strategy",
		fmt.Sprintf("must be fail_fast or continue_on_error, got %q", c.ErrorStrategy))
	check(strings.TrimSpace(c.OutputDir) != "", "output_dir", "is required")

	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case CacheBackendFile, CacheBackendSQLite:
			check(strings.TrimSpace(c.Cache.Dir) != "", "cache.dir", "is required by the "+c.Cache.Backend+" backend")
		case CacheBackendMemory:
		default:
			check(false, "cache.backend", fmt.Sprintf("must be file, sqlite or memory, got %q", c.Cache.Backend))
		}
		check(c.Cache.TTLHours > 0, "cache.ttl_hours", fmt.Sprintf("must be positive, got %g", c.Cache.TTLHours))
	}

	_, levelErr := slogobs.ParseLogLevel(c.LogLevel)
	check(levelErr == nil, "log_level", fmt.Sprintf("must be TRACE, DEBUG, INFO, WARN or ERROR, got %q", c.LogLevel))
	switch strings.ToLower(c.LogFormat) {
	case "compact", "pretty", "json":
	default:
		check(false, "log_format", fmt.Sprintf("must be compact, pretty or json, got %q", c.LogFormat))
	}

	models := make([]string, 0, len(c.Pricing))
	for model := range c.Pricing {
		models = append(models, model)
	}
	sort.Strings(models)
	for _, model := range models {
		if err := c.Pricing[model].Validate(); err != nil {
			check(false, "pricing."+model, err.Error())
		}
	}

	return errors.Join(problems...)
}

func validBaseURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
