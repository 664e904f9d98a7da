package config

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Environment variable names.
const (
	EnvOpenRouterAPIKey   = "OPENROUTER_API_KEY"
	EnvTavilyAPIKey       = "TAVILY_API_KEY"
	EnvBaseURL            = "DRAFTLY_BASE_URL"
	EnvRouterModel        = "DRAFTLY_ROUTER_MODEL"
	EnvResearchModel      = "DRAFTLY_RESEARCH_MODEL"
	EnvPlannerModel       = "DRAFTLY_PLANNER_MODEL"
	EnvWriterModel        = "DRAFTLY_WRITER_MODEL"
	EnvBackupModel        = "DRAFTLY_BACKUP_MODEL"
	EnvTemperature        = "DRAFTLY_TEMPERATURE"
	EnvMaxTokens          = "DRAFTLY_MAX_TOKENS"
	EnvMinSections        = "DRAFTLY_MIN_SECTIONS"
	EnvMaxSections        = "DRAFTLY_MAX_SECTIONS"
	EnvMaxRetries         = "DRAFTLY_MAX_RETRIES"
	EnvRequestTimeout     = "DRAFTLY_REQUEST_TIMEOUT"
	EnvResultsPerQuery    = "DRAFTLY_RESULTS_PER_QUERY"
	EnvMaxResearchQueries = "DRAFTLY_MAX_RESEARCH_QUERIES"
	EnvCacheEnabled       = "DRAFTLY_CACHE_ENABLED"
	EnvCacheBackend       = "DRAFTLY_CACHE_BACKEND"
	EnvCacheDir           = "DRAFTLY_CACHE_DIR"
	EnvCacheTTLHours      = "DRAFTLY_CACHE_TTL_HOURS"
	EnvMaxParallelWorkers = "DRAFTLY_MAX_PARALLEL_WORKERS"
	EnvErrorStrategy      = "DRAFTLY_ERROR_STRATEGY"
	EnvOutputDir          = "DRAFTLY_OUTPUT_DIR"
	EnvLogLevel           = "DRAFTLY_LOG_LEVEL"
	EnvLogFormat          = "DRAFTLY_LOG_FORMAT"
	EnvLogFile            = "DRAFTLY_LOG_FILE"
)

// applyEnv overrides cfg with every variable lookup knows about. Values that
// do not parse are reported as field errors, all at once.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	env := envReader{lookup: lookup}

	env.setString(EnvOpenRouterAPIKey, &cfg.OpenRouterAPIKey)
	env.setString(EnvTavilyAPIKey, &cfg.TavilyAPIKey)
	env.setString(EnvBaseURL, &cfg.BaseURL)
	env.setString(EnvRouterModel, &cfg.Models.Router)
	env.setString(EnvResearchModel, &cfg.Models.Research)
	env.setString(EnvPlannerModel, &cfg.Models.Planner)
	env.setString(EnvWriterModel, &cfg.Models.Writer)
	env.setString(EnvBackupModel, &cfg.Models.Backup)
	env.setFloat(EnvTemperature, &cfg.Temperature)
	env.setInt(EnvMaxTokens, &cfg.MaxTokens)
	env.setInt(EnvMinSections, &cfg.MinSections)
	env.setInt(EnvMaxSections, &cfg.MaxSections)
	env.setInt(EnvMaxRetries, &cfg.MaxRetries)
	env.setDuration(EnvRequestTimeout, &cfg.RequestTimeout)
	env.setInt(EnvResultsPerQuery, &cfg.ResultsPerQuery)
	env.setInt(EnvMaxResearchQueries, &cfg.MaxResearchQueries)
	env.setBool(EnvCacheEnabled, &cfg.Cache.Enabled)
	env.setString(EnvCacheBackend, &cfg.Cache.Backend)
	env.setString(EnvCacheDir, &cfg.Cache.Dir)
	env.setFloat(EnvCacheTTLHours, &cfg.Cache.TTLHours)
	env.setInt(EnvMaxParallelWorkers, &cfg.MaxParallelWorkers)
	env.setString(EnvErrorStrategy, &cfg.ErrorStrategy)
	env.setString(EnvOutputDir, &cfg.OutputDir)
	env.setString(EnvLogFile, &cfg.LogFile)

	// The generic names are honored for the log settings, as slogobs does.
	if !env.setString(EnvLogLevel, &cfg.LogLevel) {
		env.setString("LOG_LEVEL", &cfg.LogLevel)
	}
	if !env.setString(EnvLogFormat, &cfg.LogFormat) {
		env.setString("LOG_FORMAT", &cfg.LogFormat)
	}

	return errors.Join(env.problems...)
}

type envReader struct {
	lookup   func(string) (string, bool)
	problems []error
}

func (env *envReader) value(name string) (string, bool) {
	value, ok := env.lookup(name)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (env *envReader) setString(name string, target *string) bool {
	value, ok := env.value(name)
	if ok {
		*target = value
	}
	return ok
}

func (env *envReader) setInt(name string, target *int) {
	value, ok := env.value(name)
	if !ok {
		return
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		env.problems = append(env.problems, &FieldError{Field: name, Reason: "must be an integer, got " + strconv.Quote(value)})
		return
	}
	*target = parsed
}

func (env *envReader) setFloat(name string, target *float64) {
	value, ok := env.value(name)
	if !ok {
		return
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		env.problems = append(env.problems, &FieldError{Field: name, Reason: "must be a number, got " + strconv.Quote(value)})
		return
	}
	*target = parsed
}

func (env *envReader) setBool(name string, target *bool) {
	value, ok := env.value(name)
	if !ok {
		return
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		env.problems = append(env.problems, &FieldError{Field: name, Reason: "must be a boolean, got " + strconv.Quote(value)})
		return
	}
	*target = parsed
}

// setDuration accepts Go durations ("90s") or a bare number of seconds.
func (env *envReader) setDuration(name string, target *time.Duration) {
	value, ok := env.value(name)
	if !ok {
		return
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		*target = time.Duration(seconds * float64(time.Second))
		return
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		env.problems = append(env.problems, &FieldError{Field: name, Reason: "must be a duration, got " + strconv.Quote(value)})
		return
	}
	*target = parsed
}
