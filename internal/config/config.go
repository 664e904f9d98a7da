// Package config loads and validates draftly settings.
//
// Settings are layered, lowest precedence first: built-in defaults, a YAML
// file, .env files and the process environment. Validate is meant to run
// before anything is built so a bad setting never fails a run halfway.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/leofalp/draftly/core/cost"
)

// DefaultFileNames are tried in the working directory when no config file is
// given explicitly.
var DefaultFileNames = []string{"draftly.yaml", "draftly.yml"}

// Cache backends.
const (
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
	CacheBackendMemory = "memory"
)

// Models names the completion model of each stage. Research is reported in
// the run metadata only; that stage calls the search service, not a model.
// Backup, when set, is tried once after a call on the primary model fails
// for good.
type Models struct {
	Router   string `yaml:"router"`
	Research string `yaml:"research"`
	Planner  string `yaml:"planner"`
	Writer   string `yaml:"writer"`
	Backup   string `yaml:"backup"`
}

// RetryConfig tunes the backoff between attempts.
type RetryConfig struct {
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// CacheConfig controls the evidence cache.
type CacheConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Backend  string  `yaml:"backend"`
	Dir      string  `yaml:"dir"`
	TTLHours float64 `yaml:"ttl_hours"`
}

// TTL returns the entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours * float64(time.Hour))
}

// Config is the complete draftly configuration.
type Config struct {
	// Credentials come from the environment only.
	OpenRouterAPIKey string `yaml:"-"`
	TavilyAPIKey     string `yaml:"-"`

	BaseURL            string                    `yaml:"base_url"`
	Models             Models                    `yaml:"models"`
	Temperature        float64                   `yaml:"temperature"`
	MaxTokens          int                       `yaml:"max_tokens"`
	MinSections        int                       `yaml:"min_sections"`
	MaxSections        int                       `yaml:"max_sections"`
	MaxRetries         int                       `yaml:"max_retries"`
	Retry              RetryConfig               `yaml:"retry"`
	RequestTimeout     time.Duration             `yaml:"request_timeout"`
	ResultsPerQuery    int                       `yaml:"results_per_query"`
	MaxResearchQueries int                       `yaml:"max_research_queries"`
	Cache              CacheConfig               `yaml:"cache"`
	MaxParallelWorkers int                       `yaml:"max_parallel_workers"`
	ErrorStrategy      string                    `yaml:"error_strategy"`
	OutputDir          string                    `yaml:"output_dir"`
	LogLevel           string                    `yaml:"log_level"`
	LogFormat          string                    `yaml:"log_format"`
	LogFile            string                    `yaml:"log_file"`
	Pricing            map[string]cost.ModelCost `yaml:"pricing"`
}

// Default returns the built-in settings. Credentials are left empty.
func Default() *Config {
	return &Config{
		BaseURL: "https://openrouter.ai/api/v1",
		Models: Models{
			Router:   "meta-llama/llama-3.3-70b-instruct",
			Research: "meta-llama/llama-3.3-70b-instruct",
			Planner:  "google/gemini-2.0-flash-001",
			Writer:   "google/gemini-2.0-flash-001",
		},
		Temperature: 0.7,
		MaxTokens:   4096,
		MinSections: 5,
		MaxSections: 9,
		MaxRetries:  2,
		Retry: RetryConfig{
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     8 * time.Second,
		},
		RequestTimeout:     60 * time.Second,
		ResultsPerQuery:    5,
		MaxResearchQueries: 5,
		Cache: CacheConfig{
			Enabled:  true,
			Backend:  CacheBackendFile,
			Dir:      ".cache",
			TTLHours: 24,
		},
		MaxParallelWorkers: 5,
		ErrorStrategy:      "fail_fast",
		OutputDir:          "generated_blogs",
		LogLevel:           "INFO",
		LogFormat:          "compact",
		LogFile:            "draftly.log",
	}
}

type loader struct {
	configFile string
	envFiles   []string
	lookupEnv  func(string) (string, bool)
}

// Option customizes Load.
type Option func(*loader)

// WithConfigFile reads path instead of searching DefaultFileNames. A missing
// explicit file is an error.
func WithConfigFile(path string) Option {
	return func(l *loader) {
		l.configFile = path
	}
}

// WithEnvFiles replaces the default ".env". Missing files are skipped.
func WithEnvFiles(paths ...string) Option {
	return func(l *loader) {
		l.envFiles = paths
	}
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(l *loader) {
		l.lookupEnv = lookup
	}
}

// Load builds a Config from defaults, the YAML file, .env files and the
// environment. The real environment always wins over .env values. Load only
// reports unreadable sources and malformed values; call Validate for range
// checks.
func Load(opts ...Option) (*Config, error) {
	l := &loader{
		envFiles:  []string{".env"},
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(l)
	}

	cfg := Default()
	if err := l.loadFile(cfg); err != nil {
		return nil, err
	}

	dotenv, err := l.readEnvFiles()
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if value, ok := l.lookupEnv(key); ok {
			return value, true
		}
		value, ok := dotenv[key]
		return value, ok
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *loader) loadFile(cfg *Config) error {
	if l.configFile != "" {
		data, err := os.ReadFile(l.configFile)
		if err != nil {
			return fmt.Errorf("config: read %s: %w", l.configFile, err)
		}
		return decodeYAML(l.configFile, data, cfg)
	}

	for _, name := range DefaultFileNames {
		data, err := os.ReadFile(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("config: read %s: %w", name, err)
		}
		return decodeYAML(name, data, cfg)
	}
	return nil
}

func decodeYAML(path string, data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// readEnvFiles merges the .env files; earlier files win, as with godotenv.Load.
func (l *loader) readEnvFiles() (map[string]string, error) {
	merged := map[string]string{}
	for _, path := range l.envFiles {
		values, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		for key, value := range values {
			if _, exists := merged[key]; !exists {
				merged[key] = value
			}
		}
	}
	return merged, nil
}
