package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/leofalp/draftly/core/client"
	"github.com/leofalp/draftly/core/client/middleware"
	"github.com/leofalp/draftly/core/cost"
	"github.com/leofalp/draftly/internal/config"
	"github.com/leofalp/draftly/patterns/blog"
	"github.com/leofalp/draftly/patterns/graph"
	"github.com/leofalp/draftly/providers/ai/openai"
	"github.com/leofalp/draftly/providers/cache"
	"github.com/leofalp/draftly/providers/cache/filecache"
	"github.com/leofalp/draftly/providers/cache/memcache"
	"github.com/leofalp/draftly/providers/cache/sqlitecache"
	"github.com/leofalp/draftly/providers/observability/slogobs"
	"github.com/leofalp/draftly/providers/search"
	"github.com/leofalp/draftly/providers/search/tavily"
)

// sqliteCacheFile is the database name inside cache.dir.
const sqliteCacheFile = "evidence.db"

// app holds everything built from the configuration for one process.
type app struct {
	workflow *blog.Workflow
	closers  []io.Closer
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

func newApp(cfg *config.Config, stdout, stderr io.Writer) (*app, error) {
	a := &app{}

	observer, err := a.newObserver(cfg, stderr)
	if err != nil {
		return nil, err
	}

	completionClient, err := newClient(cfg, observer)
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := a.newCache(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var searcher search.Provider
	if cfg.TavilyAPIKey != "" {
		searcher = tavily.New(cfg.TavilyAPIKey, tavily.WithObserver(observer))
	} else {
		observer.Logger().Warn("TAVILY_API_KEY is not set, research will yield no evidence")
	}

	a.workflow, err = blog.New(blog.Dependencies{
		Client:   completionClient,
		Search:   searcher,
		Cache:    store,
		Observer: observer,
	}, blog.Options{
		Models: blog.Models{
			Router:   cfg.Models.Router,
			Research: cfg.Models.Research,
			Planner:  cfg.Models.Planner,
			Writer:   cfg.Models.Writer,
		},
		Temperature:        float32(cfg.Temperature),
		MaxTokens:          cfg.MaxTokens,
		MinSections:        cfg.MinSections,
		MaxSections:        cfg.MaxSections,
		ResultsPerQuery:    cfg.ResultsPerQuery,
		MaxResearchQueries: cfg.MaxResearchQueries,
		MaxParallelWorkers: cfg.MaxParallelWorkers,
		ErrorStrategy:      graph.ErrorStrategy(cfg.ErrorStrategy),
		Pricing:            cost.Pricing(cfg.Pricing),
		EventHandler:       progressPrinter(stdout),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// newObserver logs to stderr and, when log_file is set, to that file too.
func (a *app) newObserver(cfg *config.Config, stderr io.Writer) (*slogobs.Observer, error) {
	level, err := slogobs.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	output := stderr
	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.closers = append(a.closers, logFile)
		output = io.MultiWriter(stderr, logFile)
	}

	return slogobs.New(
		slogobs.WithFormat(slogobs.ParseFormat(cfg.LogFormat)),
		slogobs.WithLevel(level),
		slogobs.WithOutput(output),
	), nil
}

// newClient builds the completion client. Middlewares run outermost first:
// logging, then the backup-model fallback, then retries, each attempt
// bounded by the request timeout.
func newClient(cfg *config.Config, observer *slogobs.Observer) (*client.Client, error) {
	provider := openai.NewOpenAIProvider().
		WithAPIKey(cfg.OpenRouterAPIKey).
		WithBaseURL(cfg.BaseURL)

	middlewares := []client.MiddlewareConfig{
		middleware.NewLoggingMiddleware(observer.Logger(), middleware.LogLevelStandard),
	}
	if cfg.Models.Backup != "" {
		middlewares = append(middlewares, middleware.NewFallbackMiddleware(cfg.Models.Backup))
	}
	middlewares = append(middlewares,
		middleware.NewRetryMiddleware(middleware.RetryConfig{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.Retry.InitialBackoff,
			MaxBackoff:     cfg.Retry.MaxBackoff,
		}),
		middleware.NewTimeoutMiddleware(cfg.RequestTimeout),
	)

	return client.New(provider,
		client.WithMiddleware(middlewares...),
		client.WithObserver(observer),
		client.WithDefaultModel(cfg.Models.Writer),
	)
}

func (a *app) newCache(cfg *config.Config) (cache.Store, error) {
	if !cfg.Cache.Enabled {
		return cache.Disabled(), nil
	}

	ttl := cfg.Cache.TTL()
	switch cfg.Cache.Backend {
	case config.CacheBackendMemory:
		return memcache.New(ttl), nil
	case config.CacheBackendSQLite:
		if err := os.MkdirAll(cfg.Cache.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		store, err := sqlitecache.Open(filepath.Join(cfg.Cache.Dir, sqliteCacheFile), ttl)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	default:
		return filecache.New(cfg.Cache.Dir, ttl)
	}
}

// progressPrinter reports stage progress on stdout. Workers report
// concurrently, hence the lock.
func progressPrinter(w io.Writer) graph.EventHandler {
	var mu sync.Mutex
	return func(event graph.Event) {
		var line string
		switch event.Type {
		case graph.EventNodeCompleted:
			if event.NodeID == blog.NodeWorker {
				line = fmt.Sprintf("  section %d drafted (%s)", event.SendIndex+1, event.Duration.Round(time.Millisecond))
			} else {
				line = fmt.Sprintf("✓ %s (%s)", event.NodeID, event.Duration.Round(time.Millisecond))
			}
		case graph.EventFanOutStarted:
			line = fmt.Sprintf("→ drafting %d sections", event.Sends)
		case graph.EventNodeFailed:
			line = fmt.Sprintf("✗ %s: %v", event.NodeID, event.Err)
		default:
			return
		}

		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, line)
	}
}
