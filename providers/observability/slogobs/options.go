package slogobs

import (
	"io"
	"log/slog"
	"os"
)

// Option configures New.
type Option func(*config)

type config struct {
	format Format
	level  slog.Level
	output io.Writer
	colors bool
}

// WithFormat selects the compact, pretty or json layout.
func WithFormat(format Format) Option {
	return func(c *config) { c.format = format }
}

// WithLevel drops entries below level.
func WithLevel(level slog.Level) Option {
	return func(c *config) { c.level = level }
}

// WithOutput sends entries to output instead of stderr. The CLI passes a
// writer teeing stderr and the log file.
func WithOutput(output io.Writer) Option {
	return func(c *config) { c.output = output }
}

// WithColors forces ANSI colors on. Without it colors are used only when the
// output is a terminal. The json format is never colored.
func WithColors(enabled bool) Option {
	return func(c *config) { c.colors = enabled }
}

// applyOptions starts from the environment defaults and applies opts in order.
func applyOptions(opts ...Option) *config {
	cfg := &config{
		format: GetFormatFromEnv(),
		level:  GetLogLevelFromEnv(),
		output: os.Stderr,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
