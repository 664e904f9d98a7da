package slogobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/mattn/go-isatty"
)

// Handler is a slog.Handler rendering records in one of the Format layouts.
// Attribute keys are sorted so output is stable across runs.
type Handler struct {
	format Format
	level  slog.Leveler
	output io.Writer
	colors bool
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	Format Format
	Level  slog.Leveler
	Output io.Writer
	Colors bool
}

// NewHandler creates a new Handler with the given options.
func NewHandler(opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	format := opts.Format
	if format == "" {
		format = FormatCompact
	}
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}

	colors := opts.Colors
	if !colors && format != FormatJSON {
		if file, ok := output.(*os.File); ok {
			colors = isTerminal(file)
		}
	}

	return &Handler{
		format: format,
		level:  level,
		output: output,
		colors: colors,
		mu:     &sync.Mutex{},
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes a log record.
func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	attrs := h.collectAttrs(record)

	var line []byte
	var err error
	switch h.format {
	case FormatJSON:
		line, err = h.renderJSON(record, attrs)
	case FormatPretty:
		line = h.renderPretty(record, attrs)
	default:
		line = h.renderCompact(record, attrs)
	}
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.output.Write(line)
	return err
}

// WithAttrs returns a new Handler with additional attributes.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup returns a new Handler with a group name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func (h *Handler) renderCompact(record slog.Record, attrs map[string]any) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, record.Time.Format("2006-01-02 15:04:05")...)
	buf = append(buf, ' ')
	buf = h.appendLevel(buf, record.Level, "%5s")
	buf = append(buf, ' ')
	buf = append(buf, record.Message...)

	if len(attrs) > 0 {
		encoded, err := json.Marshal(attrs)
		if err != nil {
			buf = append(buf, " [json-error]"...)
		} else {
			buf = append(buf, " -> "...)
			buf = append(buf, encoded...)
		}
	}
	return append(buf, '\n')
}

func (h *Handler) renderPretty(record slog.Record, attrs map[string]any) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, '[')
	buf = append(buf, record.Time.Format("2006-01-02 15:04:05")...)
	buf = append(buf, "] "...)
	buf = h.appendLevel(buf, record.Level, "%-5s")
	buf = append(buf, " | "...)
	buf = append(buf, record.Message...)
	buf = append(buf, '\n')

	for _, key := range sortedKeys(attrs) {
		buf = append(buf, fmt.Sprintf("  - %s = %v\n", key, attrs[key])...)
	}
	return buf
}

func (h *Handler) renderJSON(record slog.Record, attrs map[string]any) ([]byte, error) {
	data := make(map[string]any, len(attrs)+3)
	for key, value := range attrs {
		data[key] = value
	}
	data["time"] = record.Time.Format("2006-01-02T15:04:05.000Z07:00")
	data["level"] = levelString(record.Level)
	data["msg"] = record.Message

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(encoded, '\n'), nil
}

func (h *Handler) appendLevel(buf []byte, level slog.Level, layout string) []byte {
	label := fmt.Sprintf(layout, levelString(level))
	if !h.colors {
		return append(buf, label...)
	}
	buf = append(buf, colorForLevel(level)...)
	buf = append(buf, label...)
	return append(buf, colorReset...)
}

// collectAttrs merges handler and record attributes, prefixing group names.
func (h *Handler) collectAttrs(record slog.Record) map[string]any {
	attrs := make(map[string]any, len(h.attrs)+record.NumAttrs())
	for _, attr := range h.attrs {
		h.addAttr(attrs, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		h.addAttr(attrs, attr)
		return true
	})
	return attrs
}

func (h *Handler) addAttr(attrs map[string]any, attr slog.Attr) {
	key := attr.Key
	for index := len(h.groups) - 1; index >= 0; index-- {
		key = h.groups[index] + "." + key
	}

	value := attr.Value.Resolve()
	switch value.Kind() {
	case slog.KindDuration:
		attrs[key] = value.Duration().String()
	case slog.KindTime:
		attrs[key] = value.Time().Format("2006-01-02T15:04:05Z07:00")
	default:
		attrs[key] = value.Any()
	}
}

func sortedKeys(attrs map[string]any) []string {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

func colorForLevel(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return colorGray
	case level < slog.LevelInfo:
		return colorBlue
	case level < slog.LevelWarn:
		return colorGreen
	case level < slog.LevelError:
		return colorYellow
	default:
		return colorRed
	}
}

// isTerminal reports whether f is an interactive terminal, Cygwin and
// MSYS ptys included.
func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
