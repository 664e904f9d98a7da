package parse

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/leofalp/draftly/internal/utils"
)

var (
	// ErrMalformedStructuredOutput is matched by every error ParseStructured returns.
	ErrMalformedStructuredOutput = errors.New("malformed structured output")

	// ErrTruncatedOutput is the cause of a MalformedOutputError whose document
	// stops before its brackets are closed.
	ErrTruncatedOutput = errors.New("structured output is truncated")
)

// MalformedOutputError carries the raw text that could not be interpreted.
type MalformedOutputError struct {
	Raw   string
	Cause error
}

func (e *MalformedOutputError) Error() string {
	preview := utils.TruncateString(e.Raw, 200)
	if e.Cause == nil {
		return fmt.Sprintf("%s: %q", ErrMalformedStructuredOutput, preview)
	}
	return fmt.Sprintf("%s: %v (raw: %q)", ErrMalformedStructuredOutput, e.Cause, preview)
}

func (e *MalformedOutputError) Is(target error) bool {
	return target == ErrMalformedStructuredOutput
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Cause
}

// StripCodeFences removes a surrounding markdown fence such as ```json ... ```
// and trims whitespace. Text without a leading fence is only trimmed.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if newline := strings.IndexByte(s, '\n'); newline >= 0 {
		// drop the info string, e.g. "json"
		if !strings.ContainsAny(s[:newline], "{[") {
			s = s[newline+1:]
		}
	} else {
		s = strings.TrimPrefix(s, "json")
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseStructured interprets raw as a JSON document of type T. T must be a
// struct, map or slice. Empty input, unparseable text and shape mismatches
// all yield a *MalformedOutputError. No schema validation is performed.
func ParseStructured[T any](raw string) (T, error) {
	var result T

	target := reflect.TypeFor[T]()
	switch target.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Pointer:
	default:
		return result, fmt.Errorf("parse: ParseStructured does not support %T", result)
	}
	for target.Kind() == reflect.Pointer {
		target = target.Elem()
	}

	opener := byte('{')
	if target.Kind() == reflect.Slice {
		opener = '['
	}

	cleaned := extractJSONCandidate(StripCodeFences(raw), opener)
	if cleaned == "" {
		return result, &MalformedOutputError{Raw: raw}
	}
	// jsonrepair closes dangling brackets, which would turn a cut-off
	// document into a shorter valid one.
	if truncated(cleaned) {
		return result, &MalformedOutputError{Raw: raw, Cause: ErrTruncatedOutput}
	}

	result, err := ParseStringAs[T](cleaned)
	if err != nil {
		return result, &MalformedOutputError{Raw: raw, Cause: err}
	}
	return result, nil
}

// extractJSONCandidate trims prose before the first opener ('{' or '[') and
// after the last matching closer. Text without the opener is returned
// unchanged.
func extractJSONCandidate(s string, opener byte) string {
	start := strings.IndexByte(s, opener)
	if start < 0 {
		return s
	}
	closer := byte('}')
	if opener == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}

// truncated reports whether s ends inside a string literal or with more
// brackets opened than closed outside one. Only depth is tracked; the kind
// of a closer is left to the decoder.
func truncated(s string) bool {
	var (
		depth    int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			if depth > 0 {
				depth--
			}
		}
	}
	return inString || depth > 0
}
