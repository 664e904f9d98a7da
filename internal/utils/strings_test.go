package utils

import (
	"strings"
	"testing"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "short string unchanged", input: "hello", maxLen: 10, want: "hello"},
		{name: "exact length unchanged", input: "hello", maxLen: 5, want: "hello"},
		{name: "long string truncated", input: "hello world", maxLen: 5, want: "hello... (truncated, total: 11 chars)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

// TestTruncateString_DefaultLength verifies that a non-positive limit falls
// back to DefaultMaxStringLength.
func TestTruncateString_DefaultLength(t *testing.T) {
	input := strings.Repeat("a", DefaultMaxStringLength+10)
	got := TruncateString(input, 0)
	if !strings.HasPrefix(got, strings.Repeat("a", DefaultMaxStringLength)+"...") {
		t.Errorf("expected truncation at default length, got %d chars", len(got))
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{name: "ascii", input: "abcdef", maxRunes: 3, want: "abc"},
		{name: "multibyte kept whole", input: "héllo", maxRunes: 2, want: "hé"},
		{name: "shorter than limit", input: "ab", maxRunes: 5, want: "ab"},
		{name: "zero limit", input: "abc", maxRunes: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateRunes(tt.input, tt.maxRunes); got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestJSONToString(t *testing.T) {
	if got := JSONToString(map[string]int{"a": 1}); got != `{"a":1}` {
		t.Errorf("compact JSON = %q", got)
	}
	if got := JSONToString(map[string]int{"a": 1}, true); got != "{\n  \"a\": 1\n}" {
		t.Errorf("indented JSON = %q", got)
	}
	if got := JSONToString(make(chan int)); !strings.Contains(got, "failed to marshal") {
		t.Errorf("expected marshal error string, got %q", got)
	}
}

func TestPtr(t *testing.T) {
	value := Ptr(42)
	if value == nil || *value != 42 {
		t.Errorf("Ptr(42) = %v", value)
	}
}
