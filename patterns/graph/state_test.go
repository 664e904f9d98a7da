package graph

import (
	"strings"
	"testing"
)

// TestStateClone verifies clones are independent maps.
func TestStateClone(testCase *testing.T) {
	var nilState State
	if clone := nilState.Clone(); clone == nil || len(clone) != 0 {
		testCase.Errorf("expected empty non-nil clone, got %v", clone)
	}

	original := State{"a": 1}
	clone := original.Clone()
	clone["a"] = 2
	if original["a"] != 1 {
		testCase.Error("clone shares storage with the original")
	}
}

// TestKey verifies typed access to state fields.
func TestKey(testCase *testing.T) {
	title := NewKey[string]("title")
	state := State{"title": "Go", "count": 3}

	if title.Name() != "title" {
		testCase.Errorf("unexpected name %q", title.Name())
	}
	if value, ok := title.Get(state); !ok || value != "Go" {
		testCase.Errorf("expected Go, got %q (%v)", value, ok)
	}

	count := NewKey[string]("count")
	if _, ok := count.Get(state); ok {
		testCase.Error("expected type mismatch to report false")
	}
	if count.Value(state) != "" {
		testCase.Error("expected zero value on mismatch")
	}

	update := Update{}
	title.Set(update, "Rust")
	if update["title"] != "Rust" {
		testCase.Errorf("expected update to hold Rust, got %v", update["title"])
	}
}

// TestAppendReducer covers the accepted current and update shapes.
func TestAppendReducer(testCase *testing.T) {
	reducer := AppendReducer[string]()

	tests := []struct {
		name    string
		current any
		update  any
		want    []string
		wantErr string
	}{
		{name: "nil current, slice update", current: nil, update: []string{"a"}, want: []string{"a"}},
		{name: "append slice", current: []string{"a"}, update: []string{"b", "c"}, want: []string{"a", "b", "c"}},
		{name: "append single", current: []string{"a"}, update: "b", want: []string{"a", "b"}},
		{name: "nil update", current: []string{"a"}, update: nil, want: []string{"a"}},
		{name: "bad current", current: 3, update: "b", wantErr: "current value"},
		{name: "bad update", current: nil, update: 3, wantErr: "update value"},
	}

	for _, tt := range tests {
		testCase.Run(tt.name, func(subTest *testing.T) {
			got, err := reducer(tt.current, tt.update)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					subTest.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				subTest.Fatalf("unexpected error: %v", err)
			}
			typed := got.([]string)
			if strings.Join(typed, ",") != strings.Join(tt.want, ",") {
				subTest.Errorf("expected %v, got %v", tt.want, typed)
			}
		})
	}
}

// TestAppendReducer_DoesNotAlias verifies the merged slice is freshly allocated.
func TestAppendReducer_DoesNotAlias(testCase *testing.T) {
	current := make([]string, 1, 10)
	current[0] = "a"

	merged, err := AppendReducer[string]()(current, "b")
	if err != nil {
		testCase.Fatalf("unexpected error: %v", err)
	}
	typed := merged.([]string)
	typed[0] = "changed"
	if current[0] != "a" {
		testCase.Error("merged slice aliases the current value")
	}
}

// TestApplyUpdate verifies default replace semantics and reducer dispatch.
func TestApplyUpdate(testCase *testing.T) {
	state := State{"title": "old", "sections": []string{"a"}}
	reducers := map[string]Reducer{"sections": AppendReducer[string]()}

	next, err := applyUpdate(state, Update{"title": "new", "sections": []string{"b"}}, reducers)
	if err != nil {
		testCase.Fatalf("unexpected error: %v", err)
	}
	if next["title"] != "new" {
		testCase.Errorf("expected replaced title, got %v", next["title"])
	}
	if strings.Join(next["sections"].([]string), ",") != "a,b" {
		testCase.Errorf("expected appended sections, got %v", next["sections"])
	}
	if state["title"] != "old" {
		testCase.Error("input state was modified")
	}

	same, err := applyUpdate(state, nil, reducers)
	if err != nil || same["title"] != "old" {
		testCase.Errorf("empty update should be a no-op, got %v %v", same, err)
	}
}

// TestReplaceReducer verifies the update always wins.
func TestReplaceReducer(testCase *testing.T) {
	got, err := ReplaceReducer("old", "new")
	if err != nil || got != "new" {
		testCase.Errorf("expected new, got %v %v", got, err)
	}
}
