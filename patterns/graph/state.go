package graph

import (
	"fmt"
	"maps"
)

// State is the shared record that flows through a run. Nodes receive a
// snapshot and must not mutate it; they describe changes with an Update.
type State map[string]any

// Update is a partial state produced by a node. Each field is folded into
// the running State with the reducer registered for it (replace by default).
type Update map[string]any

// Clone returns a shallow copy of the state. A nil state clones to an empty one.
func (state State) Clone() State {
	if state == nil {
		return State{}
	}
	return maps.Clone(state)
}

// Reducer combines the current value of a field with a value from an update.
// current is nil when the field has not been set yet.
type Reducer func(current, update any) (any, error)

// ReplaceReducer is the default: the update wins.
func ReplaceReducer(_, update any) (any, error) {
	return update, nil
}

// AppendReducer returns a reducer for []T fields that appends instead of
// replacing. The update may be a []T or a single T. The result is always a
// fresh slice so snapshots handed to concurrent nodes never alias it.
func AppendReducer[T any]() Reducer {
	return func(current, update any) (any, error) {
		var existing []T
		if current != nil {
			typed, ok := current.([]T)
			if !ok {
				return nil, fmt.Errorf("append reducer: current value is %T, want %T", current, existing)
			}
			existing = typed
		}

		var extra []T
		switch value := update.(type) {
		case nil:
		case []T:
			extra = value
		case T:
			extra = []T{value}
		default:
			return nil, fmt.Errorf("append reducer: update value is %T, want %T or []%T", update, *new(T), *new(T))
		}

		merged := make([]T, 0, len(existing)+len(extra))
		merged = append(merged, existing...)
		merged = append(merged, extra...)
		return merged, nil
	}
}

// Key is a typed handle on a state field.
//
//	var Title = graph.NewKey[string]("title")
//	title, ok := Title.Get(input.State)
//	update := graph.Update{}
//	Title.Set(update, "Hello")
type Key[T any] struct {
	name string
}

// NewKey returns a key for the field called name.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the field name.
func (key Key[T]) Name() string { return key.name }

// Get reads the field from state. It reports false when the field is
// missing or holds a value of another type.
func (key Key[T]) Get(state State) (T, bool) {
	value, ok := state[key.name].(T)
	return value, ok
}

// Value reads the field from state, returning the zero value when absent.
func (key Key[T]) Value(state State) T {
	value, _ := key.Get(state)
	return value
}

// Set writes value into update.
func (key Key[T]) Set(update Update, value T) {
	update[key.name] = value
}

// applyUpdate folds update into state using the configured reducers and
// returns the new state. The input state is not modified.
func applyUpdate(state State, update Update, reducers map[string]Reducer) (State, error) {
	if len(update) == 0 {
		return state, nil
	}

	next := state.Clone()
	for field, value := range update {
		reducer, ok := reducers[field]
		if !ok {
			next[field] = value
			continue
		}
		merged, err := reducer(next[field], value)
		if err != nil {
			return nil, fmt.Errorf("reduce field %q: %w", field, err)
		}
		next[field] = merged
	}
	return next, nil
}
