package observability

import (
	"context"
	"testing"
)

// mockSpan is a no-op Span used to verify context propagation.
type mockSpan struct {
	name string
}

func (span *mockSpan) End()                                 {}
func (span *mockSpan) SetAttributes(_ ...Attribute)         {}
func (span *mockSpan) SetStatus(_ StatusCode, _ string)     {}
func (span *mockSpan) RecordError(_ error)                  {}
func (span *mockSpan) AddEvent(_ string, _ ...Attribute)    {}

// mockObserver is a no-op Provider used to verify context propagation.
type mockObserver struct{}

func (observer *mockObserver) StartSpan(ctx context.Context, name string, _ ...Attribute) (context.Context, Span) {
	return ctx, &mockSpan{name: name}
}
func (observer *mockObserver) Counter(_ string) Counter                        { return nil }
func (observer *mockObserver) Histogram(_ string) Histogram                    { return nil }
func (observer *mockObserver) Trace(_ context.Context, _ string, _ ...Attribute) {}
func (observer *mockObserver) Debug(_ context.Context, _ string, _ ...Attribute) {}
func (observer *mockObserver) Info(_ context.Context, _ string, _ ...Attribute)  {}
func (observer *mockObserver) Warn(_ context.Context, _ string, _ ...Attribute)  {}
func (observer *mockObserver) Error(_ context.Context, _ string, _ ...Attribute) {}

func TestSpanFromContext_Empty(t *testing.T) {
	if span := SpanFromContext(context.Background()); span != nil {
		t.Errorf("Expected nil span from empty context, got %v", span)
	}
}

func TestSpanFromContext_WithSpan(t *testing.T) {
	mock := &mockSpan{name: "test-span"}
	ctx := ContextWithSpan(context.Background(), mock)

	if span := SpanFromContext(ctx); span != mock {
		t.Errorf("Expected same span instance, got %v", span)
	}
}

// TestSpanFromContext_Nested verifies that the innermost span wins.
func TestSpanFromContext_Nested(t *testing.T) {
	outer := &mockSpan{name: "outer"}
	inner := &mockSpan{name: "inner"}

	ctx := ContextWithSpan(context.Background(), outer)
	ctx = ContextWithSpan(ctx, inner)

	if span := SpanFromContext(ctx); span != inner {
		t.Errorf("Expected inner span, got %v", span)
	}
}

func TestObserverFromContext(t *testing.T) {
	if provider := ObserverFromContext(context.Background()); provider != nil {
		t.Errorf("Expected nil observer from empty context, got %v", provider)
	}

	observer := &mockObserver{}
	ctx := ContextWithObserver(context.Background(), observer)
	if provider := ObserverFromContext(ctx); provider != observer {
		t.Errorf("Expected stored observer, got %v", provider)
	}
}

// TestContextKeys_Independent verifies that span and observer keys do not collide.
func TestContextKeys_Independent(t *testing.T) {
	ctx := ContextWithObserver(context.Background(), &mockObserver{})
	if span := SpanFromContext(ctx); span != nil {
		t.Errorf("Expected no span, got %v", span)
	}
}

func TestErrorAttribute(t *testing.T) {
	if attr := Error(nil); attr.Key != AttrError || attr.Value != "" {
		t.Errorf("Error(nil) = %+v", attr)
	}
	if attr := Error(context.Canceled); attr.Value != "context canceled" {
		t.Errorf("Error(context.Canceled) = %+v", attr)
	}
}
