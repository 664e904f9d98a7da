package client

import (
	"context"
	"fmt"

	"github.com/leofalp/draftly/core/parse"
	"github.com/leofalp/draftly/internal/jsonschema"
)

// CompleteStructured sends req as a structured request whose shape is the
// JSON Schema of T, then parses the answer. A response that cannot be read as
// T fails with an error matching parse.ErrMalformedStructuredOutput.
//
//	type decision struct {
//	    NeedsResearch bool `json:"needs_research"`
//	}
//	d, err := client.CompleteStructured[decision](ctx, c, req)
func CompleteStructured[T any](ctx context.Context, c *Client, req CompletionRequest) (T, error) {
	var zero T

	schema, err := jsonschema.GenerateJSONSchema[T]()
	if err != nil {
		return zero, fmt.Errorf("client: build response shape: %w", err)
	}
	shape, err := schema.JsonString(true)
	if err != nil {
		return zero, err
	}

	req.Structured = true
	req.Shape = shape

	raw, err := c.Complete(ctx, req)
	if err != nil {
		return zero, err
	}
	return parse.ParseStructured[T](raw)
}
