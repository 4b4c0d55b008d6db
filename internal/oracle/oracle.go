// Package oracle is the port to the external text-generation service used
// for constraint extraction, content verification and story continuation.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
)

// Request is a single-turn completion: a system instruction fixing the
// output schema plus one user message.
type Request struct {
	System string
	User   string
	// JSON asks the provider for a JSON object response when it supports it.
	JSON bool
}

type Oracle interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to Oracle.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// CompleteJSON runs req and decodes the first JSON object found in the
// response into v.
func CompleteJSON(ctx context.Context, o Oracle, req Request, v any) error {
	req.JSON = true
	text, err := o.Complete(ctx, req)
	if err != nil {
		return err
	}
	raw := ExtractJSON(text)
	if raw == "" {
		return fmt.Errorf("no JSON object in oracle response")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decoding oracle response: %w", err)
	}
	return nil
}
