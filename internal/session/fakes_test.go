package session

import (
	"context"
	"sync"

	"plotpact/internal/continuation"
	"plotpact/internal/generate"
	"plotpact/internal/story"
	"plotpact/internal/verify"
)

type fakeGenerator struct {
	mu       sync.Mutex
	batches  [][]story.Constraint
	requests []generate.Request
}

func (g *fakeGenerator) Generate(ctx context.Context, req generate.Request) []story.Constraint {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if len(g.batches) == 0 {
		return []story.Constraint{}
	}
	batch := g.batches[0]
	g.batches = g.batches[1:]
	return batch
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func (g *fakeGenerator) last() generate.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

type fakeVerifier struct {
	mu       sync.Mutex
	results  []verify.Result
	requests []verify.Request
}

func (v *fakeVerifier) Verify(ctx context.Context, req verify.Request) verify.Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.requests = append(v.requests, req)
	if len(v.results) == 0 {
		return verify.Accepted()
	}
	r := v.results[0]
	v.results = v.results[1:]
	return r
}

func (v *fakeVerifier) calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.requests)
}

type fakeWriter struct {
	result continuation.Result
	err    error
	calls  int
}

func (w *fakeWriter) Next(ctx context.Context, storyText []string, constraints []story.Constraint) (continuation.Result, error) {
	w.calls++
	return w.result, w.err
}

func constraint(id, description string, flex story.Flexibility) story.Constraint {
	return story.Constraint{
		ID:          id,
		Function:    story.FunctionFocusing,
		Type:        story.TypeAnchor,
		Flexibility: flex,
		Description: description,
		Reason:      "established in the plot",
		Examples:    story.Examples{Valid: []string{}, Invalid: []string{}},
	}
}
