// Package continuation asks the oracle for the co-author's next paragraph.
package continuation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"plotpact/internal/oracle"
	"plotpact/internal/story"
)

const systemPrompt = `You are a co-author continuing a collaborative story one paragraph at a time.
Write the next paragraph only. Stay consistent with the story so far and respect every constraint.
Keep it under 120 words and leave room for the other author to respond.
Set "storyComplete" to true only when this paragraph brings the story to a natural ending.

Respond with a single JSON object and nothing else:
{"paragraph": "...", "storyComplete": false}`

type Result struct {
	Paragraph     string
	StoryComplete bool
}

type Writer struct {
	oracle oracle.Oracle
	logger *slog.Logger
}

func New(o oracle.Oracle, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{oracle: o, logger: logger}
}

type response struct {
	Paragraph     string `json:"paragraph"`
	StoryComplete bool   `json:"storyComplete"`
}

// Next returns an error when the oracle fails or returns neither a paragraph
// nor an ending. An ending may come without a paragraph.
func (w *Writer) Next(ctx context.Context, storyText []string, constraints []story.Constraint) (Result, error) {
	var resp response
	err := oracle.CompleteJSON(ctx, w.oracle, oracle.Request{
		System: systemPrompt,
		User:   buildUserPrompt(storyText, constraints),
	}, &resp)
	if err != nil {
		return Result{}, fmt.Errorf("continuing story: %w", err)
	}
	paragraph := strings.TrimSpace(resp.Paragraph)
	if paragraph == "" && !resp.StoryComplete {
		return Result{}, fmt.Errorf("continuing story: oracle returned an empty paragraph")
	}
	return Result{Paragraph: paragraph, StoryComplete: resp.StoryComplete}, nil
}

func buildUserPrompt(storyText []string, constraints []story.Constraint) string {
	var b strings.Builder
	b.WriteString("STORY SO FAR:\n")
	b.WriteString(strings.Join(storyText, "\n\n"))
	if len(constraints) > 0 {
		descriptions := make([]string, 0, len(constraints))
		for _, c := range constraints {
			descriptions = append(descriptions, c.Label())
		}
		encoded, _ := json.Marshal(descriptions)
		b.WriteString("\n\nCONSTRAINTS:\n")
		b.Write(encoded)
	}
	return b.String()
}
