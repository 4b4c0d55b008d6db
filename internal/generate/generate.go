// Package generate derives constraints from story text through the oracle.
// Generation is advisory: every failure degrades to an empty result.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"plotpact/internal/metrics"
	"plotpact/internal/oracle"
	"plotpact/internal/story"
)

type Request struct {
	// StoryText is the ordered story so far, premise first.
	StoryText []string
	// Existing constraints are shown to the oracle to avoid duplicates.
	Existing []story.Constraint
	// Structure, when set, asks for exactly one constraint of this shape.
	Structure *story.Structure
}

type Generator struct {
	oracle  oracle.Oracle
	logger  *slog.Logger
	metrics *metrics.Recorder
}

func New(o oracle.Oracle, logger *slog.Logger, m *metrics.Recorder) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{oracle: o, logger: logger, metrics: m}
}

// Generate never fails. An oracle error or a malformed response yields an
// empty, non-nil slice.
func (g *Generator) Generate(ctx context.Context, req Request) []story.Constraint {
	if len(req.StoryText) == 0 {
		return []story.Constraint{}
	}
	constraints, err := g.generate(ctx, req)
	if err != nil {
		g.logger.Warn("constraint generation failed, continuing without new constraints",
			slog.String("error", err.Error()))
		g.metrics.Generation("failed")
		return []story.Constraint{}
	}
	if len(constraints) == 0 {
		g.metrics.Generation("empty")
	} else {
		g.metrics.Generation("ok")
	}
	return constraints
}

type response struct {
	Constraints json.RawMessage `json:"constraints"`
}

type wireConstraint struct {
	Function    string `json:"function"`
	Type        string `json:"type"`
	Flexibility string `json:"flexibility"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
	Examples    struct {
		Valid   []string `json:"valid"`
		Invalid []string `json:"invalid"`
	} `json:"examples"`
}

func (g *Generator) generate(ctx context.Context, req Request) ([]story.Constraint, error) {
	var resp response
	err := oracle.CompleteJSON(ctx, g.oracle, oracle.Request{
		System: systemPrompt,
		User:   buildUserPrompt(req),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Constraints) == 0 {
		return nil, fmt.Errorf("response has no constraints key")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(resp.Constraints, &items); err != nil {
		return nil, fmt.Errorf("constraints is not an array: %w", err)
	}

	seen := make(map[string]struct{}, len(req.Existing)+len(items))
	for _, c := range req.Existing {
		seen[descriptionKey(c.Description)] = struct{}{}
	}

	out := make([]story.Constraint, 0, len(items))
	for i, raw := range items {
		var w wireConstraint
		if err := json.Unmarshal(raw, &w); err != nil {
			g.logger.Warn("dropping malformed constraint", slog.Int("index", i), slog.String("error", err.Error()))
			continue
		}
		c := toConstraint(w)
		if req.Structure != nil {
			c.Function = req.Structure.Function
			c.Type = req.Structure.Type
			c.Flexibility = req.Structure.Flexibility
		}
		if err := c.Validate(); err != nil {
			g.logger.Warn("dropping invalid constraint", slog.Int("index", i), slog.String("error", err.Error()))
			continue
		}
		key := descriptionKey(c.Description)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
		if req.Structure != nil {
			break
		}
	}
	return out, nil
}

func toConstraint(w wireConstraint) story.Constraint {
	examples := story.Examples{Valid: w.Examples.Valid, Invalid: w.Examples.Invalid}
	if examples.Valid == nil {
		examples.Valid = []string{}
	}
	if examples.Invalid == nil {
		examples.Invalid = []string{}
	}
	return story.Constraint{
		ID:          story.NewConstraintID(),
		Function:    story.Function(normalizeEnum(w.Function)),
		Type:        story.ConstraintType(normalizeEnum(w.Type)),
		Flexibility: story.Flexibility(normalizeEnum(w.Flexibility)),
		Description: strings.TrimSpace(w.Description),
		Reason:      strings.TrimSpace(w.Reason),
		Examples:    examples,
	}
}

// normalizeEnum maps "Faux Fixed" and "faux_fixed" to "faux-fixed".
func normalizeEnum(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.NewReplacer(" ", "-", "_", "-").Replace(v)
}

func descriptionKey(d string) string {
	return strings.ToLower(strings.Join(strings.Fields(d), " "))
}
