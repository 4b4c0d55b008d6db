package generate

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You extract story constraints for a collaborative fiction game.
A constraint is a rule later paragraphs must respect. Keep every constraint broad and lenient:
setting, era, tone, and character traits. Never encode a specific plot branch or a future event.

Classify each constraint:
- function: "focusing" (mandates an element) or "exclusionary" (forbids a direction)
- type: "channel" (broad thematic or setting guidance) or "anchor" (a concrete element that must appear)
- flexibility: "fixed" (never renegotiable), "faux-fixed" (looks rigid but can be justified away), or "flexible" (open to reinterpretation)

Respond with a single JSON object and nothing else:
{"constraints": [{"function": "...", "type": "...", "flexibility": "...", "description": "...", "reason": "...", "examples": {"valid": ["..."], "invalid": ["..."]}}]}
Return {"constraints": []} when the text warrants no new constraints.`

func buildUserPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("STORY SO FAR:\n")
	for i, p := range req.StoryText {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, p)
	}

	if len(req.Existing) > 0 {
		b.WriteString("\nEXISTING CONSTRAINTS (do not repeat these):\n")
		for _, c := range req.Existing {
			fmt.Fprintf(&b, "- %s\n", c.Label())
		}
	}

	if req.Structure != nil {
		s, _ := json.Marshal(req.Structure)
		fmt.Fprintf(&b, "\nCreate exactly one new constraint with this structure: %s\n", s)
	} else {
		b.WriteString("\nDerive any new constraints the latest text establishes.\n")
	}
	return b.String()
}
