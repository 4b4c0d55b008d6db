package verify

import (
	"encoding/json"
	"strings"
)

const systemPrompt = `You are a narrative consistency verifier for a collaborative story.
Decide whether the CANDIDATE paragraph can follow the STORY SO FAR under the CONSTRAINTS.

The bar for acceptance is deliberately low. Accept any continuation that could plausibly be
reconciled with the story and the constraints, even if it changes direction sharply.
Reject only when the candidate is flatly incompatible with a "fixed" constraint, or contradicts an
established concrete fact with no narrative mechanism (for example a living character is dead
without explanation). "faux-fixed" and "flexible" constraints may be bent when the text offers a reason.

Respond with a single JSON object and nothing else:
{"isValid": true|false, "violations": [{"constraintType": "<the constraint that was broken>", "explanation": "<why>"}]}
When isValid is true, violations must be an empty array.`

type promptConstraint struct {
	Function    string `json:"function"`
	Type        string `json:"type"`
	Flexibility string `json:"flexibility"`
	Description string `json:"description"`
}

func buildUserPrompt(req Request) string {
	constraints := make([]promptConstraint, 0, len(req.Constraints))
	for _, c := range req.Constraints {
		constraints = append(constraints, promptConstraint{
			Function:    string(c.Function),
			Type:        string(c.Type),
			Flexibility: string(c.Flexibility),
			Description: c.Description,
		})
	}
	serialized, _ := json.MarshalIndent(constraints, "", "  ")

	var b strings.Builder
	b.WriteString("STORY SO FAR:\n")
	b.WriteString(strings.Join(req.Context, "\n\n"))
	b.WriteString("\n\nCONSTRAINTS:\n")
	b.Write(serialized)
	b.WriteString("\n\nCANDIDATE:\n")
	b.WriteString(req.Candidate)
	return b.String()
}
