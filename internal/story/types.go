package story

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Function says whether a constraint mandates an element or forbids a direction.
type Function string

const (
	FunctionFocusing     Function = "focusing"
	FunctionExclusionary Function = "exclusionary"
)

func (f Function) Valid() bool {
	return f == FunctionFocusing || f == FunctionExclusionary
}

// ConstraintType separates broad thematic guidance (channel) from concrete
// elements that must appear (anchor).
type ConstraintType string

const (
	TypeChannel ConstraintType = "channel"
	TypeAnchor  ConstraintType = "anchor"
)

func (t ConstraintType) Valid() bool {
	return t == TypeChannel || t == TypeAnchor
}

type Flexibility string

const (
	FlexibilityFixed     Flexibility = "fixed"
	FlexibilityFauxFixed Flexibility = "faux-fixed"
	FlexibilityFlexible  Flexibility = "flexible"
)

func (f Flexibility) Valid() bool {
	switch f {
	case FlexibilityFixed, FlexibilityFauxFixed, FlexibilityFlexible:
		return true
	}
	return false
}

type Examples struct {
	Valid   []string `json:"valid" bson:"valid"`
	Invalid []string `json:"invalid" bson:"invalid"`
}

// Constraint is a rule the narrative must respect. Constraints are never
// edited in place; a change is a delete followed by a new constraint.
type Constraint struct {
	ID          string         `json:"id" bson:"id"`
	Function    Function       `json:"function" bson:"function"`
	Type        ConstraintType `json:"type" bson:"type"`
	Flexibility Flexibility    `json:"flexibility" bson:"flexibility"`
	Description string         `json:"description" bson:"description"`
	Reason      string         `json:"reason" bson:"reason"`
	Examples    Examples       `json:"examples" bson:"examples"`
}

// Structure is the classification triple of a constraint.
type Structure struct {
	Function    Function       `json:"function" bson:"function"`
	Type        ConstraintType `json:"type" bson:"type"`
	Flexibility Flexibility    `json:"flexibility" bson:"flexibility"`
}

func (s Structure) Validate() error {
	if !s.Function.Valid() {
		return fmt.Errorf("invalid constraint function: %q", s.Function)
	}
	if !s.Type.Valid() {
		return fmt.Errorf("invalid constraint type: %q", s.Type)
	}
	if !s.Flexibility.Valid() {
		return fmt.Errorf("invalid constraint flexibility: %q", s.Flexibility)
	}
	return nil
}

func (c Constraint) Structure() Structure {
	return Structure{Function: c.Function, Type: c.Type, Flexibility: c.Flexibility}
}

func (c Constraint) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("constraint id is required")
	}
	if strings.TrimSpace(c.Description) == "" {
		return fmt.Errorf("constraint description is required")
	}
	return c.Structure().Validate()
}

// Label is the text recorded against a violation. Violations keep this
// snapshot rather than the constraint id.
func (c Constraint) Label() string {
	return fmt.Sprintf("%s %s (%s): %s", c.Flexibility, c.Type, c.Function, c.Description)
}

func NewConstraintID() string {
	return uuid.NewString()
}

type Violation struct {
	ConstraintType string `json:"constraintType" bson:"constraint_type"`
	Explanation    string `json:"explanation" bson:"explanation"`
}

// ViolationState records one rejected submission.
type ViolationState struct {
	SentContent string      `json:"sentContent" bson:"sent_content"`
	Violations  []Violation `json:"violations" bson:"violations"`
}

type Lifecycle string

const (
	LifecycleCollectingPlot Lifecycle = "collecting-plot"
	LifecycleActive         Lifecycle = "active"
	LifecycleEnded          Lifecycle = "ended"
)

func (l Lifecycle) Valid() bool {
	switch l {
	case LifecycleCollectingPlot, LifecycleActive, LifecycleEnded:
		return true
	}
	return false
}

type Session struct {
	ID               string           `json:"id" bson:"_id"`
	Title            string           `json:"title" bson:"title"`
	Plot             string           `json:"plot" bson:"plot"`
	Lifecycle        Lifecycle        `json:"lifecycle" bson:"lifecycle"`
	Paragraphs       []string         `json:"paragraphs" bson:"paragraphs"`
	Constraints      []Constraint     `json:"constraints" bson:"constraints"`
	NewConstraints   []Constraint     `json:"newConstraints" bson:"new_constraints"`
	ViolationHistory []ViolationState `json:"violationHistory" bson:"violation_history"`
	CreatedAt        time.Time        `json:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time        `json:"updatedAt" bson:"updated_at"`
}
