package story

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func testConstraint(id, description string) Constraint {
	return Constraint{
		ID:          id,
		Function:    FunctionFocusing,
		Type:        TypeAnchor,
		Flexibility: FlexibilityFixed,
		Description: description,
		Reason:      "established in the opening",
		Examples:    Examples{Valid: []string{"ok"}, Invalid: []string{"not ok"}},
	}
}

func activeSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(time.Unix(0, 0))
	if err := s.Activate("Dragonfall", strings.Repeat("p", 60), 50, nil); err != nil {
		t.Fatalf("activating session: %v", err)
	}
	return s
}

func TestCheckActivation(t *testing.T) {
	tests := []struct {
		name  string
		title string
		plot  string
		want  error
	}{
		{name: "valid", title: "Dragonfall", plot: strings.Repeat("a", 50)},
		{name: "plot one short", title: "Dragonfall", plot: strings.Repeat("a", 49), want: ErrPlotTooShort},
		{name: "whitespace does not count", title: "Dragonfall", plot: "   " + strings.Repeat("a", 48) + "   ", want: ErrPlotTooShort},
		{name: "multibyte runes", title: "Dragonfall", plot: strings.Repeat("é", 50)},
		{name: "missing title", title: "  ", plot: strings.Repeat("a", 60), want: ErrTitleRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(time.Now())
			err := s.CheckActivation(tt.title, tt.plot, 50)
			if tt.want == nil && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if s.Lifecycle != LifecycleCollectingPlot {
				t.Fatalf("check must not change lifecycle, got %s", s.Lifecycle)
			}
		})
	}
}

func TestActivate(t *testing.T) {
	t.Run("populates constraints", func(t *testing.T) {
		s := NewSession(time.Now())
		batch := []Constraint{testConstraint("a", "one"), testConstraint("b", "two"), testConstraint("c", "three")}
		if err := s.Activate("Title", strings.Repeat("x", 60), 50, batch); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.Lifecycle != LifecycleActive {
			t.Fatalf("expected active, got %s", s.Lifecycle)
		}
		if len(s.Constraints) != 3 || len(s.NewConstraints) != 3 {
			t.Fatalf("expected 3/3 constraints, got %d/%d", len(s.Constraints), len(s.NewConstraints))
		}
	})

	t.Run("twice is rejected", func(t *testing.T) {
		s := activeSession(t)
		err := s.Activate("Again", strings.Repeat("x", 60), 50, nil)
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})
}

func TestCheckWritable(t *testing.T) {
	s := NewSession(time.Now())
	if err := s.CheckWritable(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState while collecting plot, got %v", err)
	}
	s = activeSession(t)
	if err := s.CheckWritable(); err != nil {
		t.Fatalf("expected active story to be writable, got %v", err)
	}
	s.End()
	err := s.CheckWritable()
	if !errors.Is(err, ErrStoryEnded) || !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrStoryEnded wrapping ErrInvalidState, got %v", err)
	}
}

func TestMergeConstraints(t *testing.T) {
	s := activeSession(t)
	s.MergeConstraints([]Constraint{testConstraint("a", "one")})
	s.MergeConstraints([]Constraint{testConstraint("a", "one"), testConstraint("b", "two")})

	if got := len(s.Constraints); got != 2 {
		t.Fatalf("expected 2 constraints, got %d", got)
	}
	if len(s.NewConstraints) != 1 || s.NewConstraints[0].ID != "b" {
		t.Fatalf("expected only b as new, got %+v", s.NewConstraints)
	}

	s.MergeConstraints(nil)
	if s.NewConstraints == nil || len(s.NewConstraints) != 0 {
		t.Fatalf("expected empty non-nil new constraints, got %#v", s.NewConstraints)
	}
	if len(s.Constraints) != 2 {
		t.Fatalf("empty batch must not reset constraints")
	}
}

func TestRemoveConstraint(t *testing.T) {
	s := activeSession(t)
	s.MergeConstraints([]Constraint{testConstraint("a", "same"), testConstraint("b", "same"), testConstraint("c", "other")})
	s.Reject("bad text", []Violation{{ConstraintType: "fixed anchor (focusing): same", Explanation: "broke it"}})
	history := append([]ViolationState(nil), s.ViolationHistory...)

	if n := s.RemoveConstraint("a"); n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}
	once := append([]Constraint(nil), s.Constraints...)
	if n := s.RemoveConstraint("a"); n != 0 {
		t.Fatalf("expected idempotent delete, removed %d", n)
	}
	if !reflect.DeepEqual(once, s.Constraints) {
		t.Fatalf("second delete changed constraints: %+v", s.Constraints)
	}
	for _, c := range s.NewConstraints {
		if c.ID == "a" {
			t.Fatalf("expected a removed from new constraints")
		}
	}
	if !reflect.DeepEqual(history, s.ViolationHistory) {
		t.Fatalf("violation history must not change")
	}
}

func TestRemoveConstraintsByDescription(t *testing.T) {
	s := activeSession(t)
	s.MergeConstraints([]Constraint{testConstraint("a", "same"), testConstraint("b", " same "), testConstraint("c", "other")})

	if n := s.RemoveConstraintsByDescription("same"); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	once := append([]Constraint(nil), s.Constraints...)
	s.RemoveConstraintsByDescription("same")
	if !reflect.DeepEqual(once, s.Constraints) {
		t.Fatalf("expected idempotent delete")
	}
	if len(s.Constraints) != 1 || s.Constraints[0].ID != "c" {
		t.Fatalf("unexpected constraints: %+v", s.Constraints)
	}
	if len(s.NewConstraints) != 1 {
		t.Fatalf("expected new constraints filtered too, got %+v", s.NewConstraints)
	}
}

func TestReachedParagraphCap(t *testing.T) {
	s := activeSession(t)
	for i := 0; i < 9; i++ {
		s.Accept("p")
	}
	if s.ReachedParagraphCap(10) {
		t.Fatalf("9 paragraphs must not reach a cap of 10")
	}
	s.Accept("p")
	if !s.ReachedParagraphCap(10) {
		t.Fatalf("10 paragraphs must reach a cap of 10")
	}
	if s.ReachedParagraphCap(0) {
		t.Fatalf("zero cap disables the check")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := activeSession(t)
	s.MergeConstraints([]Constraint{testConstraint("a", "one")})
	s.Accept("first")
	s.Reject("bad", []Violation{{ConstraintType: "x", Explanation: "y"}})

	c := s.Clone()
	c.Paragraphs[0] = "changed"
	c.Constraints[0].Examples.Valid[0] = "changed"
	c.ViolationHistory[0].Violations[0].Explanation = "changed"

	if s.Paragraphs[0] != "first" || s.Constraints[0].Examples.Valid[0] != "ok" || s.ViolationHistory[0].Violations[0].Explanation != "y" {
		t.Fatalf("clone shares memory with original")
	}
}

func TestConstraintValidate(t *testing.T) {
	valid := testConstraint("a", "desc")
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	bad := valid
	bad.Flexibility = "rigid"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for flexibility")
	}

	bad = valid
	bad.Description = " "
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for description")
	}

	bad = valid
	bad.ID = ""
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for id")
	}
}

func TestStoryText(t *testing.T) {
	s := activeSession(t)
	s.Accept("one")
	got := s.StoryText()
	if len(got) != 2 || got[0] != s.Plot || got[1] != "one" {
		t.Fatalf("unexpected story text: %#v", got)
	}
}
