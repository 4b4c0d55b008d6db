package story

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	ErrInvalidState   = errors.New("operation not allowed in current story state")
	ErrStoryEnded     = fmt.Errorf("%w: story has ended", ErrInvalidState)
	ErrPlotTooShort   = errors.New("plot is too short")
	ErrTitleRequired  = errors.New("title is required")
	ErrEmptyCandidate = errors.New("candidate text is empty")
)

func NewSession(now time.Time) *Session {
	return &Session{
		ID:               uuid.NewString(),
		Lifecycle:        LifecycleCollectingPlot,
		Paragraphs:       []string{},
		Constraints:      []Constraint{},
		NewConstraints:   []Constraint{},
		ViolationHistory: []ViolationState{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// CheckActivation reports whether title and plot are enough to start a
// story. It has no side effects so callers can run it before any
// generation call.
func (s *Session) CheckActivation(title, plot string, minPlotLength int) error {
	if s.Lifecycle != LifecycleCollectingPlot {
		return fmt.Errorf("%w: cannot activate a %s story", ErrInvalidState, s.Lifecycle)
	}
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(plot)); n < minPlotLength {
		return fmt.Errorf("%w: %d characters, need at least %d", ErrPlotTooShort, n, minPlotLength)
	}
	return nil
}

func (s *Session) Activate(title, plot string, minPlotLength int, batch []Constraint) error {
	if err := s.CheckActivation(title, plot, minPlotLength); err != nil {
		return err
	}
	s.Title = strings.TrimSpace(title)
	s.Plot = strings.TrimSpace(plot)
	s.Lifecycle = LifecycleActive
	s.MergeConstraints(batch)
	return nil
}

// CheckWritable reports whether paragraphs or constraints may change.
func (s *Session) CheckWritable() error {
	switch s.Lifecycle {
	case LifecycleActive:
		return nil
	case LifecycleEnded:
		return ErrStoryEnded
	default:
		return fmt.Errorf("%w: story is still collecting its plot", ErrInvalidState)
	}
}

func (s *Session) Accept(text string) {
	s.Paragraphs = append(s.Paragraphs, text)
}

func (s *Session) Reject(text string, violations []Violation) {
	s.ViolationHistory = append(s.ViolationHistory, ViolationState{
		SentContent: text,
		Violations:  append([]Violation(nil), violations...),
	})
}

// MergeConstraints appends batch to the full set and makes batch the whole
// of NewConstraints, even when batch is empty.
func (s *Session) MergeConstraints(batch []Constraint) {
	seen := make(map[string]struct{}, len(s.Constraints))
	for _, c := range s.Constraints {
		seen[c.ID] = struct{}{}
	}
	fresh := make([]Constraint, 0, len(batch))
	for _, c := range batch {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		s.Constraints = append(s.Constraints, c)
		fresh = append(fresh, c)
	}
	s.NewConstraints = fresh
}

// ClearNewConstraints is used when a generation round produced nothing.
func (s *Session) ClearNewConstraints() {
	s.NewConstraints = []Constraint{}
}

func (s *Session) RemoveConstraint(id string) int {
	match := func(c Constraint) bool { return c.ID == id }
	removed := 0
	s.Constraints, removed = removeWhere(s.Constraints, match)
	s.NewConstraints, _ = removeWhere(s.NewConstraints, match)
	return removed
}

// RemoveConstraintsByDescription drops every constraint whose description
// matches exactly after trimming. Violation history is left alone.
func (s *Session) RemoveConstraintsByDescription(description string) int {
	want := strings.TrimSpace(description)
	match := func(c Constraint) bool { return strings.TrimSpace(c.Description) == want }
	removed := 0
	s.Constraints, removed = removeWhere(s.Constraints, match)
	s.NewConstraints, _ = removeWhere(s.NewConstraints, match)
	return removed
}

func removeWhere(items []Constraint, match func(Constraint) bool) ([]Constraint, int) {
	kept := make([]Constraint, 0, len(items))
	for _, c := range items {
		if !match(c) {
			kept = append(kept, c)
		}
	}
	return kept, len(items) - len(kept)
}

// ReachedParagraphCap is false when maxParagraphs is zero.
func (s *Session) ReachedParagraphCap(maxParagraphs int) bool {
	return maxParagraphs > 0 && len(s.Paragraphs) >= maxParagraphs
}

func (s *Session) End() {
	s.Lifecycle = LifecycleEnded
}

// StoryText is the premise followed by every accepted paragraph.
func (s *Session) StoryText() []string {
	text := make([]string, 0, len(s.Paragraphs)+1)
	if s.Plot != "" {
		text = append(text, s.Plot)
	}
	return append(text, s.Paragraphs...)
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Paragraphs = append([]string{}, s.Paragraphs...)
	out.Constraints = cloneConstraints(s.Constraints)
	out.NewConstraints = cloneConstraints(s.NewConstraints)
	out.ViolationHistory = make([]ViolationState, 0, len(s.ViolationHistory))
	for _, vs := range s.ViolationHistory {
		out.ViolationHistory = append(out.ViolationHistory, ViolationState{
			SentContent: vs.SentContent,
			Violations:  append([]Violation{}, vs.Violations...),
		})
	}
	return &out
}

func cloneConstraints(in []Constraint) []Constraint {
	out := make([]Constraint, 0, len(in))
	for _, c := range in {
		c.Examples = Examples{
			Valid:   append([]string{}, c.Examples.Valid...),
			Invalid: append([]string{}, c.Examples.Invalid...),
		}
		out = append(out, c)
	}
	return out
}

// Normalize replaces nil slices with empty ones after decoding.
func (s *Session) Normalize() {
	if s.Paragraphs == nil {
		s.Paragraphs = []string{}
	}
	if s.Constraints == nil {
		s.Constraints = []Constraint{}
	}
	if s.NewConstraints == nil {
		s.NewConstraints = []Constraint{}
	}
	if s.ViolationHistory == nil {
		s.ViolationHistory = []ViolationState{}
	}
	for i := range s.ViolationHistory {
		if s.ViolationHistory[i].Violations == nil {
			s.ViolationHistory[i].Violations = []Violation{}
		}
	}
}
