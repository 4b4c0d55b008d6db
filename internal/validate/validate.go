// Package validate checks a stored session for structural problems the
// state machine should never produce: bad enum values, duplicated or
// dangling constraints, and records that break lifecycle rules.
package validate

import (
	"context"
	"fmt"
	"strings"

	"plotpact/internal/story"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeEnumInvalid          = "enum_value_invalid"
	codeLifecycleInvalid     = "lifecycle_invalid"
	codeMissingID            = "missing_constraint_id"
	codeMissingDescription   = "missing_description"
	codeDuplicateID          = "duplicate_constraint_id"
	codeDuplicateDescription = "duplicate_description"
	codeUnknownNewConstraint = "new_constraint_not_in_set"
	codeParagraphsBeforePlot = "paragraphs_before_activation"
	codeMissingPlot          = "missing_plot"
	codeEmptyViolationRecord = "empty_violation_record"
	codeEmptyParagraph       = "empty_paragraph"
)

type Issue struct {
	Severity   Severity
	Code       string
	Message    string
	Constraint string
}

type Report struct {
	SessionID string
	Issues    []Issue
}

func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

func Run(ctx context.Context, loader SessionLoader, id string) (*Report, error) {
	if loader == nil {
		return nil, fmt.Errorf("session loader is required")
	}
	s, err := loader.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return Session(s), nil
}

func Session(s *story.Session) *Report {
	issues := make([]Issue, 0)
	issues = append(issues, validateLifecycle(s)...)
	issues = append(issues, validateConstraints(s.Constraints)...)
	issues = append(issues, validateNewConstraints(s)...)
	issues = append(issues, validateParagraphs(s.Paragraphs)...)
	issues = append(issues, validateViolationHistory(s.ViolationHistory)...)
	return &Report{SessionID: s.ID, Issues: issues}
}

func validateLifecycle(s *story.Session) []Issue {
	if !s.Lifecycle.Valid() {
		return []Issue{{
			Severity: SeverityError,
			Code:     codeLifecycleInvalid,
			Message:  fmt.Sprintf("lifecycle %q is not recognised", s.Lifecycle),
		}}
	}

	var issues []Issue
	if s.Lifecycle == story.LifecycleCollectingPlot && len(s.Paragraphs) > 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     codeParagraphsBeforePlot,
			Message:  fmt.Sprintf("%d paragraphs recorded before the plot was committed", len(s.Paragraphs)),
		})
	}
	if s.Lifecycle != story.LifecycleCollectingPlot && strings.TrimSpace(s.Plot) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeMissingPlot,
			Message:  fmt.Sprintf("%s story has no plot", s.Lifecycle),
		})
	}
	return issues
}

func validateConstraints(constraints []story.Constraint) []Issue {
	var issues []Issue
	ids := make(map[string]struct{}, len(constraints))
	descriptions := make(map[string]string, len(constraints))

	for i, c := range constraints {
		ref := c.ID
		if strings.TrimSpace(ref) == "" {
			ref = fmt.Sprintf("#%d", i)
			issues = append(issues, Issue{
				Severity:   SeverityError,
				Code:       codeMissingID,
				Message:    "constraint has no id",
				Constraint: ref,
			})
		} else {
			if _, exists := ids[c.ID]; exists {
				issues = append(issues, Issue{
					Severity:   SeverityError,
					Code:       codeDuplicateID,
					Message:    "constraint id appears more than once",
					Constraint: ref,
				})
			}
			ids[c.ID] = struct{}{}
		}

		issues = append(issues, validateEnumValues(c, ref)...)

		desc := strings.TrimSpace(c.Description)
		if desc == "" {
			issues = append(issues, Issue{
				Severity:   SeverityError,
				Code:       codeMissingDescription,
				Message:    "constraint has no description",
				Constraint: ref,
			})
			continue
		}
		key := strings.ToLower(desc)
		if first, exists := descriptions[key]; exists {
			issues = append(issues, Issue{
				Severity:   SeverityWarn,
				Code:       codeDuplicateDescription,
				Message:    fmt.Sprintf("description %q is shared with %s", desc, first),
				Constraint: ref,
			})
			continue
		}
		descriptions[key] = ref
	}
	return issues
}

func validateEnumValues(c story.Constraint, ref string) []Issue {
	var issues []Issue
	check := func(field string, value string, ok bool) {
		if ok {
			return
		}
		issues = append(issues, Issue{
			Severity:   SeverityError,
			Code:       codeEnumInvalid,
			Message:    fmt.Sprintf("%s %q is not a valid value", field, value),
			Constraint: ref,
		})
	}
	check("function", string(c.Function), c.Function.Valid())
	check("type", string(c.Type), c.Type.Valid())
	check("flexibility", string(c.Flexibility), c.Flexibility.Valid())
	return issues
}

func validateNewConstraints(s *story.Session) []Issue {
	known := make(map[string]struct{}, len(s.Constraints))
	for _, c := range s.Constraints {
		known[c.ID] = struct{}{}
	}
	var issues []Issue
	for _, c := range s.NewConstraints {
		if _, ok := known[c.ID]; ok {
			continue
		}
		issues = append(issues, Issue{
			Severity:   SeverityError,
			Code:       codeUnknownNewConstraint,
			Message:    "new constraint is missing from the constraint set",
			Constraint: c.ID,
		})
	}
	return issues
}

func validateParagraphs(paragraphs []string) []Issue {
	var issues []Issue
	for i, p := range paragraphs {
		if strings.TrimSpace(p) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeEmptyParagraph,
				Message:  fmt.Sprintf("paragraph %d is empty", i+1),
			})
		}
	}
	return issues
}

func validateViolationHistory(history []story.ViolationState) []Issue {
	var issues []Issue
	for i, record := range history {
		if len(record.Violations) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeEmptyViolationRecord,
				Message:  fmt.Sprintf("violation record %d has no violations", i+1),
			})
		}
	}
	return issues
}
