// Package verify decides whether a candidate paragraph may join the story.
// The judgment itself belongs to the oracle; this package owns the request
// and response contract and the failure policy.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"plotpact/internal/metrics"
	"plotpact/internal/oracle"
	"plotpact/internal/story"
)

// Policy decides what an oracle failure means.
type Policy string

const (
	// FailOpen accepts the candidate when verification cannot run.
	FailOpen Policy = "fail-open"
	// FailClosed rejects it with a single "verification" violation.
	FailClosed Policy = "fail-closed"
)

func (p Policy) Valid() bool {
	return p == FailOpen || p == FailClosed
}

const unavailableType = "verification"

type Request struct {
	Candidate   string
	Context     []string
	Constraints []story.Constraint
}

// Result has no violations when IsValid is true and at least one when it
// is false.
type Result struct {
	IsValid    bool              `json:"isValid"`
	Violations []story.Violation `json:"violations"`
}

func Accepted() Result {
	return Result{IsValid: true, Violations: []story.Violation{}}
}

type Verifier struct {
	oracle  oracle.Oracle
	policy  Policy
	logger  *slog.Logger
	metrics *metrics.Recorder
}

func New(o oracle.Oracle, policy Policy, logger *slog.Logger, m *metrics.Recorder) *Verifier {
	if !policy.Valid() {
		policy = FailOpen
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{oracle: o, policy: policy, logger: logger, metrics: m}
}

func (v *Verifier) Policy() Policy {
	return v.policy
}

func (v *Verifier) Verify(ctx context.Context, req Request) Result {
	result, err := v.verify(ctx, req)
	if err == nil {
		if result.IsValid {
			v.metrics.Verification("accepted")
		} else {
			v.metrics.Verification("rejected")
		}
		return result
	}

	if v.policy == FailClosed {
		v.logger.Warn("verification unavailable, rejecting candidate", slog.String("error", err.Error()))
		v.metrics.Verification("failed_closed")
		return Result{IsValid: false, Violations: []story.Violation{{
			ConstraintType: unavailableType,
			Explanation:    "The consistency check could not run. Please try submitting again.",
		}}}
	}
	v.logger.Warn("verification unavailable, accepting candidate", slog.String("error", err.Error()))
	v.metrics.Verification("failed_open")
	return Accepted()
}

type response struct {
	IsValid    *bool `json:"isValid"`
	Violations []struct {
		ConstraintType string `json:"constraintType"`
		Explanation    string `json:"explanation"`
	} `json:"violations"`
}

func (v *Verifier) verify(ctx context.Context, req Request) (Result, error) {
	var resp response
	err := oracle.CompleteJSON(ctx, v.oracle, oracle.Request{
		System: systemPrompt,
		User:   buildUserPrompt(req),
	}, &resp)
	if err != nil {
		return Result{}, err
	}
	if resp.IsValid == nil {
		return Result{}, fmt.Errorf("response has no isValid field")
	}
	if *resp.IsValid {
		return Accepted(), nil
	}

	violations := make([]story.Violation, 0, len(resp.Violations))
	for _, item := range resp.Violations {
		ct := strings.TrimSpace(item.ConstraintType)
		ex := strings.TrimSpace(item.Explanation)
		if ct == "" && ex == "" {
			continue
		}
		violations = append(violations, story.Violation{ConstraintType: ct, Explanation: ex})
	}
	if len(violations) == 0 {
		return Result{}, fmt.Errorf("rejection without violations")
	}
	return Result{IsValid: false, Violations: violations}, nil
}
