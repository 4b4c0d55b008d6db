package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/genai"

	"plotpact/internal/oracle"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{name: "rate limited", err: genai.APIError{Code: http.StatusTooManyRequests, Message: "quota"}, transient: true},
		{name: "server error", err: genai.APIError{Code: http.StatusInternalServerError, Message: "internal"}, transient: true},
		{name: "unavailable", err: genai.APIError{Code: http.StatusServiceUnavailable, Message: "overloaded"}, transient: true},
		{name: "bad request", err: genai.APIError{Code: http.StatusBadRequest, Message: "invalid model"}, transient: false},
		{name: "pointer error", err: &genai.APIError{Code: http.StatusForbidden, Message: "denied"}, transient: false},
		{name: "wrapped", err: fmt.Errorf("generate: %w", genai.APIError{Code: http.StatusBadGateway}), transient: true},
		{name: "transport failure", err: errors.New("connection reset by peer"), transient: true},
		{name: "deadline", err: context.DeadlineExceeded, transient: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if oracle.IsTransient(got) != tt.transient {
				t.Fatalf("expected transient=%v, got %v", tt.transient, got)
			}
			if oracle.IsFatal(got) == tt.transient {
				t.Fatalf("expected fatal=%v, got %v", !tt.transient, got)
			}
			if got.Error() != tt.err.Error() {
				t.Fatalf("expected the original message %q, got %q", tt.err.Error(), got.Error())
			}
		})
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(context.Background(), "  ", ""); err == nil {
		t.Fatalf("expected an error for a blank api key")
	}
}
