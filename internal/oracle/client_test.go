package oracle_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"plotpact/internal/oracle"
	"plotpact/internal/oracle/oracletest"
)

func TestClientRetriesTransient(t *testing.T) {
	stub := oracletest.New(
		oracletest.Reply{Err: oracle.NewTransientError(errors.New("429"))},
		oracletest.Reply{Text: "ok"},
	)
	c := oracle.NewClient(stub, oracle.Options{Provider: "test", MaxRetries: 2, RetryInterval: time.Millisecond})

	got, err := c.Complete(context.Background(), oracle.Request{User: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || stub.Calls() != 2 {
		t.Fatalf("expected ok after 2 calls, got %q after %d", got, stub.Calls())
	}
}

func TestClientDoesNotRetryFatal(t *testing.T) {
	stub := oracletest.Failing(oracle.NewFatalError(errors.New("bad key")))
	c := oracle.NewClient(stub, oracle.Options{Provider: "test", MaxRetries: 3, RetryInterval: time.Millisecond})

	_, err := c.Complete(context.Background(), oracle.Request{})
	if err == nil || !oracle.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if stub.Calls() != 1 {
		t.Fatalf("expected 1 call, got %d", stub.Calls())
	}
}

func TestClientGivesUpAfterMaxRetries(t *testing.T) {
	stub := oracletest.Failing(oracle.NewTransientError(errors.New("503")))
	c := oracle.NewClient(stub, oracle.Options{Provider: "test", MaxRetries: 2, RetryInterval: time.Millisecond})

	if _, err := c.Complete(context.Background(), oracle.Request{}); err == nil {
		t.Fatalf("expected error")
	}
	if stub.Calls() != 3 {
		t.Fatalf("expected 3 calls, got %d", stub.Calls())
	}
}

func TestClientTimeout(t *testing.T) {
	slow := oracle.Func(func(ctx context.Context, req oracle.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	c := oracle.NewClient(slow, oracle.Options{Provider: "test", Timeout: 10 * time.Millisecond})

	_, err := c.Complete(context.Background(), oracle.Request{})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestCompleteJSON(t *testing.T) {
	t.Run("decodes fenced object", func(t *testing.T) {
		stub := oracletest.Always("```json\n{\"name\": \"Malgrath\"}\n```")
		var out struct {
			Name string `json:"name"`
		}
		if err := oracle.CompleteJSON(context.Background(), stub, oracle.Request{}, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Name != "Malgrath" {
			t.Fatalf("unexpected name %q", out.Name)
		}
		if !stub.LastRequest().JSON {
			t.Fatalf("expected JSON mode requested")
		}
	})

	t.Run("no object", func(t *testing.T) {
		stub := oracletest.Always("no json here")
		var out map[string]any
		if err := oracle.CompleteJSON(context.Background(), stub, oracle.Request{}, &out); err == nil {
			t.Fatalf("expected error")
		}
	})
}
