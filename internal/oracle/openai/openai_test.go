package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"plotpact/internal/oracle"
)

func TestCompleteSendsSystemAndJSONMode(t *testing.T) {
	var got struct {
		Model          string `json:"model"`
		Messages       []struct{ Role, Content string }
		ResponseFormat *struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"isValid\":true}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	o, err := New("test-key", srv.URL, "test-model")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := o.Complete(context.Background(), oracle.Request{System: "sys", User: "user", JSON: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"isValid":true}` {
		t.Fatalf("unexpected text %q", text)
	}
	if got.Model != "test-model" || len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json_object response format")
	}
}

func TestCompleteClassifiesErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, transient: true},
		{name: "server error", status: http.StatusBadGateway, transient: true},
		{name: "unauthorized", status: http.StatusUnauthorized, transient: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"x"}}`))
			}))
			defer srv.Close()

			o, err := New("k", srv.URL, "m")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			_, err = o.Complete(context.Background(), oracle.Request{User: "u"})
			if err == nil {
				t.Fatalf("expected error")
			}
			if oracle.IsTransient(err) != tt.transient {
				t.Fatalf("expected transient=%v, got %v", tt.transient, err)
			}
		})
	}
}
