package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"plotpact/internal/store"
	"plotpact/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T, opts store.Options) store.Store {
		c, err := New(context.Background(), "sqlite://:memory:", opts)
		if err != nil {
			t.Fatalf("opening sqlite: %v", err)
		}
		t.Cleanup(func() { c.Close(context.Background()) })
		return c
	})
}

func TestFileDatabaseSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "plotpact.db")

	c, err := New(ctx, "sqlite://"+path, store.Options{})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensuring schema: %v", err)
	}
	s := storetest.SampleSession()
	if err := c.CreateSession(ctx, s); err != nil {
		t.Fatalf("creating session: %v", err)
	}
	c.Close(ctx)

	c, err = New(ctx, "sqlite://"+path, store.Options{})
	if err != nil {
		t.Fatalf("reopening sqlite: %v", err)
	}
	defer c.Close(ctx)
	got, err := c.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("getting session: %v", err)
	}
	if len(got.Paragraphs) != 2 || got.Paragraphs[1] != "Smoke rose over Oakhollow." {
		t.Fatalf("unexpected paragraphs: %#v", got.Paragraphs)
	}
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "memory", input: "sqlite://:memory:", expected: ":memory:"},
		{name: "absolute", input: "sqlite:///var/lib/plotpact.db", expected: "/var/lib/plotpact.db"},
		{name: "dot relative", input: "sqlite://./plotpact.db", expected: "./plotpact.db"},
		{name: "bare relative", input: "sqlite://plotpact.db", expected: "./plotpact.db"},
		{name: "query kept", input: "sqlite://data/plotpact.db?_pragma=foreign_keys(1)", expected: "./data/plotpact.db?_pragma=foreign_keys(1)"},
		{name: "escaped", input: "sqlite://my%20stories.db", expected: "./my stories.db"},
		{name: "wrong scheme", input: "postgres://localhost/db", wantErr: true},
		{name: "empty path", input: "sqlite://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDSN(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
