package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"plotpact/internal/config"
	"plotpact/internal/session"
	"plotpact/internal/story"
)

func TestInitThenOpenApp(t *testing.T) {
	t.Chdir(t.TempDir())
	configPath = "plotpact.yaml"
	ctx := context.Background()

	if err := runInit("demo", "memory://", "openai"); err != nil {
		t.Fatalf("unexpected init error: %v", err)
	}
	if err := runInit("demo", "memory://", "openai"); err == nil {
		t.Fatalf("expected init to refuse overwriting")
	}

	a, err := openApp(ctx, false)
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	defer a.Close(ctx)

	if a.cfg.Project != "demo" || a.cfg.Oracle.Provider != "openai" {
		t.Fatalf("unexpected config: %+v", a.cfg)
	}
	templates := a.stories.Templates()
	if len(templates) != 2 || templates[0].Name != "dragon" {
		t.Fatalf("expected scaffolded templates, got %+v", templates)
	}

	sess, err := a.stories.Create(ctx, "Dragonfall")
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	// Without an oracle, generation degrades to no constraints.
	sess, err = a.stories.Activate(ctx, sess.ID, "", templates[0].Plot)
	if err != nil {
		t.Fatalf("unexpected activate error: %v", err)
	}
	if sess.Lifecycle != story.LifecycleActive || len(sess.Constraints) != 0 {
		t.Fatalf("expected active story without constraints, got %s with %d", sess.Lifecycle, len(sess.Constraints))
	}
}

func TestOpenOracleRequiresKey(t *testing.T) {
	ctx := context.Background()
	t.Setenv("PLOTPACT_TEST_MISSING_KEY", "")
	cfg := testOracleConfig("gemini", "")
	if _, err := openOracle(ctx, cfg); err == nil {
		t.Fatalf("expected error without a gemini key")
	}

	cfg = testOracleConfig("openai", "http://localhost:11434/v1")
	o, err := openOracle(ctx, cfg)
	if err != nil {
		t.Fatalf("expected keyless local openai endpoint to be allowed, got %v", err)
	}
	if o == nil {
		t.Fatalf("expected an oracle")
	}
}

func TestPrintSubmitResult(t *testing.T) {
	var buf bytes.Buffer
	printSubmitResult(&buf, session.SubmitResult{
		Violations: []story.Violation{{ConstraintType: "fixed anchor", Explanation: "friendly dragon"}},
	})
	if !strings.Contains(buf.String(), "Rejected (1 violations)") || !strings.Contains(buf.String(), "friendly dragon") {
		t.Fatalf("unexpected output: %q", buf.String())
	}

	buf.Reset()
	printSubmitResult(&buf, session.SubmitResult{
		Accepted: true,
		Ended:    true,
		Session:  &story.Session{Paragraphs: []string{"a", "b"}},
	})
	if !strings.Contains(buf.String(), "Accepted as paragraph 2.") || !strings.Contains(buf.String(), "ended") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func testOracleConfig(provider, baseURL string) config.OracleConfig {
	return config.OracleConfig{Provider: provider, BaseURL: baseURL, APIKeyEnv: "PLOTPACT_TEST_MISSING_KEY"}
}
