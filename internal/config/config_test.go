package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadProjectConfig(t *testing.T) {
	t.Run("valid config loads", func(t *testing.T) {
		cfg, err := LoadProjectConfig(filepath.Join("testdata", "valid_config.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Project != "test-project" {
			t.Fatalf("expected project name, got %q", cfg.Project)
		}
		if cfg.Oracle.Provider != "openai" || cfg.Oracle.Timeout != 30*time.Second || *cfg.Oracle.MaxRetries != 0 {
			t.Fatalf("expected oracle settings from file, got %+v", cfg.Oracle)
		}
		if cfg.Story.MinPlotLength != 40 || *cfg.Story.MaxParagraphs != 0 || cfg.Story.Retention != 24*time.Hour {
			t.Fatalf("expected story settings from file, got %+v", cfg.Story)
		}
		if cfg.Story.VerificationPolicy != "fail-closed" || *cfg.Story.RegenerateAfterAccept {
			t.Fatalf("expected fail-closed without regeneration, got %+v", cfg.Story)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\ndatabase:\n  dsn: memory://\n")
		cfg, err := LoadProjectConfig(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Oracle.Provider != "gemini" || cfg.Oracle.APIKeyEnv != DefaultAPIKeyEnvGemini {
			t.Fatalf("expected gemini defaults, got %+v", cfg.Oracle)
		}
		if cfg.Oracle.Timeout != DefaultOracleTimeout || *cfg.Oracle.MaxRetries != DefaultOracleMaxRetries {
			t.Fatalf("expected default timeout and retries, got %+v", cfg.Oracle)
		}
		if cfg.Story.MinPlotLength != 50 || *cfg.Story.MaxParagraphs != 10 || cfg.Story.Retention != 168*time.Hour {
			t.Fatalf("expected default story limits, got %+v", cfg.Story)
		}
		if cfg.Story.VerificationPolicy != "fail-open" || !*cfg.Story.RegenerateAfterAccept {
			t.Fatalf("expected fail-open with regeneration, got %+v", cfg.Story)
		}
	})

	t.Run("openai key env default", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\ndatabase:\n  dsn: memory://\noracle:\n  provider: openai\n")
		cfg, err := LoadProjectConfig(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Oracle.APIKeyEnv != DefaultAPIKeyEnvOpenAI {
			t.Fatalf("expected %s, got %s", DefaultAPIKeyEnvOpenAI, cfg.Oracle.APIKeyEnv)
		}
	})

	invalid := []struct {
		name     string
		contents string
	}{
		{"missing project name", "version: 1\ndatabase:\n  dsn: memory://\n"},
		{"unsupported version", "project: test\nversion: 2\ndatabase:\n  dsn: memory://\n"},
		{"missing dsn", "project: test\nversion: 1\n"},
		{"unknown dsn scheme", "project: test\nversion: 1\ndatabase:\n  dsn: redis://localhost\n"},
		{"dsn without scheme", "project: test\nversion: 1\ndatabase:\n  dsn: plotpact.db\n"},
		{"unknown provider", "project: test\nversion: 1\ndatabase:\n  dsn: memory://\noracle:\n  provider: claude-local\n"},
		{"negative retries", "project: test\nversion: 1\ndatabase:\n  dsn: memory://\noracle:\n  max_retries: -1\n"},
		{"negative paragraph cap", "project: test\nversion: 1\ndatabase:\n  dsn: memory://\nstory:\n  max_paragraphs: -3\n"},
		{"unknown policy", "project: test\nversion: 1\ndatabase:\n  dsn: memory://\nstory:\n  verification_policy: strict\n"},
		{"bad duration", "project: test\nversion: 1\ndatabase:\n  dsn: memory://\noracle:\n  timeout: soon\n"},
		{"invalid yaml", "project: [\n"},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempConfig(t, tc.contents)
			if _, err := LoadProjectConfig(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	t.Run("file not found", func(t *testing.T) {
		if _, err := LoadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestStoreKind(t *testing.T) {
	cases := map[string]string{
		"memory://":                         "memory",
		"sqlite://plotpact.db":              "sqlite",
		"postgres://u:p@localhost/plotpact": "postgres",
		"postgresql://localhost/plotpact":   "postgres",
		"mongodb://localhost:27017":         "mongo",
		"mongodb+srv://cluster.example.com": "mongo",
	}
	for dsn, want := range cases {
		got, err := StoreKind(dsn)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", dsn, err)
		}
		if got != want {
			t.Fatalf("%s: expected %s, got %s", dsn, want, got)
		}
	}
}

func TestAPIKey(t *testing.T) {
	t.Setenv("PLOTPACT_TEST_KEY", " secret ")
	key, err := OracleConfig{APIKeyEnv: "PLOTPACT_TEST_KEY"}.APIKey()
	if err != nil || key != "secret" {
		t.Fatalf("expected trimmed key, got %q %v", key, err)
	}

	t.Setenv("PLOTPACT_TEST_KEY", "")
	if _, err := (OracleConfig{APIKeyEnv: "PLOTPACT_TEST_KEY"}).APIKey(); err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
