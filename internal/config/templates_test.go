package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTemplates(t *testing.T) {
	t.Run("valid templates load", func(t *testing.T) {
		templates, err := LoadTemplates(filepath.Join("testdata", "valid_templates.yaml"), DefaultMinPlotLength)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(templates) != 2 {
			t.Fatalf("expected 2 templates, got %d", len(templates))
		}
		if templates[0].Name != "dragon" || templates[0].Title != "Dragonfall" {
			t.Fatalf("expected dragon template first, got %+v", templates[0])
		}
	})

	invalid := []struct {
		name     string
		contents string
	}{
		{"missing name", "templates:\n  - title: T\n    plot: " + longPlot + "\n"},
		{"missing title", "templates:\n  - name: a\n    plot: " + longPlot + "\n"},
		{"short plot", "templates:\n  - name: a\n    title: T\n    plot: too short\n"},
		{"duplicate names", "templates:\n  - name: a\n    title: T\n    plot: " + longPlot + "\n  - name: A\n    title: U\n    plot: " + longPlot + "\n"},
		{"invalid yaml", "templates: [\n"},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempTemplates(t, tc.contents)
			if _, err := LoadTemplates(path, DefaultMinPlotLength); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

const longPlot = "A cartographer discovers that the map she is drawing redraws the coast itself."

func writeTempTemplates(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write templates: %v", err)
	}
	return path
}
