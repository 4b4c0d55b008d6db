package config

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const DefaultTemplatesFile = "templates.yaml"

type Template struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"`
	Plot  string `yaml:"plot"`
}

type templatesFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadTemplates reads a templates file. Plots shorter than minPlotLength
// are rejected so a template can always be activated.
func LoadTemplates(path string, minPlotLength int) ([]Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	var file templatesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	if err := validateTemplates(file.Templates, minPlotLength); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	return file.Templates, nil
}

func validateTemplates(templates []Template, minPlotLength int) error {
	seen := make(map[string]struct{})
	for i := range templates {
		t := &templates[i]
		t.Name = strings.TrimSpace(t.Name)
		t.Title = strings.TrimSpace(t.Title)
		t.Plot = strings.TrimSpace(t.Plot)

		if t.Name == "" {
			return fmt.Errorf("template %d name is required", i)
		}
		key := strings.ToLower(t.Name)
		if _, exists := seen[key]; exists {
			return fmt.Errorf("duplicate template name: %s", t.Name)
		}
		seen[key] = struct{}{}

		if t.Title == "" {
			return fmt.Errorf("template %s title is required", t.Name)
		}
		if n := utf8.RuneCountInString(t.Plot); n < minPlotLength {
			return fmt.Errorf("template %s plot is %d characters, need at least %d", t.Name, n, minPlotLength)
		}
	}
	return nil
}
