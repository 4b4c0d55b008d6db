// Package parser reads stories written as markdown with YAML frontmatter.
// The body up to the first *** line is the plot; every later ***-separated
// block is one paragraph.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const separator = "***"

type Document struct {
	Title      string
	Template   string
	Plot       string
	Paragraphs []string
	SourceFile string
}

type frontmatter struct {
	Title    string `yaml:"title"`
	Template string `yaml:"template"`
}

var (
	ErrNoFrontmatter = errors.New("no frontmatter found")
	ErrInvalidYAML   = errors.New("invalid YAML in frontmatter")
	ErrMissingTitle  = errors.New("frontmatter missing required 'title' field")
	ErrMissingPlot   = errors.New("story has no plot and no template")
)

func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.SourceFile = path
	return doc, nil
}

func Parse(content []byte) (*Document, error) {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	trimmed := bytes.TrimLeft(content, "\ufeff\n\r\t ")
	if !bytes.HasPrefix(trimmed, []byte("---\n")) {
		return nil, ErrNoFrontmatter
	}

	rest := trimmed[len("---\n"):]
	end := bytes.Index(rest, []byte("---\n"))
	if end == -1 {
		if !bytes.HasSuffix(rest, []byte("---")) {
			return nil, ErrNoFrontmatter
		}
		end = len(rest) - len("---")
	}

	yamlBytes := rest[:end]
	body := ""
	if end+len("---\n") <= len(rest) {
		body = string(rest[end+len("---\n"):])
	}

	var fm frontmatter
	if err := yaml.Unmarshal(yamlBytes, &fm); err != nil {
		return nil, ErrInvalidYAML
	}

	title := strings.TrimSpace(fm.Title)
	if title == "" {
		return nil, ErrMissingTitle
	}

	blocks := splitBlocks(body)
	doc := &Document{
		Title:      title,
		Template:   strings.TrimSpace(fm.Template),
		Paragraphs: []string{},
	}
	if len(blocks) > 0 {
		doc.Plot = blocks[0]
		for _, b := range blocks[1:] {
			if b != "" {
				doc.Paragraphs = append(doc.Paragraphs, b)
			}
		}
	}
	if doc.Plot == "" && doc.Template == "" {
		return nil, ErrMissingPlot
	}
	return doc, nil
}

// splitBlocks cuts body at lines holding only the separator. Blocks are
// trimmed; the first block is kept even when empty.
func splitBlocks(body string) []string {
	var blocks []string
	var current []string
	flush := func() {
		blocks = append(blocks, strings.TrimSpace(strings.Join(current, "\n")))
		current = current[:0]
	}
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == separator {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return blocks
}
