// Package ingest imports every markdown story found under a set of paths.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"plotpact/internal/parser"
	"plotpact/internal/session"
	"plotpact/internal/story"
)

type Importer interface {
	Import(ctx context.Context, req session.ImportRequest) (*story.Session, error)
}

type Imported struct {
	SourceFile string
	SessionID  string
}

type Result struct {
	Imported     []Imported
	FilesSkipped int
	Errors       []error
}

type Options struct {
	Exclude []string
}

// Run walks roots, which may be files or directories, and imports each
// story file once. Files without frontmatter are skipped; files whose
// content was already imported in this run are skipped too.
func Run(ctx context.Context, roots []string, importer Importer, options Options) (*Result, error) {
	files, err := walkMarkdownFiles(roots, options.Exclude)
	if err != nil {
		return nil, fmt.Errorf("walking story files: %w", err)
	}

	result := &Result{}
	seen := make(map[string]string)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		hash, err := computeHash(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("hashing %s: %w", path, err))
			continue
		}
		if _, dup := seen[hash]; dup {
			result.FilesSkipped++
			continue
		}
		seen[hash] = path

		doc, err := parser.ParseFile(path)
		if err != nil {
			if errors.Is(err, parser.ErrNoFrontmatter) {
				result.FilesSkipped++
				continue
			}
			result.Errors = append(result.Errors, fmt.Errorf("parsing %s: %w", path, err))
			continue
		}

		sess, err := importer.Import(ctx, session.ImportRequest{
			Title:      doc.Title,
			Template:   doc.Template,
			Plot:       doc.Plot,
			Paragraphs: doc.Paragraphs,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("importing %s: %w", path, err))
			continue
		}
		result.Imported = append(result.Imported, Imported{SourceFile: path, SessionID: sess.ID})
	}

	return result, nil
}

func walkMarkdownFiles(roots []string, excludes []string) ([]string, error) {
	excluded := make([]string, 0, len(excludes))
	for _, path := range excludes {
		if path == "" {
			continue
		}
		excluded = append(excluded, filepath.Clean(path))
	}

	var files []string
	for _, root := range roots {
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && isExcluded(path, excluded) {
				return filepath.SkipDir
			}
			if d.IsDir() {
				return nil
			}
			if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
				return nil
			}
			if isExcluded(path, excluded) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isExcluded(path string, excludes []string) bool {
	clean := filepath.Clean(path)
	for _, exclude := range excludes {
		if exclude == clean || strings.HasPrefix(clean, exclude+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

func computeHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
