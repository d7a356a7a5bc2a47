// Package notes reads externally authored note documents: markdown files
// keyed by date (2026-08-30.md) under the workspace notes directory. Notes
// are read-only inputs to relationship detection and keyword search.
package notes

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Note is one note document.
type Note struct {
	Date    string // filename stem, e.g. "2026-08-30"
	Path    string
	Content string
}

// LoadAll reads every .md file in dir, sorted lexicographically by filename
// so walk order is deterministic. A missing or unreadable directory yields
// an empty list — notes are optional inputs, never a fatal error.
func LoadAll(dir string) []Note {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var notes []Note
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		notes = append(notes, Note{
			Date:    strings.TrimSuffix(name, ".md"),
			Path:    path,
			Content: string(data),
		})
	}
	return notes
}

// Paragraphs splits a note into trimmed non-empty paragraphs.
func (n Note) Paragraphs() []string {
	var paras []string
	for _, p := range strings.Split(n.Content, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}
