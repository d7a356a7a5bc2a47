// Package search implements hybrid retrieval: a local keyword path over
// facts and notes fused with an external semantic vector path.
package search

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lazypower/recall/internal/notes"
	"github.com/lazypower/recall/internal/store"
)

// Result kinds.
const (
	TypeFact   = "entity_fact"
	TypeNote   = "note"
	TypeVector = "vector_match"
)

// Search path tags.
const (
	SearchKeyword = "keyword"
	SearchVector  = "vector"
)

// Result is one retrieval hit from either path.
type Result struct {
	Type       string  `json:"type"`
	Entity     string  `json:"entity"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	FinalScore float64 `json:"final_score,omitempty"`
	SearchType string  `json:"search_type,omitempty"`
	Timestamp  string  `json:"timestamp,omitempty"`
	Category   string  `json:"category,omitempty"`
	Source     string  `json:"source"`
}

const snippetLength = 200

// KeywordScore rates how well text matches the query. An exact substring
// match of the whole query scores 1.0. Otherwise the score blends the
// fraction of query words present verbatim with half the fraction
// present as substrings of some word, capped at 1.0.
func KeywordScore(text, query string) float64 {
	text = strings.ToLower(text)
	query = strings.ToLower(query)

	if query != "" && strings.Contains(text, query) {
		return 1.0
	}

	queryWords := strings.Fields(query)
	if len(queryWords) == 0 {
		return 0
	}
	textWords := strings.Fields(text)

	exact, partial := 0, 0
	for _, qw := range queryWords {
		for _, tw := range textWords {
			if tw == qw {
				exact++
				break
			}
		}
		for _, tw := range textWords {
			if strings.Contains(tw, qw) {
				partial++
				break
			}
		}
	}

	score := float64(exact)/float64(len(queryWords)) + 0.5*float64(partial)/float64(len(queryWords))
	if score > 1.0 {
		return 1.0
	}
	return score
}

// Snippet extracts about 200 characters centered on the first match of
// the query (or any query word), ellipsizing truncated edges.
func Snippet(content, query string) string {
	lower := strings.ToLower(content)
	pos := strings.Index(lower, strings.ToLower(query))
	if pos == -1 {
		for _, w := range strings.Fields(strings.ToLower(query)) {
			if p := strings.Index(lower, w); p != -1 {
				pos = p
				break
			}
		}
	}
	if pos == -1 {
		if len(content) > snippetLength {
			return content[:clampToRune(content, snippetLength)] + "..."
		}
		return content
	}

	start := clampToRune(content, pos-snippetLength/2)
	end := pos + snippetLength/2
	if end > len(content) {
		end = len(content)
	} else {
		end = clampToRune(content, end)
	}

	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet = snippet + "..."
	}
	return snippet
}

// clampToRune walks a byte offset back to the nearest rune boundary so
// slicing never splits a multibyte character. Negative offsets clamp to
// zero; offsets past the end are returned as-is.
func clampToRune(s string, i int) int {
	if i <= 0 {
		return 0
	}
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// Keyword is the local search path over stored facts and note documents.
type Keyword struct {
	db       *store.DB
	notesDir string
}

// NewKeyword creates the keyword path over the given store and notes directory.
func NewKeyword(db *store.DB, notesDir string) *Keyword {
	return &Keyword{db: db, notesDir: notesDir}
}

// Search scores every active fact and every note against the query and
// returns the non-zero hits sorted by score descending, newest first on
// ties, truncated to limit.
func (k *Keyword) Search(query string, limit int) ([]Result, error) {
	facts, err := k.db.AllActiveFacts()
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	var results []Result
	for _, f := range facts {
		score := KeywordScore(f.Fact, query)
		if score == 0 {
			continue
		}
		results = append(results, Result{
			Type:      TypeFact,
			Entity:    f.Entity,
			Content:   f.Fact,
			Score:     score,
			Timestamp: f.Timestamp,
			Category:  f.Category,
			Source:    f.Entity + "#" + f.ID,
		})
	}

	for _, note := range notes.LoadAll(k.notesDir) {
		score := KeywordScore(note.Content, query)
		if score == 0 {
			continue
		}
		results = append(results, Result{
			Type:      TypeNote,
			Entity:    note.Date,
			Content:   Snippet(note.Content, query),
			Score:     score,
			Timestamp: note.Date,
			Category:  "note",
			Source:    note.Path,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Timestamp > results[j].Timestamp
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
