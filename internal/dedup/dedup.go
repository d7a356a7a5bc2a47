// Package dedup prevents duplicate content from entering the memory store.
// Exact duplicates are caught by a fingerprint index over normalized text;
// a separate fuzzy word-overlap check guards fact ingestion. The two
// strategies are deliberately independent: ingestion applies both, batch
// audits use fingerprints only.
package dedup

import (
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/recall/internal/notes"
	"github.com/lazypower/recall/internal/store"
)

// Facts shorter than this many characters are skipped during note scans;
// tiny paragraphs fingerprint-collide too easily to be useful.
const minParagraphLen = 20

// NearDuplicateThreshold is the word-overlap ratio above which two fact
// strings count as near-duplicates.
const NearDuplicateThreshold = 0.8

// Checker answers duplicate queries against the fingerprint index.
type Checker struct {
	db       *store.DB
	notesDir string
}

// NewChecker creates a Checker over the given store and notes directory.
func NewChecker(db *store.DB, notesDir string) *Checker {
	return &Checker{db: db, notesDir: notesDir}
}

// CheckResult reports the outcome of a duplicate check.
type CheckResult struct {
	IsDuplicate    bool   `json:"is_duplicate"`
	Fingerprint    string `json:"fingerprint"`
	FirstSeen      string `json:"first_seen,omitempty"`
	OriginalSource string `json:"original_source,omitempty"`
}

// CheckDuplicate looks the text's fingerprint up in the index.
// Read-only: checking never registers anything.
func (c *Checker) CheckDuplicate(text string) (CheckResult, error) {
	fp := Fingerprint(text)
	entry, err := c.db.LookupFingerprint(fp)
	if err != nil {
		return CheckResult{}, err
	}
	if entry == nil {
		return CheckResult{IsDuplicate: false, Fingerprint: fp}, nil
	}
	return CheckResult{
		IsDuplicate:    true,
		Fingerprint:    fp,
		FirstSeen:      entry.FirstSeen,
		OriginalSource: entry.Source,
	}, nil
}

// RegisterContent records the text's fingerprint with its source.
// Idempotent: a known fingerprint keeps its original firstSeen and source.
func (c *Checker) RegisterContent(text, source string) (string, error) {
	fp := Fingerprint(text)
	err := c.db.RegisterFingerprint(store.IndexEntry{
		Fingerprint: fp,
		FirstSeen:   time.Now().Format(time.RFC3339),
		Source:      source,
		Preview:     Preview(text),
	})
	if err != nil {
		return "", err
	}
	return fp, nil
}

// Duplicate describes one collision found during a batch scan.
type Duplicate struct {
	OriginalSource  string `json:"original_source"`
	DuplicateSource string `json:"duplicate_source"`
	Content         string `json:"content"`
	Fingerprint     string `json:"fingerprint"`
}

// ScanReport summarizes a RebuildIndex run.
type ScanReport struct {
	TotalProcessed int         `json:"total_processed"`
	IndexSize      int         `json:"index_size"`
	Duplicates     []Duplicate `json:"duplicates"`
}

// RebuildIndex discards the index and rebuilds it from every active fact
// and every note paragraph. Walk order is deterministic: entities
// lexicographic by key with facts in insertion order, then notes
// lexicographic by filename. The first occurrence of a fingerprint wins;
// later occurrences are reported as duplicates.
func (c *Checker) RebuildIndex() (ScanReport, error) {
	if err := c.db.ClearFingerprints(); err != nil {
		return ScanReport{}, fmt.Errorf("rebuild index: %w", err)
	}

	var report ScanReport
	seen := make(map[string]string) // fingerprint -> first source

	record := func(text, source, firstSeen string) error {
		report.TotalProcessed++
		fp := Fingerprint(text)
		if original, dup := seen[fp]; dup {
			report.Duplicates = append(report.Duplicates, Duplicate{
				OriginalSource:  original,
				DuplicateSource: source,
				Content:         clip(text),
				Fingerprint:     fp,
			})
			return nil
		}
		seen[fp] = source
		return c.db.RegisterFingerprint(store.IndexEntry{
			Fingerprint: fp,
			FirstSeen:   firstSeen,
			Source:      source,
			Preview:     Preview(text),
		})
	}

	facts, err := c.db.AllActiveFacts()
	if err != nil {
		return report, fmt.Errorf("rebuild index: %w", err)
	}
	for _, f := range facts {
		if err := record(f.Fact, f.Entity+"#"+f.ID, f.Timestamp); err != nil {
			return report, fmt.Errorf("rebuild index: %w", err)
		}
	}

	for _, note := range notes.LoadAll(c.notesDir) {
		for _, para := range note.Paragraphs() {
			if len(para) < minParagraphLen {
				continue
			}
			if err := record(para, note.Path, note.Date); err != nil {
				return report, fmt.Errorf("rebuild index: %w", err)
			}
		}
	}

	report.IndexSize = len(seen)
	return report, nil
}

// WordOverlap returns the ratio of shared words to the smaller word set.
func WordOverlap(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	shared := 0
	for w := range wordsA {
		if wordsB[w] {
			shared++
		}
	}

	smaller := len(wordsA)
	if len(wordsB) < smaller {
		smaller = len(wordsB)
	}
	return float64(shared) / float64(smaller)
}

// NearDuplicate reports whether the candidate fact text is fuzzily
// duplicated by any of the given facts. Callers pass active facts only;
// superseded facts never block a write.
func NearDuplicate(text string, existing []store.Fact) bool {
	candidate := normalizeLoose(text)
	for _, f := range existing {
		other := normalizeLoose(f.Fact)
		if candidate == other {
			return true
		}
		if WordOverlap(candidate, other) > NearDuplicateThreshold {
			return true
		}
	}
	return false
}

// normalizeLoose is the fuzzy check's lighter normalization: lowercase and
// trim only. Kept distinct from Normalize since the two strategies don't
// share a canonical form.
func normalizeLoose(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

// clip truncates raw text for duplicate reports.
func clip(s string) string {
	if len(s) > previewLen {
		return s[:truncAt(s, previewLen)]
	}
	return s
}
