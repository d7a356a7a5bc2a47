package graph

import (
	"sort"
	"strings"

	"github.com/lazypower/recall/internal/notes"
	"github.com/lazypower/recall/internal/store"
)

// relationVerbs maps phrases found in fact text to edge labels.
// Ordered so detection output is stable across runs.
var relationVerbs = []struct {
	phrase   string
	relation string
}{
	{"works at", "works_at"},
	{"knows", "knows"},
	{"uses", "uses"},
	{"manages", "manages"},
	{"leads", "leads"},
	{"founded", "founded"},
}

// Names this short trigger too many false positives in mention scans.
const minMentionNameLen = 4

// MentionExtractor finds candidate entity keys mentioned in free text.
// The graph core is agnostic to how candidates are found, so detection
// heuristics can be swapped without touching traversal.
type MentionExtractor interface {
	ExtractMentions(text string) []string
}

// nameMatcher is the default extractor: it scans text for the display
// names of known entities, tolerating underscore variants.
type nameMatcher struct {
	keys     []string
	variants map[string][]string // key -> lowercase name variants
}

// NewNameMatcher builds a MentionExtractor over the given entity keys.
// Keys with malformed shapes are skipped.
func NewNameMatcher(keys []string) MentionExtractor {
	m := &nameMatcher{variants: make(map[string][]string)}
	for _, key := range keys {
		_, name, err := store.SplitEntityKey(key)
		if err != nil {
			continue
		}
		spaced := strings.ReplaceAll(name, "-", " ")
		m.keys = append(m.keys, key)
		m.variants[key] = []string{spaced, strings.ReplaceAll(spaced, " ", "_")}
	}
	return m
}

func (m *nameMatcher) ExtractMentions(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, key := range m.keys {
		for _, v := range m.variants[key] {
			if strings.Contains(lower, v) {
				found = append(found, key)
				break
			}
		}
	}
	return found
}

// displayName returns the lowercase spaced name for a key, or "" when
// the key is malformed.
func displayName(key string) string {
	_, name, err := store.SplitEntityKey(key)
	if err != nil {
		return ""
	}
	return strings.ReplaceAll(name, "-", " ")
}

// Detector derives edges from fact text and note documents.
type Detector struct {
	db        *store.DB
	notesDir  string
	extractor MentionExtractor
}

// NewDetector creates a Detector. A nil extractor selects the default
// name matcher over the store's known entities at detection time.
func NewDetector(db *store.DB, notesDir string, extractor MentionExtractor) *Detector {
	return &Detector{db: db, notesDir: notesDir, extractor: extractor}
}

// Detect runs all three detection passes and returns the found edges,
// deduplicated by (from, to, relation). Nothing is persisted.
//
// Pass one scans each entity's active facts for relation verbs and emits
// a typed edge to any other entity named in the same fact. Pass two
// emits a generic mentions edge for any other entity named in a fact.
// Pass three pairs entities co-occurring in the same note document.
func (d *Detector) Detect() ([]store.Relationship, error) {
	facts, err := d.db.AllActiveFacts()
	if err != nil {
		return nil, err
	}
	entities, err := d.db.AllEntities()
	if err != nil {
		return nil, err
	}

	extractor := d.extractor
	if extractor == nil {
		extractor = NewNameMatcher(entities)
	}

	seen := make(map[string]bool)
	var found []store.Relationship
	add := func(r store.Relationship) {
		k := r.From + "\x00" + r.To + "\x00" + r.Relation
		if seen[k] {
			return
		}
		seen[k] = true
		found = append(found, r)
	}

	for _, f := range facts {
		lower := strings.ToLower(f.Fact)
		source := f.Entity + "#" + f.ID

		for _, v := range relationVerbs {
			if !strings.Contains(lower, v.phrase) {
				continue
			}
			for _, other := range extractor.ExtractMentions(f.Fact) {
				if other == f.Entity {
					continue
				}
				add(store.Relationship{
					From:     f.Entity,
					To:       other,
					Relation: v.relation,
					Since:    f.Timestamp,
					Source:   source,
				})
			}
		}

		for _, other := range extractor.ExtractMentions(f.Fact) {
			if other == f.Entity || len(displayName(other)) < minMentionNameLen {
				continue
			}
			add(store.Relationship{
				From:     f.Entity,
				To:       other,
				Relation: "mentions",
				Since:    f.Timestamp,
				Source:   source,
			})
		}
	}

	for _, note := range notes.LoadAll(d.notesDir) {
		var mentioned []string
		for _, key := range extractor.ExtractMentions(note.Content) {
			if len(displayName(key)) < minMentionNameLen {
				continue
			}
			mentioned = append(mentioned, key)
		}
		sort.Strings(mentioned)
		for i := 0; i < len(mentioned); i++ {
			for j := i + 1; j < len(mentioned); j++ {
				add(store.Relationship{
					From:     mentioned[i],
					To:       mentioned[j],
					Relation: "co_mentioned",
					Since:    note.Date,
					Source:   note.Path,
				})
			}
		}
	}

	return found, nil
}

// DetectAndMerge runs detection and persists only edges not already
// stored. Returns the detected set and the count of newly stored edges.
func (d *Detector) DetectAndMerge() ([]store.Relationship, int, error) {
	found, err := d.Detect()
	if err != nil {
		return nil, 0, err
	}
	merged, err := d.db.MergeRelationships(found)
	if err != nil {
		return found, merged, err
	}
	return found, merged, nil
}
