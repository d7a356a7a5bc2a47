// Package salience scores facts by how recently and how often they were
// accessed. Scores rank retrieval candidates; they never mutate stored
// access data.
package salience

import (
	"math"
	"sort"
	"time"

	"github.com/lazypower/recall/internal/store"
)

// DefaultMaxDays is the recency window. Facts untouched for longer score
// zero recency no matter how often they were accessed before.
const DefaultMaxDays = 365

// unparsableRecency is the floor weight for facts whose lastAccessed
// date cannot be parsed. Bad dates demote a fact, they never exclude it.
const unparsableRecency = 0.1

// Scorer computes salience scores against a fixed reference time.
type Scorer struct {
	MaxDays int
	now     time.Time
}

// NewScorer creates a Scorer with the given recency window, using the
// current time as reference. Non-positive maxDays falls back to the default.
func NewScorer(maxDays int) *Scorer {
	if maxDays <= 0 {
		maxDays = DefaultMaxDays
	}
	return &Scorer{MaxDays: maxDays, now: time.Now()}
}

// at pins the reference time, for tests.
func (s *Scorer) at(now time.Time) *Scorer {
	s.now = now
	return s
}

// RecencyWeight maps a lastAccessed date to [0, 1]. The weight decays
// exponentially with age and cuts to zero beyond the window. Dates in
// the future clamp to age zero.
func (s *Scorer) RecencyWeight(lastAccessed string) float64 {
	t, ok := parseWhen(lastAccessed)
	if !ok {
		return unparsableRecency
	}
	days := s.now.Sub(t).Hours() / 24
	if days < 0 {
		days = 0
	}
	if days >= float64(s.MaxDays) {
		return 0
	}
	return math.Exp(-days / (float64(s.MaxDays) / 3))
}

// FrequencyWeight grows logarithmically with access count, so heavily
// accessed facts rise without drowning everything else. A count of zero
// weighs zero.
func FrequencyWeight(accessCount int) float64 {
	if accessCount < 0 {
		accessCount = 0
	}
	return math.Log(float64(accessCount) + 1)
}

// Score is the salience of a fact: recency times frequency.
func (s *Scorer) Score(f store.Fact) float64 {
	f = withLegacyDefaults(f)
	return s.RecencyWeight(f.LastAccessed) * FrequencyWeight(f.AccessCount)
}

// Ranked pairs a fact with its computed score.
type Ranked struct {
	Fact  store.Fact `json:"fact"`
	Score float64    `json:"score"`
}

// Rank scores the given facts and returns them sorted by descending
// score, truncated to limit. The sort is stable: facts that tie keep
// their input order. A non-positive limit means no truncation.
func (s *Scorer) Rank(facts []store.Fact, limit int) []Ranked {
	ranked := make([]Ranked, 0, len(facts))
	for _, f := range facts {
		ranked = append(ranked, Ranked{Fact: f, Score: s.Score(f)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// withLegacyDefaults fills access fields for records written before
// access tracking existed, recognizable by an empty lastAccessed:
// lastAccessed falls back to the creation timestamp and accessCount to
// one. A record that carries an access date with a zero count is not
// legacy; its zero is real and zeroes the score.
func withLegacyDefaults(f store.Fact) store.Fact {
	if f.LastAccessed == "" {
		f.LastAccessed = f.Timestamp
		if f.AccessCount == 0 {
			f.AccessCount = 1
		}
	}
	return f
}

func parseWhen(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
