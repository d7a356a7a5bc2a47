package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Default fusion weights. They are independent multipliers, not shares
// of a whole, so they need not sum to 1.
const (
	DefaultVectorWeight  = 0.6
	DefaultKeywordWeight = 0.4
)

// Hybrid fuses the keyword and vector paths into one ranked list.
type Hybrid struct {
	Keyword       *Keyword
	Vector        *SemanticClient
	VectorWeight  float64
	KeywordWeight float64
}

// NewHybrid creates a fusion searcher with the given weights.
func NewHybrid(keyword *Keyword, vector *SemanticClient, vectorWeight, keywordWeight float64) *Hybrid {
	return &Hybrid{
		Keyword:       keyword,
		Vector:        vector,
		VectorWeight:  vectorWeight,
		KeywordWeight: keywordWeight,
	}
}

// Search runs both paths, weights their raw scores, deduplicates by
// content prefix, and returns the fused list sorted by final score
// descending, truncated to limit. Each path is over-fetched so fusion
// has candidates to blend.
func (h *Hybrid) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if err := validateWeight("vector", h.VectorWeight); err != nil {
		return nil, err
	}
	if err := validateWeight("keyword", h.KeywordWeight); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("hybrid search: limit must be positive, got %d", limit)
	}

	vectorResults := h.Vector.Search(ctx, query, limit*2)
	keywordResults, err := h.Keyword.Search(query, limit*2)
	if err != nil {
		return nil, err
	}

	merged := make([]Result, 0, len(vectorResults)+len(keywordResults))
	for _, r := range vectorResults {
		r.FinalScore = r.Score * h.VectorWeight
		r.SearchType = SearchVector
		merged = append(merged, r)
	}
	for _, r := range keywordResults {
		r.FinalScore = r.Score * h.KeywordWeight
		r.SearchType = SearchKeyword
		merged = append(merged, r)
	}

	merged = dedupeByContent(merged)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].FinalScore > merged[j].FinalScore
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// dedupeByContent drops results whose first 100 normalized content
// characters repeat an earlier result. First occurrence wins.
func dedupeByContent(results []Result) []Result {
	seen := make(map[string]bool)
	unique := results[:0]
	for _, r := range results {
		key := strings.TrimSpace(strings.ToLower(r.Content))
		if len(key) > 100 {
			key = key[:clampToRune(key, 100)]
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, r)
	}
	return unique
}

func validateWeight(name string, w float64) error {
	if w < 0 || w > 1 {
		return fmt.Errorf("hybrid search: %s weight %g out of range [0, 1]", name, w)
	}
	return nil
}
