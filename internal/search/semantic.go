package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultSemanticTimeout bounds the single blocking network call in the
// system. Past it the vector path degrades to no results.
const DefaultSemanticTimeout = 10 * time.Second

const vectorPreviewLen = 300

// SemanticClient queries the external semantic-search service. It is the
// only networked collaborator; every failure mode collapses to an empty
// result list so retrieval always degrades to the keyword path.
type SemanticClient struct {
	url     string
	enabled bool
	client  *http.Client
}

// NewSemanticClient creates a client for the service at url. A disabled
// client answers every query with no results without touching the network.
func NewSemanticClient(url string, enabled bool, timeout time.Duration) *SemanticClient {
	if timeout <= 0 {
		timeout = DefaultSemanticTimeout
	}
	return &SemanticClient{
		url:     url,
		enabled: enabled,
		client:  &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether the vector path is configured on.
func (c *SemanticClient) Enabled() bool {
	return c.enabled
}

type semanticRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type semanticHit struct {
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
	Source    string  `json:"source"`
	ID        string  `json:"id"`
	Timestamp string  `json:"timestamp"`
}

type semanticResponse struct {
	Results []semanticHit `json:"results"`
}

// Search posts the query to the service and maps its hits into Results.
// Any failure, from a refused connection to malformed JSON, yields an
// empty list and never an error.
func (c *SemanticClient) Search(ctx context.Context, query string, limit int) []Result {
	if !c.enabled {
		return nil
	}

	body, err := json.Marshal(semanticRequest{Query: query, Limit: limit})
	if err != nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var parsed semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil
	}

	var results []Result
	for _, hit := range parsed.Results {
		content := hit.Content
		if len(content) > vectorPreviewLen {
			content = content[:clampToRune(content, vectorPreviewLen)]
		}
		results = append(results, Result{
			Type:      TypeVector,
			Entity:    hit.Source,
			Content:   content,
			Score:     hit.Score,
			Timestamp: hit.Timestamp,
			Category:  "semantic",
			Source:    fmt.Sprintf("semantic#%s", hit.ID),
		})
	}
	return results
}
