package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestCreateFact(t *testing.T) {
	srv := testServer(t)

	w := postJSON(t, srv, "/api/facts",
		`{"entity_type":"people","name":"John Smith","fact":"John works at Acme Corp","category":"work"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "created" {
		t.Errorf("status = %v, want created", resp["status"])
	}
	if resp["entity"] != "people/john-smith" {
		t.Errorf("entity = %v, want people/john-smith", resp["entity"])
	}
	if resp["id"] == "" {
		t.Error("expected generated fact id")
	}
}

func TestCreateFactDuplicate(t *testing.T) {
	srv := testServer(t)

	body := `{"entity_type":"people","name":"John","fact":"John works at Acme Corp"}`
	w := postJSON(t, srv, "/api/facts", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("first write status = %d; body: %s", w.Code, w.Body.String())
	}

	// Same content with different casing and punctuation: the fingerprint
	// gate reports a duplicate outcome, not an error.
	w = postJSON(t, srv, "/api/facts",
		`{"entity_type":"people","name":"John","fact":"john works at the acme corp."}`)
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "duplicate" {
		t.Errorf("status = %v, want duplicate", resp["status"])
	}
	if resp["original_source"] == "" {
		t.Error("expected original source in duplicate report")
	}
}

func TestCreateFactNearDuplicate(t *testing.T) {
	srv := testServer(t)

	w := postJSON(t, srv, "/api/facts",
		`{"entity_type":"people","name":"John","fact":"John works at Acme Corporation in Boston"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("first write status = %d", w.Code)
	}

	// Not fingerprint-identical but overlapping enough for the fuzzy gate.
	w = postJSON(t, srv, "/api/facts",
		`{"entity_type":"people","name":"John","fact":"John works at Acme Corporation in Boston downtown"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("near-duplicate status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "near_duplicate" {
		t.Errorf("status = %v, want near_duplicate", resp["status"])
	}
}

func TestCreateFactMissingFields(t *testing.T) {
	srv := testServer(t)

	w := postJSON(t, srv, "/api/facts", `{"entity_type":"people","name":"John"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestEntityFactsRanked(t *testing.T) {
	srv := testServer(t)

	postJSON(t, srv, "/api/facts", `{"entity_type":"people","name":"John","fact":"John works at Acme"}`)
	postJSON(t, srv, "/api/facts", `{"entity_type":"people","name":"John","fact":"John prefers tea"}`)

	w := get(t, srv, "/api/entities/people/john/facts?ranked=true")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Entity string `json:"entity"`
		Count  int    `json:"count"`
		Facts  []struct {
			Score float64 `json:"score"`
		} `json:"facts"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Entity != "people/john" || resp.Count != 2 {
		t.Errorf("entity = %s, count = %d", resp.Entity, resp.Count)
	}
	for _, f := range resp.Facts {
		if f.Score <= 0 {
			t.Errorf("score = %f, want > 0 for fresh fact", f.Score)
		}
	}
}

func TestRecordAccess(t *testing.T) {
	srv := testServer(t)

	w := postJSON(t, srv, "/api/facts", `{"entity_type":"people","name":"John","fact":"John works at Acme"}`)
	var created map[string]any
	json.Unmarshal(w.Body.Bytes(), &created)
	id := created["id"].(string)

	w = postJSON(t, srv, "/api/entities/people/john/facts/"+id+"/access", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	w = postJSON(t, srv, "/api/entities/people/john/facts/missing/access", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d for unknown fact", w.Code, http.StatusNotFound)
	}
}

func TestAddRelationshipIdempotent(t *testing.T) {
	srv := testServer(t)

	body := `{"from":"people/john","to":"companies/acme","relation":"works_at"}`
	w := postJSON(t, srv, "/api/relationships", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["added"] != true {
		t.Errorf("added = %v, want true", resp["added"])
	}

	w = postJSON(t, srv, "/api/relationships", body)
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["added"] != false || resp["status"] != "exists" {
		t.Errorf("second add = %v", resp)
	}
}

func TestConnections(t *testing.T) {
	srv := testServer(t)

	postJSON(t, srv, "/api/relationships", `{"from":"people/john","to":"companies/acme","relation":"works_at"}`)

	w := get(t, srv, "/api/entities/people/john/connections?depth=2&direction=out")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Connections map[string][]struct {
			Entity string `json:"entity"`
			Type   string `json:"type"`
		} `json:"connections"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	depth1 := resp.Connections["1"]
	if len(depth1) != 1 || depth1[0].Entity != "companies/acme" || depth1[0].Type != "outbound" {
		t.Errorf("connections = %+v", resp.Connections)
	}
}

func TestConnectionsInvalidDepth(t *testing.T) {
	srv := testServer(t)

	postJSON(t, srv, "/api/relationships", `{"from":"people/john","to":"companies/acme","relation":"works_at"}`)

	w := get(t, srv, "/api/entities/people/john/connections?depth=0")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestScanRelationships(t *testing.T) {
	srv := testServer(t)

	postJSON(t, srv, "/api/facts", `{"entity_type":"people","name":"John","fact":"John works at Acme"}`)
	postJSON(t, srv, "/api/facts", `{"entity_type":"companies","name":"Acme","fact":"Acme makes anvils"}`)

	w := postJSON(t, srv, "/api/relationships/scan", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["merged"] == float64(0) {
		t.Errorf("merged = %v, want new edges", resp["merged"])
	}

	// Second scan finds the same edges but stores nothing new.
	w = postJSON(t, srv, "/api/relationships/scan", "")
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["merged"] != float64(0) {
		t.Errorf("second scan merged = %v, want 0", resp["merged"])
	}
}

func TestDedupCheckAndRebuild(t *testing.T) {
	srv := testServer(t)

	postJSON(t, srv, "/api/facts", `{"entity_type":"people","name":"John","fact":"John works at Acme Corp"}`)

	w := postJSON(t, srv, "/api/dedup/check", `{"text":"john works at acme corp"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var check map[string]any
	json.Unmarshal(w.Body.Bytes(), &check)
	if check["is_duplicate"] != true {
		t.Errorf("is_duplicate = %v, want true", check["is_duplicate"])
	}

	w = postJSON(t, srv, "/api/dedup/rebuild", "")
	if w.Code != http.StatusOK {
		t.Fatalf("rebuild status = %d; body: %s", w.Code, w.Body.String())
	}
	var report map[string]any
	json.Unmarshal(w.Body.Bytes(), &report)
	if report["total_processed"] != float64(1) {
		t.Errorf("total_processed = %v, want 1", report["total_processed"])
	}
}

func TestSearchKeywordMode(t *testing.T) {
	srv := testServer(t)

	postJSON(t, srv, "/api/facts", `{"entity_type":"people","name":"John","fact":"John works at Acme Corp"}`)

	w := get(t, srv, "/api/search?q=acme&mode=hybrid&limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Count   int `json:"count"`
		Results []struct {
			SearchType string `json:"search_type"`
		} `json:"results"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	// Semantic service is disabled in tests; everything comes from keyword.
	if resp.Results[0].SearchType != "keyword" {
		t.Errorf("search_type = %q, want keyword", resp.Results[0].SearchType)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	srv := testServer(t)

	w := get(t, srv, "/api/search")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = get(t, srv, "/api/search?q=acme&mode=psychic")
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown mode status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSequences(t *testing.T) {
	srv := testServer(t)

	w := postJSON(t, srv, "/api/sequences", `{"payload":"{\"pattern\":\"standup\"}"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	w = get(t, srv, "/api/sequences")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Count     int      `json:"count"`
		Sequences []string `json:"sequences"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 1 || len(resp.Sequences) != 1 {
		t.Errorf("sequences = %+v", resp)
	}
}

func TestSupersedeFact(t *testing.T) {
	srv := testServer(t)

	w := postJSON(t, srv, "/api/facts", `{"entity_type":"people","name":"John","fact":"John works at OldCo"}`)
	var created map[string]any
	json.Unmarshal(w.Body.Bytes(), &created)
	oldID := created["id"].(string)

	w = postJSON(t, srv, "/api/facts", `{"entity_type":"people","name":"John","fact":"John moved to Initech"}`)
	json.Unmarshal(w.Body.Bytes(), &created)
	newID := created["id"].(string)

	w = postJSON(t, srv, "/api/entities/people/john/facts/"+oldID+"/supersede", `{"by":"`+newID+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	// Superseded facts drop out of the active list.
	w = get(t, srv, "/api/entities/people/john/facts")
	var resp struct {
		Count int `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 1 {
		t.Errorf("active facts = %d, want 1", resp.Count)
	}
}
