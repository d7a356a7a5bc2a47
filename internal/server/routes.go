package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lazypower/recall/internal/dedup"
	"github.com/lazypower/recall/internal/graph"
	"github.com/lazypower/recall/internal/search"
	"github.com/lazypower/recall/internal/store"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, `{"error":"q parameter required"}`, http.StatusBadRequest)
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "hybrid"
	}

	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	var results []search.Result
	var err error
	switch mode {
	case "keyword":
		results, err = s.hybrid.Keyword.Search(query, limit)
	case "vector":
		results = s.hybrid.Vector.Search(r.Context(), query, limit)
	case "hybrid":
		results, err = s.hybrid.Search(r.Context(), query, limit)
	default:
		http.Error(w, `{"error":"mode must be hybrid, keyword or vector"}`, http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"query":   query,
		"mode":    mode,
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleCreateFact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityType string `json:"entity_type"`
		Name       string `json:"name"`
		Fact       string `json:"fact"`
		Category   string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.EntityType == "" || req.Name == "" || req.Fact == "" {
		http.Error(w, `{"error":"entity_type, name and fact required"}`, http.StatusBadRequest)
		return
	}

	entity := store.EntityKey(req.EntityType, req.Name)

	// The write gate: exact fingerprint first, then the fuzzy overlap
	// check against the entity's active facts. A duplicate is an expected
	// outcome, reported with 200 rather than an error status.
	check, err := s.checker.CheckDuplicate(req.Fact)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if check.IsDuplicate {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":          "duplicate",
			"fingerprint":     check.Fingerprint,
			"first_seen":      check.FirstSeen,
			"original_source": check.OriginalSource,
		})
		return
	}

	active, err := s.db.ActiveFacts(entity)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if dedup.NearDuplicate(req.Fact, active) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "near_duplicate",
			"entity": entity,
		})
		return
	}

	fact := store.Fact{Entity: entity, Fact: req.Fact, Category: req.Category}
	if err := s.db.CreateFact(&fact); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if _, err := s.checker.RegisterContent(fact.Fact, entity+"#"+fact.ID); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"status": "created",
		"entity": entity,
		"id":     fact.ID,
	})
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	entities, err := s.db.AllEntities()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":    len(entities),
		"entities": entities,
	})
}

func (s *Server) handleEntityFacts(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entityType") + "/" + chi.URLParam(r, "name")

	facts, err := s.db.ActiveFacts(entity)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	if r.URL.Query().Get("ranked") == "true" {
		ranked := s.scorer().Rank(facts, limit)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"entity": entity,
			"count":  len(ranked),
			"facts":  ranked,
		})
		return
	}

	if limit > 0 && len(facts) > limit {
		facts = facts[:limit]
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"entity": entity,
		"count":  len(facts),
		"facts":  facts,
	})
}

func (s *Server) handleRecordAccess(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entityType") + "/" + chi.URLParam(r, "name")
	factID := chi.URLParam(r, "factID")

	if err := s.db.RecordAccess(entity, factID); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleSupersede(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entityType") + "/" + chi.URLParam(r, "name")
	factID := chi.URLParam(r, "factID")

	var req struct {
		By string `json:"by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.By == "" {
		http.Error(w, `{"error":"by required"}`, http.StatusBadRequest)
		return
	}

	if err := s.db.SupersedeFact(entity, factID, req.By); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "superseded"})
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entityType") + "/" + chi.URLParam(r, "name")

	depth := s.cfg.Graph.DefaultDepth
	if d := r.URL.Query().Get("depth"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil {
			http.Error(w, `{"error":"depth must be an integer"}`, http.StatusBadRequest)
			return
		}
		depth = n
	}
	direction := r.URL.Query().Get("direction")
	if direction == "" {
		direction = graph.DirectionBoth
	}

	g, err := graph.Load(s.db)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	connections, err := g.Traverse(entity, depth, direction)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"entity":      entity,
		"depth":       depth,
		"direction":   direction,
		"connections": connections,
	})
}

func (s *Server) handleAddRelationship(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From     string `json:"from"`
		To       string `json:"to"`
		Relation string `json:"relation"`
		Since    string `json:"since"`
		Source   string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	added, err := s.db.AddRelationship(store.Relationship{
		From:     req.From,
		To:       req.To,
		Relation: req.Relation,
		Since:    req.Since,
		Source:   req.Source,
	})
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	status := "added"
	if !added {
		status = "exists"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"added":  added,
	})
}

func (s *Server) handleScanRelationships(w http.ResponseWriter, r *http.Request) {
	found, merged, err := s.detector.DetectAndMerge()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"detected": len(found),
		"merged":   merged,
	})
}

func (s *Server) handleDedupCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, `{"error":"text required"}`, http.StatusBadRequest)
		return
	}

	result, err := s.checker.CheckDuplicate(req.Text)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleDedupRebuild(w http.ResponseWriter, r *http.Request) {
	report, err := s.checker.RebuildIndex()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (s *Server) handleDedupStats(w http.ResponseWriter, r *http.Request) {
	total, err := s.db.CountFingerprints()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	sources, err := s.db.FingerprintSourceCounts()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"fingerprints": total,
		"sources":      sources,
	})
}

// Behavioral-sequence records are opaque payloads stored for external
// pattern analyzers. The engine persists and returns them untouched.
func (s *Server) handleAppendSequence(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payload string `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Payload == "" {
		http.Error(w, `{"error":"payload required"}`, http.StatusBadRequest)
		return
	}

	if err := s.db.AppendSequence(req.Payload); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"status": "stored"})
}

func (s *Server) handleListSequences(w http.ResponseWriter, r *http.Request) {
	payloads, err := s.db.ListSequences()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":     len(payloads),
		"sequences": payloads,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total, active, err := s.db.CountFacts()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	entities, err := s.db.AllEntities()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	relations, err := s.db.RelationCounts()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	fingerprints, err := s.db.CountFingerprints()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	fpSources, err := s.db.FingerprintSourceCounts()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"facts": map[string]int{
			"total":  total,
			"active": active,
		},
		"entities":            len(entities),
		"relations":           relations,
		"fingerprints":        fingerprints,
		"fingerprint_sources": fpSources,
	})
}
