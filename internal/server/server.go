// Package server exposes the recall engine over HTTP: fact writes gated
// by dedup, ranked retrieval, graph traversal and index maintenance.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lazypower/recall/internal/config"
	"github.com/lazypower/recall/internal/dedup"
	"github.com/lazypower/recall/internal/graph"
	"github.com/lazypower/recall/internal/salience"
	"github.com/lazypower/recall/internal/search"
	"github.com/lazypower/recall/internal/store"
)

// Server is the recall HTTP API server.
type Server struct {
	db       *store.DB
	checker  *dedup.Checker
	detector *graph.Detector
	hybrid   *search.Hybrid
	cfg      config.Config
	router   chi.Router
	version  string
	started  time.Time
}

// New creates a Server wired to the given database and configuration.
func New(db *store.DB, cfg config.Config, version string) *Server {
	notesDir := cfg.NotesPath()
	keyword := search.NewKeyword(db, notesDir)
	vector := search.NewSemanticClient(cfg.SemanticURL(), cfg.Semantic.Enabled,
		time.Duration(cfg.Semantic.TimeoutSeconds)*time.Second)

	s := &Server{
		db:       db,
		checker:  dedup.NewChecker(db, notesDir),
		detector: graph.NewDetector(db, notesDir, nil),
		hybrid:   search.NewHybrid(keyword, vector, cfg.Search.VectorWeight, cfg.Search.KeywordWeight),
		cfg:      cfg,
		version:  version,
		started:  time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)

		r.Get("/search", s.handleSearch)

		r.Post("/facts", s.handleCreateFact)
		r.Get("/entities", s.handleListEntities)
		r.Get("/entities/{entityType}/{name}/facts", s.handleEntityFacts)
		r.Post("/entities/{entityType}/{name}/facts/{factID}/access", s.handleRecordAccess)
		r.Post("/entities/{entityType}/{name}/facts/{factID}/supersede", s.handleSupersede)
		r.Get("/entities/{entityType}/{name}/connections", s.handleConnections)

		r.Post("/relationships", s.handleAddRelationship)
		r.Post("/relationships/scan", s.handleScanRelationships)

		r.Post("/dedup/check", s.handleDedupCheck)
		r.Post("/dedup/rebuild", s.handleDedupRebuild)
		r.Get("/dedup/stats", s.handleDedupStats)

		r.Post("/sequences", s.handleAppendSequence)
		r.Get("/sequences", s.handleListSequences)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}

// scorer builds a salience scorer from the configured decay window.
func (s *Server) scorer() *salience.Scorer {
	return salience.NewScorer(s.cfg.Salience.MaxDays)
}
