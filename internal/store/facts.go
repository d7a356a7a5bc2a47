package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fact statuses. Among one entity's active facts no two may share a
// content fingerprint; supersession is the only other state.
const (
	StatusActive     = "active"
	StatusSuperseded = "superseded"
)

// Fact is a single piece of information attached to one entity.
type Fact struct {
	Entity       string // composite key "type/name"
	ID           string // unique within the entity
	Fact         string
	Category     string
	Type         string // classification, produced externally
	Timestamp    string // creation date, YYYY-MM-DD
	Status       string
	SupersededBy string
	LastAccessed string
	AccessCount  int
}

// EntityKey builds a stable "type/name" key. Name normalization (lowercase,
// spaces to hyphens, dots stripped) happens once here and never changes.
func EntityKey(entityType, name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, " ", "-")
	n = strings.ReplaceAll(n, ".", "")
	return strings.ToLower(strings.TrimSpace(entityType)) + "/" + n
}

// SplitEntityKey splits a "type/name" key, returning an error for malformed keys.
func SplitEntityKey(key string) (entityType, name string, err error) {
	parts := strings.SplitN(key, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid entity key %q: want type/name", key)
	}
	return parts[0], parts[1], nil
}

// NewFactID generates a short unique fact ID.
func NewFactID() string {
	return uuid.NewString()[:8]
}

// CreateFact appends a fact to an entity. Missing fields get their defaults:
// a generated ID, active status, today's timestamp, access count 1.
func (db *DB) CreateFact(f *Fact) error {
	if f.Entity == "" {
		return fmt.Errorf("create fact: entity required")
	}
	if strings.TrimSpace(f.Fact) == "" {
		return fmt.Errorf("create fact: fact text required")
	}
	if f.ID == "" {
		f.ID = NewFactID()
	}
	if f.Status == "" {
		f.Status = StatusActive
	}
	if f.Timestamp == "" {
		f.Timestamp = time.Now().Format("2006-01-02")
	}
	if f.LastAccessed == "" {
		f.LastAccessed = f.Timestamp
	}
	if f.AccessCount == 0 {
		f.AccessCount = 1
	}

	_, err := db.Exec(`
		INSERT INTO facts (entity, id, fact, category, fact_type, timestamp, status, superseded_by, last_accessed, access_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?)
	`, f.Entity, f.ID, f.Fact, f.Category, f.Type, f.Timestamp, f.Status, f.SupersededBy, f.LastAccessed, f.AccessCount)
	if err != nil {
		return fmt.Errorf("create fact: %w", err)
	}
	return nil
}

// GetFact returns one fact by entity and ID, or nil if not found.
func (db *DB) GetFact(entity, id string) (*Fact, error) {
	var f Fact
	var supersededBy, lastAccessed sql.NullString
	err := db.QueryRow(`
		SELECT entity, id, fact, category, fact_type, timestamp, status, superseded_by, last_accessed, access_count
		FROM facts WHERE entity = ? AND id = ?
	`, entity, id).Scan(&f.Entity, &f.ID, &f.Fact, &f.Category, &f.Type,
		&f.Timestamp, &f.Status, &supersededBy, &lastAccessed, &f.AccessCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fact: %w", err)
	}
	f.SupersededBy = supersededBy.String
	f.LastAccessed = lastAccessed.String
	return &f, nil
}

// FactsForEntity returns all facts for an entity in insertion order.
func (db *DB) FactsForEntity(entity string) ([]Fact, error) {
	rows, err := db.Query(`
		SELECT entity, id, fact, category, fact_type, timestamp, status, superseded_by, last_accessed, access_count
		FROM facts WHERE entity = ? ORDER BY rowid_pk
	`, entity)
	if err != nil {
		return nil, fmt.Errorf("facts for entity: %w", err)
	}
	defer rows.Close()
	return scanFacts(rows)
}

// ActiveFacts returns an entity's active facts in insertion order.
func (db *DB) ActiveFacts(entity string) ([]Fact, error) {
	rows, err := db.Query(`
		SELECT entity, id, fact, category, fact_type, timestamp, status, superseded_by, last_accessed, access_count
		FROM facts WHERE entity = ? AND status = 'active' ORDER BY rowid_pk
	`, entity)
	if err != nil {
		return nil, fmt.Errorf("active facts: %w", err)
	}
	defer rows.Close()
	return scanFacts(rows)
}

// AllActiveFacts returns every active fact across every entity,
// ordered by entity key then insertion order. The order is deterministic
// so index rebuilds walk facts the same way every time.
func (db *DB) AllActiveFacts() ([]Fact, error) {
	rows, err := db.Query(`
		SELECT entity, id, fact, category, fact_type, timestamp, status, superseded_by, last_accessed, access_count
		FROM facts WHERE status = 'active' ORDER BY entity, rowid_pk
	`)
	if err != nil {
		return nil, fmt.Errorf("all active facts: %w", err)
	}
	defer rows.Close()
	return scanFacts(rows)
}

// AllEntities returns every distinct entity key that any fact references,
// sorted lexicographically.
func (db *DB) AllEntities() ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT entity FROM facts ORDER BY entity`)
	if err != nil {
		return nil, fmt.Errorf("all entities: %w", err)
	}
	defer rows.Close()

	var entities []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// RecordAccess sets lastAccessed to now and increments accessCount.
// This is the only mutator of those two fields.
func (db *DB) RecordAccess(entity, id string) error {
	res, err := db.Exec(`
		UPDATE facts SET last_accessed = ?, access_count = access_count + 1
		WHERE entity = ? AND id = ?
	`, time.Now().Format(time.RFC3339), entity, id)
	if err != nil {
		return fmt.Errorf("record access: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("record access: fact %s/%s not found", entity, id)
	}
	return nil
}

// SupersedeFact marks a fact superseded, recording the fact that replaced it.
func (db *DB) SupersedeFact(entity, id, byID string) error {
	res, err := db.Exec(`
		UPDATE facts SET status = 'superseded', superseded_by = ?
		WHERE entity = ? AND id = ? AND status = 'active'
	`, byID, entity, id)
	if err != nil {
		return fmt.Errorf("supersede fact: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("supersede fact: no active fact %s/%s", entity, id)
	}
	return nil
}

// CountFacts returns total and active fact counts.
func (db *DB) CountFacts() (total, active int, err error) {
	err = db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(status = 'active'), 0) FROM facts
	`).Scan(&total, &active)
	if err != nil {
		return 0, 0, fmt.Errorf("count facts: %w", err)
	}
	return total, active, nil
}

func scanFacts(rows *sql.Rows) ([]Fact, error) {
	var facts []Fact
	for rows.Next() {
		var f Fact
		var supersededBy, lastAccessed sql.NullString
		if err := rows.Scan(&f.Entity, &f.ID, &f.Fact, &f.Category, &f.Type,
			&f.Timestamp, &f.Status, &supersededBy, &lastAccessed, &f.AccessCount); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		f.SupersededBy = supersededBy.String
		f.LastAccessed = lastAccessed.String
		facts = append(facts, f)
	}
	return facts, rows.Err()
}
