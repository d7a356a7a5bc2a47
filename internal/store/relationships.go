package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Relationship is a directed, labeled edge between two entity keys.
// (From, To, Relation) is unique; re-adding an existing edge is a no-op.
type Relationship struct {
	From     string
	To       string
	Relation string
	Since    string // date, YYYY-MM-DD
	Source   string // provenance reference, e.g. "people/john#ab12cd34"
}

// AddRelationship inserts an edge if it does not already exist.
// Returns false (and no error) when the edge was already present —
// duplicates are an expected steady-state outcome, not a failure.
func (db *DB) AddRelationship(r Relationship) (added bool, err error) {
	if r.From == "" || r.To == "" || r.Relation == "" {
		return false, fmt.Errorf("add relationship: from, to and relation required")
	}
	if r.Since == "" {
		r.Since = time.Now().Format("2006-01-02")
	}

	res, err := db.Exec(`
		INSERT OR IGNORE INTO relationships (from_entity, to_entity, relation, since, source)
		VALUES (?, ?, ?, ?, ?)
	`, r.From, r.To, r.Relation, r.Since, r.Source)
	if err != nil {
		return false, fmt.Errorf("add relationship: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// AllRelationships returns every stored edge in insertion order.
func (db *DB) AllRelationships() ([]Relationship, error) {
	rows, err := db.Query(`
		SELECT from_entity, to_entity, relation, since, source
		FROM relationships ORDER BY rowid_pk
	`)
	if err != nil {
		return nil, fmt.Errorf("all relationships: %w", err)
	}
	defer rows.Close()

	var rels []Relationship
	for rows.Next() {
		var r Relationship
		var since, source sql.NullString
		if err := rows.Scan(&r.From, &r.To, &r.Relation, &since, &source); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		r.Since = since.String
		r.Source = source.String
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// MergeRelationships inserts only edges not already present and reports
// how many were new.
func (db *DB) MergeRelationships(rels []Relationship) (int, error) {
	merged := 0
	for _, r := range rels {
		added, err := db.AddRelationship(r)
		if err != nil {
			return merged, err
		}
		if added {
			merged++
		}
	}
	return merged, nil
}

// RelationCounts returns edge counts grouped by relation label.
func (db *DB) RelationCounts() (map[string]int, error) {
	rows, err := db.Query(`
		SELECT relation, COUNT(*) FROM relationships GROUP BY relation
	`)
	if err != nil {
		return nil, fmt.Errorf("relation counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var relation string
		var n int
		if err := rows.Scan(&relation, &n); err != nil {
			return nil, fmt.Errorf("scan relation count: %w", err)
		}
		counts[relation] = n
	}
	return counts, rows.Err()
}
