package store

import (
	"fmt"
	"time"
)

// Behavioral-sequence records travel alongside relationships in the
// persisted pattern set. They are opaque to the engine: stored, listed,
// never interpreted here.

// AppendSequence stores one opaque JSON payload.
func (db *DB) AppendSequence(payload string) error {
	_, err := db.Exec(`
		INSERT INTO sequences (payload, created_at) VALUES (?, ?)
	`, payload, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("append sequence: %w", err)
	}
	return nil
}

// ListSequences returns all stored payloads in insertion order.
func (db *DB) ListSequences() ([]string, error) {
	rows, err := db.Query(`SELECT payload FROM sequences ORDER BY rowid_pk`)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()

	var payloads []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		payloads = append(payloads, p)
	}
	return payloads, rows.Err()
}
