package store

import (
	"database/sql"
	"fmt"
	"time"
)

// IndexEntry records the first sighting of a content fingerprint.
type IndexEntry struct {
	Fingerprint string
	FirstSeen   string
	Source      string
	Preview     string // truncated normalized text
}

// RegisterFingerprint inserts an entry if the fingerprint is unknown.
// Idempotent: re-registering leaves the original firstSeen and source intact.
func (db *DB) RegisterFingerprint(e IndexEntry) error {
	if e.FirstSeen == "" {
		e.FirstSeen = time.Now().Format(time.RFC3339)
	}
	_, err := db.Exec(`
		INSERT OR IGNORE INTO fingerprints (fingerprint, first_seen, source, preview)
		VALUES (?, ?, ?, ?)
	`, e.Fingerprint, e.FirstSeen, e.Source, e.Preview)
	if err != nil {
		return fmt.Errorf("register fingerprint: %w", err)
	}
	return nil
}

// LookupFingerprint returns the entry for a fingerprint, or nil if unknown.
func (db *DB) LookupFingerprint(fingerprint string) (*IndexEntry, error) {
	var e IndexEntry
	var source, preview sql.NullString
	err := db.QueryRow(`
		SELECT fingerprint, first_seen, source, preview FROM fingerprints WHERE fingerprint = ?
	`, fingerprint).Scan(&e.Fingerprint, &e.FirstSeen, &source, &preview)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup fingerprint: %w", err)
	}
	e.Source = source.String
	e.Preview = preview.String
	return &e, nil
}

// ClearFingerprints empties the index. Used by rebuilds: the index is a
// derived cache, not a source of truth.
func (db *DB) ClearFingerprints() error {
	if _, err := db.Exec(`DELETE FROM fingerprints`); err != nil {
		return fmt.Errorf("clear fingerprints: %w", err)
	}
	return nil
}

// CountFingerprints returns the number of index entries.
func (db *DB) CountFingerprints() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM fingerprints`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count fingerprints: %w", err)
	}
	return n, nil
}

// FingerprintSourceCounts returns entry counts grouped by source kind:
// entity facts vs note documents vs anything else.
func (db *DB) FingerprintSourceCounts() (map[string]int, error) {
	rows, err := db.Query(`SELECT COALESCE(source, '') FROM fingerprints`)
	if err != nil {
		return nil, fmt.Errorf("fingerprint sources: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("scan fingerprint source: %w", err)
		}
		counts[sourceKind(source)]++
	}
	return counts, rows.Err()
}

func sourceKind(source string) string {
	switch {
	case source == "":
		return "unknown"
	case len(source) > 3 && source[len(source)-3:] == ".md":
		return "notes"
	default:
		return "facts"
	}
}
