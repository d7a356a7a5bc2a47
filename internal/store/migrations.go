package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "facts: per-entity fact records",
		SQL: `
CREATE TABLE facts (
    rowid_pk      INTEGER PRIMARY KEY,
    entity        TEXT NOT NULL,
    id            TEXT NOT NULL,
    fact          TEXT NOT NULL,
    category      TEXT,
    fact_type     TEXT,
    timestamp     TEXT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'superseded')),
    superseded_by TEXT,
    last_accessed TEXT,
    access_count  INTEGER NOT NULL DEFAULT 1,

    UNIQUE (entity, id)
);

CREATE INDEX idx_facts_entity ON facts(entity);
CREATE INDEX idx_facts_status ON facts(status);
`,
	},
	{
		Version:     2,
		Description: "relationships: directed labeled edges between entities",
		SQL: `
CREATE TABLE relationships (
    rowid_pk    INTEGER PRIMARY KEY,
    from_entity TEXT NOT NULL,
    to_entity   TEXT NOT NULL,
    relation    TEXT NOT NULL,
    since       TEXT,
    source      TEXT,

    UNIQUE (from_entity, to_entity, relation)
);

CREATE INDEX idx_rel_from ON relationships(from_entity);
CREATE INDEX idx_rel_to   ON relationships(to_entity);
`,
	},
	{
		Version:     3,
		Description: "fingerprints: content hash index for deduplication",
		SQL: `
CREATE TABLE fingerprints (
    fingerprint TEXT PRIMARY KEY,
    first_seen  TEXT NOT NULL,
    source      TEXT,
    preview     TEXT
);
`,
	},
	{
		Version:     4,
		Description: "sequences: opaque behavioral-sequence records",
		SQL: `
CREATE TABLE sequences (
    rowid_pk   INTEGER PRIMARY KEY,
    payload    TEXT NOT NULL,
    created_at TEXT NOT NULL
);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
