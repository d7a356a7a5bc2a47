package store

import (
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrations(t *testing.T) {
	db := testDB(t)

	version, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("schema version = %d, want %d", version, len(migrations))
	}

	// Migrations are idempotent — re-running is a no-op
	if err := db.migrate(); err != nil {
		t.Fatalf("re-migrate: %v", err)
	}
}

func TestEntityKey(t *testing.T) {
	tests := []struct {
		entityType, name, want string
	}{
		{"people", "John Smith", "people/john-smith"},
		{"companies", "Acme Corp.", "companies/acme-corp"},
		{"projects", "app", "projects/app"},
		{"People", "  Jane  ", "people/jane"},
	}
	for _, tt := range tests {
		got := EntityKey(tt.entityType, tt.name)
		if got != tt.want {
			t.Errorf("EntityKey(%q, %q) = %q, want %q", tt.entityType, tt.name, got, tt.want)
		}
	}
}

func TestSplitEntityKey(t *testing.T) {
	entityType, name, err := SplitEntityKey("people/john")
	if err != nil {
		t.Fatalf("SplitEntityKey: %v", err)
	}
	if entityType != "people" || name != "john" {
		t.Errorf("got %s/%s, want people/john", entityType, name)
	}

	if _, _, err := SplitEntityKey("no-slash"); err == nil {
		t.Error("expected error for key without slash")
	}
	if _, _, err := SplitEntityKey("/missing-type"); err == nil {
		t.Error("expected error for empty type")
	}
}
