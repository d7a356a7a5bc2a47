package dedup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lazypower/recall/internal/store"
)

func testChecker(t *testing.T) (*Checker, *store.DB, string) {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	notesDir := t.TempDir()
	return NewChecker(db, notesDir), db, notesDir
}

func TestCheckThenRegister(t *testing.T) {
	c, _, _ := testChecker(t)

	res, err := c.CheckDuplicate("John works at Acme")
	if err != nil {
		t.Fatalf("CheckDuplicate: %v", err)
	}
	if res.IsDuplicate {
		t.Error("fresh text flagged as duplicate")
	}

	if _, err := c.RegisterContent("John works at Acme", "people/john#ab12"); err != nil {
		t.Fatalf("RegisterContent: %v", err)
	}

	// The check must catch normalized variants of the registered text.
	res, err = c.CheckDuplicate("john works at the Acme.")
	if err != nil {
		t.Fatalf("CheckDuplicate: %v", err)
	}
	if !res.IsDuplicate {
		t.Fatal("variant not flagged as duplicate")
	}
	if res.OriginalSource != "people/john#ab12" {
		t.Errorf("original source = %q", res.OriginalSource)
	}
}

func TestCheckDoesNotRegister(t *testing.T) {
	c, db, _ := testChecker(t)

	if _, err := c.CheckDuplicate("only checked, never stored"); err != nil {
		t.Fatalf("CheckDuplicate: %v", err)
	}
	n, _ := db.CountFingerprints()
	if n != 0 {
		t.Errorf("check registered %d fingerprints, want 0", n)
	}
}

func TestRegisterIdempotent(t *testing.T) {
	c, db, _ := testChecker(t)

	fp1, err := c.RegisterContent("same text", "people/a#1")
	if err != nil {
		t.Fatalf("RegisterContent: %v", err)
	}
	fp2, err := c.RegisterContent("same text", "people/b#2")
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if fp1 != fp2 {
		t.Errorf("fingerprints differ: %s vs %s", fp1, fp2)
	}

	entry, err := db.LookupFingerprint(fp1)
	if err != nil {
		t.Fatalf("LookupFingerprint: %v", err)
	}
	if entry.Source != "people/a#1" {
		t.Errorf("source = %q, want first registration kept", entry.Source)
	}
}

func TestRebuildIndexWalksFactsAndNotes(t *testing.T) {
	c, db, notesDir := testChecker(t)

	db.CreateFact(&store.Fact{Entity: "people/john", Fact: "John works at Acme Corporation", Timestamp: "2026-01-05"})
	db.CreateFact(&store.Fact{Entity: "people/sarah", Fact: "Sarah leads the platform team", Timestamp: "2026-01-06"})

	note := "Had a long discussion about roadmap.\n\nJohn works at the Acme Corporation.\n\nshort"
	if err := os.WriteFile(filepath.Join(notesDir, "2026-02-01.md"), []byte(note), 0644); err != nil {
		t.Fatalf("write note: %v", err)
	}

	report, err := c.RebuildIndex()
	if err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}

	// 2 facts + 2 qualifying paragraphs; "short" is below the length floor.
	if report.TotalProcessed != 4 {
		t.Errorf("processed = %d, want 4", report.TotalProcessed)
	}
	if report.IndexSize != 3 {
		t.Errorf("index size = %d, want 3", report.IndexSize)
	}
	if len(report.Duplicates) != 1 {
		t.Fatalf("duplicates = %d, want 1", len(report.Duplicates))
	}

	// Facts are walked before notes, so the fact owns the fingerprint.
	d := report.Duplicates[0]
	if d.OriginalSource != "people/john#"+factID(t, db, "people/john") {
		t.Errorf("original source = %q", d.OriginalSource)
	}
	if d.DuplicateSource != filepath.Join(notesDir, "2026-02-01.md") {
		t.Errorf("duplicate source = %q", d.DuplicateSource)
	}
}

func TestRebuildIndexDeterministic(t *testing.T) {
	c, db, _ := testChecker(t)

	db.CreateFact(&store.Fact{Entity: "people/zed", Fact: "Zed maintains the billing system"})
	db.CreateFact(&store.Fact{Entity: "people/amy", Fact: "Amy maintains the billing system"})

	first, err := c.RebuildIndex()
	if err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	second, err := c.RebuildIndex()
	if err != nil {
		t.Fatalf("second RebuildIndex: %v", err)
	}
	if first.IndexSize != second.IndexSize || first.TotalProcessed != second.TotalProcessed {
		t.Errorf("rebuild not stable: %+v vs %+v", first, second)
	}

	n, _ := db.CountFingerprints()
	if n != first.IndexSize {
		t.Errorf("stored fingerprints = %d, want %d", n, first.IndexSize)
	}
}

func TestRebuildIndexSurfacesWriteErrors(t *testing.T) {
	c, db, _ := testChecker(t)

	db.CreateFact(&store.Fact{Entity: "people/john", Fact: "John works at Acme Corporation"})

	// Clearing the index still works but registrations fail, so a rebuild
	// that silently dropped write errors would report a clean run over an
	// empty index.
	_, err := db.Exec(`CREATE TRIGGER fingerprints_readonly BEFORE INSERT ON fingerprints
		BEGIN SELECT RAISE(ABORT, 'fingerprints unavailable'); END`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	if _, err := c.RebuildIndex(); err == nil {
		t.Fatal("RebuildIndex succeeded with a failing index write")
	}
}

func TestRebuildSupersededExcluded(t *testing.T) {
	c, db, _ := testChecker(t)

	old := store.Fact{Entity: "people/john", Fact: "John works at OldCo"}
	db.CreateFact(&old)
	db.CreateFact(&store.Fact{Entity: "people/john", ID: "new1", Fact: "John works at Acme"})
	if err := db.SupersedeFact("people/john", old.ID, "new1"); err != nil {
		t.Fatalf("SupersedeFact: %v", err)
	}

	report, err := c.RebuildIndex()
	if err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	if report.TotalProcessed != 1 {
		t.Errorf("processed = %d, want active facts only", report.TotalProcessed)
	}
}

func TestWordOverlap(t *testing.T) {
	if got := WordOverlap("john works at acme", "john works at acme corp"); got != 1.0 {
		t.Errorf("subset overlap = %f, want 1.0", got)
	}
	if got := WordOverlap("alpha beta", "gamma delta"); got != 0 {
		t.Errorf("disjoint overlap = %f, want 0", got)
	}
	if got := WordOverlap("", "anything"); got != 0 {
		t.Errorf("empty overlap = %f, want 0", got)
	}
}

func TestNearDuplicate(t *testing.T) {
	existing := []store.Fact{
		{Fact: "John works at Acme Corporation in Boston"},
	}

	if !NearDuplicate("  JOHN WORKS AT ACME CORPORATION IN BOSTON ", existing) {
		t.Error("case and whitespace variant should match")
	}
	if !NearDuplicate("John works at Acme Corporation in Boston today", existing) {
		t.Error("high-overlap variant should match")
	}
	if NearDuplicate("Sarah prefers morning meetings", existing) {
		t.Error("unrelated text should not match")
	}
	if NearDuplicate("anything", nil) {
		t.Error("no existing facts, nothing to match")
	}
}

func factID(t *testing.T, db *store.DB, entity string) string {
	t.Helper()
	facts, err := db.ActiveFacts(entity)
	if err != nil || len(facts) == 0 {
		t.Fatalf("facts for %s: %v", entity, err)
	}
	return facts[0].ID
}
