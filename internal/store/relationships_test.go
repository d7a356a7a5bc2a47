package store

import (
	"testing"
)

func TestAddRelationshipIdempotent(t *testing.T) {
	db := testDB(t)

	added, err := db.AddRelationship(Relationship{From: "people/john", To: "companies/acme", Relation: "works_at"})
	if err != nil {
		t.Fatalf("AddRelationship: %v", err)
	}
	if !added {
		t.Error("first add should report added=true")
	}

	added, err = db.AddRelationship(Relationship{From: "people/john", To: "companies/acme", Relation: "works_at"})
	if err != nil {
		t.Fatalf("second AddRelationship: %v", err)
	}
	if added {
		t.Error("second add should report added=false")
	}

	rels, err := db.AllRelationships()
	if err != nil {
		t.Fatalf("AllRelationships: %v", err)
	}
	if len(rels) != 1 {
		t.Errorf("stored edges = %d, want 1", len(rels))
	}
	if rels[0].Since == "" {
		t.Error("since should default to today")
	}
}

func TestAddRelationshipDistinctLabels(t *testing.T) {
	db := testDB(t)

	db.AddRelationship(Relationship{From: "people/john", To: "companies/acme", Relation: "works_at"})
	added, err := db.AddRelationship(Relationship{From: "people/john", To: "companies/acme", Relation: "mentions"})
	if err != nil {
		t.Fatalf("AddRelationship: %v", err)
	}
	if !added {
		t.Error("same pair with a different relation is a distinct edge")
	}
}

func TestAddRelationshipValidation(t *testing.T) {
	db := testDB(t)

	if _, err := db.AddRelationship(Relationship{From: "people/john", Relation: "knows"}); err == nil {
		t.Error("expected error for missing to")
	}
}

func TestMergeRelationships(t *testing.T) {
	db := testDB(t)

	db.AddRelationship(Relationship{From: "a/x", To: "b/y", Relation: "knows"})

	merged, err := db.MergeRelationships([]Relationship{
		{From: "a/x", To: "b/y", Relation: "knows"},    // existing
		{From: "a/x", To: "b/y", Relation: "mentions"}, // new
		{From: "b/y", To: "a/x", Relation: "knows"},    // new
	})
	if err != nil {
		t.Fatalf("MergeRelationships: %v", err)
	}
	if merged != 2 {
		t.Errorf("merged = %d, want 2", merged)
	}
}

func TestRelationCounts(t *testing.T) {
	db := testDB(t)

	db.AddRelationship(Relationship{From: "a/x", To: "b/y", Relation: "knows"})
	db.AddRelationship(Relationship{From: "a/x", To: "c/z", Relation: "knows"})
	db.AddRelationship(Relationship{From: "b/y", To: "c/z", Relation: "mentions"})

	counts, err := db.RelationCounts()
	if err != nil {
		t.Fatalf("RelationCounts: %v", err)
	}
	if counts["knows"] != 2 || counts["mentions"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
