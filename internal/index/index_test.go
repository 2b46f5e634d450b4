package index

import (
	"path/filepath"
	"testing"

	"github.com/starford/meshdesk/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(MemoryDSN)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sample() []models.FileEntry {
	return []models.FileEntry{
		{FileName: "bracket.stl", FileObject: models.FileObject{Key: "b/0-bracket.stl"}},
		{FileName: "gear.stl", Problem: "warped teeth", Class: "Gear"},
		{FileName: "gear.stl", Class: "Spare"},
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries`).Scan(&count); err != nil {
		t.Fatalf("entries table missing: %v", err)
	}
}

func TestOpenFile(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if err := db.ReplaceEntries(sample()); err != nil {
		t.Fatalf("ReplaceEntries: %v", err)
	}
	if n, _ := db.Count(); n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestReplaceEntriesKeepsDuplicates(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceEntries(sample()); err != nil {
		t.Fatalf("ReplaceEntries: %v", err)
	}
	n, err := db.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestReplaceEntriesDiscardsPrevious(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceEntries(sample())
	if err := db.ReplaceEntries([]models.FileEntry{{FileName: "only.stl"}}); err != nil {
		t.Fatalf("ReplaceEntries: %v", err)
	}
	results, err := db.Search("gear", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("stale results after replace: %+v", results)
	}

	if err := db.ReplaceEntries(nil); err != nil {
		t.Fatalf("ReplaceEntries(nil): %v", err)
	}
	if n, _ := db.Count(); n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestUpdateEntry(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceEntries(sample())

	e := sample()[0]
	e.Problem = "cracked flange"
	if err := db.UpdateEntry(0, e); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	results, err := db.Search("flange", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Index != 0 || results[0].FileName != "bracket.stl" {
		t.Errorf("search results = %+v, want 1 hit at index 0", results)
	}
	if results[0].Problem != "cracked flange" {
		t.Errorf("problem = %q", results[0].Problem)
	}
}

func TestUpdateEntryOutOfRange(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceEntries(sample())
	if err := db.UpdateEntry(9, models.FileEntry{FileName: "x.stl"}); err == nil {
		t.Error("expected error for missing position")
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceEntries(sample())

	results, err := db.Search("warped", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Index != 1 {
		t.Errorf("search results = %+v, want 1 hit at index 1", results)
	}
}

func TestSearch_Limit(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceEntries(sample())

	results, err := db.Search("gear", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}
