//go:build sqlite_fts5

package index

import (
	"strings"
	"testing"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries_fts`).Scan(&count); err != nil {
		t.Fatalf("entries_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceEntries(sample())

	results, err := db.Search("teeth", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !strings.Contains(results[0].Snippet, "<b>") {
		t.Errorf("snippet %q should highlight the match", results[0].Snippet)
	}
}

func TestFTS5_QuerySyntaxIsQuoted(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceEntries(sample())

	if _, err := db.Search(`gear" OR (`, 10); err != nil {
		t.Fatalf("Search with operators: %v", err)
	}
	if got := ftsQuery(`a "b`); got != `"a"* """b"*` {
		t.Errorf("ftsQuery = %q", got)
	}
}

func TestFTS5_PrefixMatch(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceEntries(sample())

	results, err := db.Search("warp", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected prefix hit, got %+v", results)
	}
}
