package index

import (
	"github.com/starford/meshdesk/internal/models"
	"github.com/starford/meshdesk/internal/workspace"
)

// EntryIndex defines the search index operations. Consumers should depend on
// this interface rather than the concrete *DB type.
type EntryIndex interface {
	ReplaceEntries(entries []models.FileEntry) error
	UpdateEntry(index int, entry models.FileEntry) error
	Search(query string, limit int) ([]SearchResult, error)
	Count() (int, error)
	Close() error
}

// Verify *DB satisfies EntryIndex and mirrors the workspace at compile time.
var (
	_ EntryIndex       = (*DB)(nil)
	_ workspace.Mirror = (*DB)(nil)
)
