package workspace

import (
	"fmt"
	"slices"

	"github.com/starford/meshdesk/internal/apperr"
	"github.com/starford/meshdesk/internal/models"
)

// Store is the ordered sequence of imported entries. Position is import
// order and doubles as the index used by annotation edits.
//
// Store is not safe for concurrent use; the Workspace serializes access.
// Mutations are copy-on-write, so a slice obtained before a mutation never
// changes underneath its holder.
type Store struct {
	entries []models.FileEntry
}

// ReplaceAll makes the sequence exactly entries, in order. Names are not
// checked for uniqueness.
func (s *Store) ReplaceAll(entries []models.FileEntry) {
	next := make([]models.FileEntry, len(entries))
	copy(next, entries)
	s.entries = next
}

// UpdateField replaces one annotation field of the entry at index.
// FileName and FileObject are left untouched.
func (s *Store) UpdateField(index int, field models.Field, value string) (models.FileEntry, error) {
	if !field.Valid() {
		return models.FileEntry{}, fmt.Errorf("%w: %q", apperr.ErrUnknownField, field)
	}
	if index < 0 || index >= len(s.entries) {
		return models.FileEntry{}, fmt.Errorf("%w: %d not in [0, %d)", apperr.ErrOutOfRange, index, len(s.entries))
	}
	next := slices.Clone(s.entries)
	next[index] = next[index].With(field, value)
	s.entries = next
	return next[index], nil
}

// Lookup returns the first entry, in positional order, named name.
func (s *Store) Lookup(name string) (models.FileEntry, int, bool) {
	for i, e := range s.entries {
		if e.FileName == name {
			return e, i, true
		}
	}
	return models.FileEntry{}, -1, false
}

// At returns the entry at index.
func (s *Store) At(index int) (models.FileEntry, bool) {
	if index < 0 || index >= len(s.entries) {
		return models.FileEntry{}, false
	}
	return s.entries[index], true
}

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// Entries returns a copy of the sequence.
func (s *Store) Entries() []models.FileEntry {
	out := make([]models.FileEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
