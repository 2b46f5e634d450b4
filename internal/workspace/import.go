package workspace

import (
	"log/slog"

	"github.com/starford/meshdesk/internal/models"
)

// RawFile is one picked file before it becomes an entry: its name and the
// handle of its staged payload.
type RawFile struct {
	Name   string
	Object models.FileObject
}

// ImportFiles replaces the whole store with one entry per file, in order,
// with empty annotations. Previous entries and their edits are discarded.
//
// When files is non-empty the first one becomes the selection and its
// payload is read for the renderer. When it is empty the store is emptied
// and the selection and active mesh are left as they were.
func (w *Workspace) ImportFiles(files []RawFile) []models.FileEntry {
	entries := make([]models.FileEntry, len(files))
	for i, f := range files {
		entries[i] = models.FileEntry{FileName: f.Name, FileObject: f.Object}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.store.ReplaceAll(entries)
	if w.mirror != nil {
		if err := w.mirror.ReplaceEntries(w.store.Entries()); err != nil {
			w.logger.Error("mirror replace failed", slog.String("error", err.Error()))
		}
	}
	w.metrics.Imported(len(entries))
	w.emit(EventEntriesReplaced, map[string]any{"count": len(entries)})

	if len(entries) > 0 {
		first, _ := w.store.At(0)
		w.selectLocked(first)
	}
	return w.store.Entries()
}
