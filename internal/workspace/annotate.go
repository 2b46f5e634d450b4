package workspace

import (
	"log/slog"

	"github.com/starford/meshdesk/internal/models"
)

// SetAnnotation sets one annotation field of the entry at index and returns
// the updated entry. It is called once per edit, with no debouncing.
// Pane visibility only decides whether a client shows the editor; edits are
// accepted either way.
func (w *Workspace) SetAnnotation(index int, field models.Field, value string) (models.FileEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, err := w.store.UpdateField(index, field, value)
	if err != nil {
		return models.FileEntry{}, err
	}
	if w.mirror != nil {
		if err := w.mirror.UpdateEntry(index, entry); err != nil {
			w.logger.Error("mirror update failed",
				slog.Int("index", index),
				slog.String("error", err.Error()))
		}
	}
	w.metrics.Edited()
	w.emit(EventEntryUpdated, map[string]any{
		"index":    index,
		"fileName": entry.FileName,
		"field":    string(field),
		"value":    value,
	})
	return entry, nil
}
