package workspace

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/starford/meshdesk/internal/checksum"
	"github.com/starford/meshdesk/internal/metrics"
	"github.com/starford/meshdesk/internal/models"
)

// Select makes the first entry named name the selection and starts reading
// its payload for the renderer. An unknown name changes nothing and
// reports false.
func (w *Workspace) Select(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, _, ok := w.store.Lookup(name)
	w.metrics.Selected(ok)
	if !ok {
		return false
	}
	w.selectLocked(entry)
	return true
}

// Selected returns the current selection. It may name a file that is no
// longer in the store after an import.
func (w *Workspace) Selected() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selected, w.hasSel
}

func (w *Workspace) selectLocked(entry models.FileEntry) {
	w.selected = entry.FileName
	w.hasSel = true
	w.emit(EventSelectionChanged, map[string]any{"fileName": entry.FileName})
	w.loadLocked(entry)
}

// loadLocked starts the asynchronous payload read for entry.
func (w *Workspace) loadLocked(entry models.FileEntry) {
	if w.closed {
		return
	}
	w.readSeq++
	seq := w.readSeq

	w.inflight++
	go func() {
		data, err := w.readPayload(entry.FileObject)

		w.mu.Lock()
		defer w.mu.Unlock()
		defer w.readSettledLocked()
		if err != nil {
			w.logger.Warn("mesh read failed",
				slog.String("file", entry.FileName),
				slog.String("key", entry.FileObject.Key),
				slog.String("error", err.Error()))
			w.metrics.Read(metrics.ReadFailed)
			return
		}
		w.applyMeshLocked(seq, entry.FileName, data)
	}()
}

func (w *Workspace) readSettledLocked() {
	w.inflight--
	if w.inflight == 0 {
		w.idle.Broadcast()
	}
}

func (w *Workspace) readPayload(obj models.FileObject) ([]byte, error) {
	if w.reader == nil {
		return nil, fmt.Errorf("no payload reader configured")
	}
	rc, err := w.reader.Open(w.ctx, obj.Key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if obj.Size > 0 && int64(len(data)) != obj.Size {
		return nil, fmt.Errorf("read payload: got %d of %d bytes", len(data), obj.Size)
	}
	return data, nil
}

func (w *Workspace) applyMeshLocked(seq uint64, name string, data []byte) {
	if w.closed {
		return
	}
	if w.policy != ReadPolicyLastCompleted && seq != w.readSeq {
		w.logger.Debug("stale mesh read discarded",
			slog.String("file", name),
			slog.Uint64("seq", seq),
			slog.Uint64("latest", w.readSeq))
		w.metrics.Read(metrics.ReadStale)
		return
	}

	mesh := models.Mesh{
		FileName: name,
		Data:     data,
		Checksum: checksum.Sum(data),
		LoadedAt: time.Now().UTC(),
	}
	w.active = &mesh
	w.metrics.Read(metrics.ReadOK)
	w.logger.Debug("mesh loaded",
		slog.String("file", name),
		slog.String("size", humanize.Bytes(uint64(len(data)))))
	if w.renderer != nil {
		w.renderer.Render(mesh)
	}
}
