// Package workspace owns the annotation session: the imported entries, the
// selected file, the mesh handed to the renderer and the editor pane flag.
//
// A Workspace is the single owner of that state. Every other component
// (HTTP handlers, the MCP server, the inbox watcher) reads copies and
// mutates through its methods.
package workspace

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/starford/meshdesk/internal/metrics"
	"github.com/starford/meshdesk/internal/models"
)

// Event kinds passed to the EventCallback.
const (
	EventEntriesReplaced  = "entries.replaced"
	EventEntryUpdated     = "entry.updated"
	EventSelectionChanged = "selection.changed"
	EventPaneToggled      = "pane.toggled"
)

// ReadPolicy decides which completed payload reads reach the renderer.
type ReadPolicy string

const (
	// ReadPolicyTagged applies a read only if no newer read was requested
	// after it. A slow read for an earlier selection can never replace the
	// mesh of a later one.
	ReadPolicyTagged ReadPolicy = "tagged"
	// ReadPolicyLastCompleted applies every successful read; the last one to
	// finish wins regardless of request order.
	ReadPolicyLastCompleted ReadPolicy = "last_completed"
)

// PayloadReader opens imported payloads. storage.Provider satisfies it.
type PayloadReader interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Renderer receives each mesh that becomes active. Render is called with the
// workspace lock held and must not call back into the Workspace.
type Renderer interface {
	Render(mesh models.Mesh)
}

// Mirror receives every store mutation, in order. Mirror errors are logged
// and never affect the store.
type Mirror interface {
	ReplaceEntries(entries []models.FileEntry) error
	UpdateEntry(index int, entry models.FileEntry) error
}

// EventCallback is called after each state change with one of the Event*
// kinds. It runs with the workspace lock held.
type EventCallback func(kind string, data any)

// Option configures a Workspace.
type Option func(*Workspace)

// WithRenderer sets the renderer that receives active meshes.
func WithRenderer(r Renderer) Option {
	return func(w *Workspace) { w.renderer = r }
}

// WithReadPolicy sets the read ordering policy. Defaults to ReadPolicyTagged.
func WithReadPolicy(p ReadPolicy) Option {
	return func(w *Workspace) { w.policy = p }
}

// WithLogger sets the logger used for read and mirror diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) { w.logger = l }
}

// WithEvents registers a change callback.
func WithEvents(cb EventCallback) Option {
	return func(w *Workspace) { w.onEvent = cb }
}

// WithMirror registers a store mirror, such as the search index.
func WithMirror(m Mirror) Option {
	return func(w *Workspace) { w.mirror = m }
}

// WithMetrics records workspace activity on c.
func WithMetrics(c *metrics.Collectors) Option {
	return func(w *Workspace) { w.metrics = c }
}

// WithExportOptions sets the export encoding options.
func WithExportOptions(o ExportOptions) Option {
	return func(w *Workspace) { w.exportOpts = o }
}

// Workspace is the ownership root of the annotation session.
type Workspace struct {
	mu sync.Mutex

	store    Store
	selected string
	hasSel   bool
	active   *models.Mesh
	pane     bool
	readSeq  uint64
	closed   bool

	reader     PayloadReader
	renderer   Renderer
	mirror     Mirror
	onEvent    EventCallback
	policy     ReadPolicy
	exportOpts ExportOptions
	logger     *slog.Logger
	metrics    *metrics.Collectors

	ctx    context.Context
	cancel context.CancelFunc
	// inflight counts payload reads not yet settled; idle is signalled on
	// w.mu when it drops to zero.
	inflight int
	idle     *sync.Cond
}

// New creates an empty workspace reading payloads through reader.
func New(reader PayloadReader, opts ...Option) *Workspace {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Workspace{
		reader: reader,
		policy: ReadPolicyTagged,
		logger: slog.Default(),
		ctx:    ctx,
		cancel: cancel,
	}
	w.idle = sync.NewCond(&w.mu)
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State is a consistent copy of the workspace taken under one lock.
type State struct {
	Entries     []models.FileEntry
	Selected    string
	HasSelected bool
	PaneVisible bool
}

// Snapshot returns the current state.
func (w *Workspace) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Entries:     w.store.Entries(),
		Selected:    w.selected,
		HasSelected: w.hasSel,
		PaneVisible: w.pane,
	}
}

// Entries returns a copy of the current entries in store order.
func (w *Workspace) Entries() []models.FileEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Entries()
}

// ActiveMesh returns the mesh last handed to the renderer. Its Data must not
// be modified.
func (w *Workspace) ActiveMesh() (models.Mesh, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == nil {
		return models.Mesh{}, false
	}
	return *w.active, true
}

// Wait blocks until no payload read is in flight. Selections made while
// waiting extend the wait.
func (w *Workspace) Wait() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.inflight > 0 {
		w.idle.Wait()
	}
}

// Close abandons in-flight reads and waits for their goroutines to exit.
// Later selections and imports still update the store but read nothing.
func (w *Workspace) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.cancel()
	w.Wait()
}

func (w *Workspace) emit(kind string, data any) {
	if w.onEvent != nil {
		w.onEvent(kind, data)
	}
}
