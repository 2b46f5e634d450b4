// Package intake turns picked files into staged payloads the workspace can
// import. It stands in for the browser file picker: it filters names by the
// import pattern, stores each payload under a per-batch key and hands the
// workspace one RawFile per accepted file, in pick order.
package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gobwas/glob"
	"github.com/google/uuid"

	"github.com/starford/meshdesk/internal/models"
	"github.com/starford/meshdesk/internal/storage"
	"github.com/starford/meshdesk/internal/workspace"
)

// DefaultPattern accepts STL files.
const DefaultPattern = "*.stl"

// BatchPrefix is the storage prefix of every staged payload. Keys are
// batches/<batch uuid>/<position>-<name>.
const BatchPrefix = "batches/"

// Upload is one picked file.
type Upload struct {
	Name string
	Body io.Reader
}

// Skipped records an upload that was not staged.
type Skipped struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Result describes a staged batch.
type Result struct {
	Batch   string              `json:"batch"`
	Files   []workspace.RawFile `json:"-"`
	Skipped []Skipped           `json:"skipped,omitempty"`
}

// Importer receives staged batches. *workspace.Workspace satisfies it.
type Importer interface {
	ImportFiles(files []workspace.RawFile) []models.FileEntry
}

// Intake stages uploads into a storage provider.
type Intake struct {
	store    storage.Provider
	pattern  string
	matcher  glob.Glob
	maxBytes int64
	logger   *slog.Logger

	mu      sync.Mutex
	current string
}

// New returns an Intake accepting names that match pattern,
// case-insensitively. maxBytes <= 0 disables the size limit.
func New(store storage.Provider, pattern string, maxBytes int64, logger *slog.Logger) (*Intake, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return nil, fmt.Errorf("intake: compile pattern %q: %w", pattern, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{store: store, pattern: pattern, matcher: g, maxBytes: maxBytes, logger: logger}, nil
}

// Pattern returns the configured name pattern.
func (in *Intake) Pattern() string { return in.pattern }

// Accepts reports whether a picked file name passes the import filter.
func (in *Intake) Accepts(name string) bool {
	base := baseName(name)
	if base == "" {
		return false
	}
	return in.matcher.Match(strings.ToLower(base))
}

// Stage stores every accepted upload under a fresh batch and returns the
// staged files in input order. Rejected uploads are reported in Skipped.
// If a storage write fails, the payloads already staged for the batch are
// removed.
func (in *Intake) Stage(ctx context.Context, uploads []Upload) (Result, error) {
	res := Result{Batch: uuid.NewString(), Files: make([]workspace.RawFile, 0, len(uploads))}
	var total int64

	for _, u := range uploads {
		name := baseName(u.Name)
		if !in.Accepts(name) {
			res.Skipped = append(res.Skipped, Skipped{Name: u.Name, Reason: "does not match " + in.pattern})
			continue
		}

		data, err := in.readLimited(u.Body)
		if err != nil {
			if errors.Is(err, errTooLarge) {
				res.Skipped = append(res.Skipped, Skipped{Name: u.Name, Reason: err.Error()})
				continue
			}
			in.discard(ctx, res.Batch)
			return Result{}, fmt.Errorf("intake: read %s: %w", name, err)
		}

		key := fmt.Sprintf("%s%s/%d-%s", BatchPrefix, res.Batch, len(res.Files), name)
		ctype := mimetype.Detect(data).String()
		info, err := in.store.Put(ctx, key, bytes.NewReader(data), storage.PutOptions{ContentType: ctype})
		if err != nil {
			in.discard(ctx, res.Batch)
			return Result{}, fmt.Errorf("intake: stage %s: %w", name, err)
		}
		total += info.Size
		res.Files = append(res.Files, workspace.RawFile{
			Name:   name,
			Object: models.FileObject{Key: key, Size: info.Size, ContentType: ctype},
		})
	}

	in.logger.Info("intake: staged batch",
		slog.String("batch", res.Batch),
		slog.Int("files", len(res.Files)),
		slog.Int("skipped", len(res.Skipped)),
		slog.String("size", humanize.Bytes(uint64(total))))
	return res, nil
}

// StageDir stages the matching regular files of dir, sorted by name.
// Subdirectories are not descended into.
func (in *Intake) StageDir(ctx context.Context, dir string) (Result, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, fmt.Errorf("intake: read dir: %w", err)
	}

	var uploads []Upload
	var files []*os.File
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, de := range dirEntries {
		if !de.Type().IsRegular() || !in.Accepts(de.Name()) {
			continue
		}
		f, err := os.Open(filepath.Join(dir, de.Name()))
		if err != nil {
			return Result{}, fmt.Errorf("intake: open %s: %w", de.Name(), err)
		}
		files = append(files, f)
		uploads = append(uploads, Upload{Name: de.Name(), Body: f})
	}
	return in.Stage(ctx, uploads)
}

// Import stages uploads, replaces the workspace entries with the batch and
// prunes payloads of earlier batches. Imports are serialized so the pruned
// batches are never the ones the workspace holds.
func (in *Intake) Import(ctx context.Context, ws Importer, uploads []Upload) (Result, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	res, err := in.Stage(ctx, uploads)
	if err != nil {
		return Result{}, err
	}
	return in.commitLocked(ctx, ws, res), nil
}

// ImportDir is Import for the matching files of dir.
func (in *Intake) ImportDir(ctx context.Context, ws Importer, dir string) (Result, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	res, err := in.StageDir(ctx, dir)
	if err != nil {
		return Result{}, err
	}
	return in.commitLocked(ctx, ws, res), nil
}

func (in *Intake) commitLocked(ctx context.Context, ws Importer, res Result) Result {
	ws.ImportFiles(res.Files)
	in.current = res.Batch
	if _, err := in.pruneLocked(ctx); err != nil {
		in.logger.Warn("intake: prune failed", slog.String("error", err.Error()))
	}
	return res
}

// Prune deletes the payloads of every batch except the last imported one
// and returns the number of payloads removed. Only keys of the form
// batches/<uuid>/... are touched; other objects in the store survive.
func (in *Intake) Prune(ctx context.Context) (int, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.pruneLocked(ctx)
}

func (in *Intake) pruneLocked(ctx context.Context) (int, error) {
	infos, err := in.store.List(ctx, BatchPrefix)
	if err != nil {
		return 0, fmt.Errorf("intake: list payloads: %w", err)
	}
	removed := 0
	for _, info := range infos {
		batch, _, ok := strings.Cut(strings.TrimPrefix(info.Key, BatchPrefix), "/")
		if !ok || !isBatchID(batch) {
			continue
		}
		if in.current != "" && batch == in.current {
			continue
		}
		if err := in.store.Delete(ctx, info.Key); err != nil {
			return removed, fmt.Errorf("intake: delete %s: %w", info.Key, err)
		}
		removed++
	}
	if removed > 0 {
		in.logger.Debug("intake: pruned payloads", slog.Int("count", removed))
	}
	return removed, nil
}

var errTooLarge = errors.New("payload too large")

func (in *Intake) readLimited(r io.Reader) ([]byte, error) {
	if in.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, in.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > in.maxBytes {
		return nil, fmt.Errorf("%w: exceeds %s", errTooLarge, humanize.Bytes(uint64(in.maxBytes)))
	}
	return data, nil
}

// isBatchID reports whether s names a batch written by Stage. Keys under
// BatchPrefix that do not parse are left alone.
func isBatchID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func (in *Intake) discard(ctx context.Context, batch string) {
	infos, err := in.store.List(ctx, BatchPrefix+batch+"/")
	if err != nil {
		return
	}
	for _, info := range infos {
		_ = in.store.Delete(ctx, info.Key)
	}
}

// baseName strips any client-supplied directory components.
func baseName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
