package intake

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/meshdesk/internal/models"
	"github.com/starford/meshdesk/internal/storage"
	"github.com/starford/meshdesk/internal/workspace"
)

func newIntake(t *testing.T, store storage.Provider, maxBytes int64) *Intake {
	t.Helper()
	in, err := New(store, "", maxBytes, nil)
	require.NoError(t, err)
	return in
}

type recordingImporter struct {
	mu      sync.Mutex
	batches [][]workspace.RawFile
}

func (r *recordingImporter) ImportFiles(files []workspace.RawFile) []models.FileEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, files)
	return nil
}

func (r *recordingImporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func TestAccepts(t *testing.T) {
	in := newIntake(t, storage.NewMemory(), 0)
	cases := map[string]bool{
		"part.stl":        true,
		"PART.STL":        true,
		"dir/part.Stl":    true,
		`C:\up\bolt.stl`:  true,
		"part.obj":        false,
		"stl":             false,
		"":                false,
		"part.stl.backup": false,
	}
	for name, want := range cases {
		assert.Equal(t, want, in.Accepts(name), name)
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	_, err := New(storage.NewMemory(), "[", 0, nil)
	assert.Error(t, err)
}

func TestStageKeepsOrderAndSkips(t *testing.T) {
	store := storage.NewMemory()
	in := newIntake(t, store, 0)

	res, err := in.Stage(context.Background(), []Upload{
		{Name: "b.stl", Body: strings.NewReader("solid b\nendsolid b\n")},
		{Name: "notes.txt", Body: strings.NewReader("x")},
		{Name: "a.stl", Body: strings.NewReader("solid a\nendsolid a\n")},
	})
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, "b.stl", res.Files[0].Name)
	assert.Equal(t, "a.stl", res.Files[1].Name)
	assert.Equal(t, BatchPrefix+res.Batch+"/0-b.stl", res.Files[0].Object.Key)
	assert.Equal(t, BatchPrefix+res.Batch+"/1-a.stl", res.Files[1].Object.Key)
	assert.EqualValues(t, len("solid a\nendsolid a\n"), res.Files[1].Object.Size)
	assert.NotEmpty(t, res.Files[0].Object.ContentType)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "notes.txt", res.Skipped[0].Name)

	rc, err := store.Open(context.Background(), res.Files[1].Object.Key)
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "solid a\nendsolid a\n", string(data))
}

func TestStageDuplicateNamesGetDistinctKeys(t *testing.T) {
	in := newIntake(t, storage.NewMemory(), 0)
	res, err := in.Stage(context.Background(), []Upload{
		{Name: "x.stl", Body: strings.NewReader("1")},
		{Name: "x.stl", Body: strings.NewReader("2")},
	})
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.NotEqual(t, res.Files[0].Object.Key, res.Files[1].Object.Key)
}

func TestStageSkipsOversized(t *testing.T) {
	in := newIntake(t, storage.NewMemory(), 4)
	res, err := in.Stage(context.Background(), []Upload{
		{Name: "big.stl", Body: strings.NewReader("12345")},
		{Name: "ok.stl", Body: strings.NewReader("1234")},
	})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "ok.stl", res.Files[0].Name)
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Reason, "too large")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestStageFailureDiscardsBatch(t *testing.T) {
	store := storage.NewMemory()
	in := newIntake(t, store, 0)
	_, err := in.Stage(context.Background(), []Upload{
		{Name: "a.stl", Body: strings.NewReader("a")},
		{Name: "b.stl", Body: failingReader{}},
	})
	require.Error(t, err)

	infos, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestImportPrunesEarlierBatches(t *testing.T) {
	store := storage.NewMemory()
	in := newIntake(t, store, 0)
	imp := &recordingImporter{}
	ctx := context.Background()

	first, err := in.Import(ctx, imp, []Upload{{Name: "a.stl", Body: strings.NewReader("a")}})
	require.NoError(t, err)
	second, err := in.Import(ctx, imp, []Upload{{Name: "b.stl", Body: strings.NewReader("b")}})
	require.NoError(t, err)
	require.NotEqual(t, first.Batch, second.Batch)

	infos, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, second.Files[0].Object.Key, infos[0].Key)
	assert.Equal(t, 2, imp.count())
}

func TestImportKeepsForeignObjects(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()
	foreign := []string{"keep-me.txt", "inbox/part.stl", "batches/not-a-uuid/0-x.stl", "batches/readme"}
	for _, key := range foreign {
		_, err := store.Put(ctx, key, strings.NewReader("x"), storage.PutOptions{})
		require.NoError(t, err)
	}

	in := newIntake(t, store, 0)
	imp := &recordingImporter{}
	_, err := in.Import(ctx, imp, []Upload{{Name: "a.stl", Body: strings.NewReader("a")}})
	require.NoError(t, err)
	second, err := in.Import(ctx, imp, []Upload{{Name: "b.stl", Body: strings.NewReader("b")}})
	require.NoError(t, err)

	for _, key := range foreign {
		_, err := store.Head(ctx, key)
		assert.NoError(t, err, "foreign key %s was deleted", key)
	}
	batches, err := store.List(ctx, BatchPrefix+second.Batch+"/")
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}

func TestImportKeepsFilesInSharedFSRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep-me.txt"), []byte("mine"), 0o644))
	store, err := storage.NewFS(root)
	require.NoError(t, err)

	in := newIntake(t, store, 0)
	_, err = in.Import(context.Background(), &recordingImporter{}, []Upload{{Name: "a.stl", Body: strings.NewReader("a")}})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "keep-me.txt"))
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
}

func TestImportEmptyBatchStillImports(t *testing.T) {
	in := newIntake(t, storage.NewMemory(), 0)
	imp := &recordingImporter{}
	res, err := in.Import(context.Background(), imp, []Upload{{Name: "readme.md", Body: strings.NewReader("#")}})
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	require.Equal(t, 1, imp.count())
	assert.Empty(t, imp.batches[0])
}

func TestImportDirSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.stl"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.STL"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("c"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.stl"), 0o755))

	store := storage.NewMemory()
	in := newIntake(t, store, 0)
	ws := workspace.New(store)
	defer ws.Close()

	res, err := in.ImportDir(context.Background(), ws, dir)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)

	entries := ws.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a.STL", entries[0].FileName)
	assert.Equal(t, "b.stl", entries[1].FileName)

	ws.Wait()
	mesh, ok := ws.ActiveMesh()
	require.True(t, ok)
	assert.Equal(t, "a", string(mesh.Data))
}

func TestImportDirMissing(t *testing.T) {
	in := newIntake(t, storage.NewMemory(), 0)
	_, err := in.ImportDir(context.Background(), &recordingImporter{}, filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestWatchDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	in := newIntake(t, storage.NewMemory(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- in.Watch(ctx, dir, 100*time.Millisecond, func(context.Context) {
			mu.Lock()
			calls++
			mu.Unlock()
		})
	}()
	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	for _, name := range []string{"a.stl", "b.stl", "c.stl", "ignored.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}
