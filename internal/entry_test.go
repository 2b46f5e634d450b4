package internal

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testComponents(t *testing.T, cfg *Config) *components {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	c, closeAll, err := build(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(closeAll)
	return c
}

func memoryConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Storage.Driver = "memory"
	cfg.Storage.Path = ""
	return cfg
}

func TestRouterHealthAndMetrics(t *testing.T) {
	cfg := memoryConfig()
	cfg.Auth = AuthConfig{Mode: AuthModeToken, Token: "tok"}
	r := newRouter(cfg, testComponents(t, cfg))

	for _, path := range []string{"/health/live", "/health/ready"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s = %d", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "meshdesk_store_entries") {
		t.Errorf("metrics = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("api without token = %d, want 401", w.Code)
	}
}

func TestInboxImport(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "part.stl"), []byte("solid part"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := memoryConfig()
	c := testComponents(t, cfg)

	c.importInbox(context.Background(), dir)
	c.ws.Wait()

	entries := c.ws.Entries()
	if len(entries) != 1 || entries[0].FileName != "part.stl" {
		t.Fatalf("entries = %+v", entries)
	}
	mesh, ok := c.ws.ActiveMesh()
	if !ok || string(mesh.Data) != "solid part" {
		t.Errorf("active mesh = %+v", mesh)
	}
	if n, _ := c.db.Count(); n != 1 {
		t.Errorf("index count = %d, want 1", n)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Error("Run without config should fail")
	}
	if err := RunMCP(context.Background()); err == nil {
		t.Error("RunMCP without config should fail")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := memoryConfig()
	cfg.App.HTTP.Port = 18931
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, WithConfig(cfg), WithLogOutput(io.Discard)) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}
