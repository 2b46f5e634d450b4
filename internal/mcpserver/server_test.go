package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/meshdesk/internal/apperr"
	"github.com/starford/meshdesk/internal/intake"
	"github.com/starford/meshdesk/internal/storage"
	"github.com/starford/meshdesk/internal/testutil"
	"github.com/starford/meshdesk/internal/workspace"
)

func testServer(t *testing.T) (*Server, *workspace.Workspace) {
	t.Helper()

	store := storage.NewMemory()
	db := testutil.TestDB(t)

	ws := workspace.New(store, workspace.WithMirror(db))
	t.Cleanup(ws.Close)

	in, err := intake.New(store, "", 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	return New(ws, in, db), ws
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are invoked
	// directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_files":
		result, err = srv.listFiles(ctx, req)
	case "import_directory":
		result, err = srv.importDirectory(ctx, req)
	case "import_urls":
		result, err = srv.importURLs(ctx, req)
	case "select_file":
		result, err = srv.selectFile(ctx, req)
	case "set_annotation":
		result, err = srv.setAnnotation(ctx, req)
	case "export_annotations":
		result, err = srv.exportAnnotations(ctx, req)
	case "get_export_contract":
		result, err = srv.getExportContract(ctx, req)
	case "set_pane_visible":
		result, err = srv.setPaneVisible(ctx, req)
	case "search_annotations":
		result, err = srv.searchAnnotations(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func meshDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestImportDirectoryAndList(t *testing.T) {
	srv, _ := testServer(t)
	dir := meshDir(t, map[string]string{"b.stl": "solid b", "a.stl": "solid a", "x.obj": "o"})

	r := callTool(t, srv, "import_directory", map[string]interface{}{"path": dir})
	if r.IsError {
		t.Fatalf("import_directory: %s", resultText(r))
	}

	r = callTool(t, srv, "list_files", map[string]interface{}{})
	var state stateView
	if err := json.Unmarshal([]byte(resultText(r)), &state); err != nil {
		t.Fatalf("list_files output: %v", err)
	}
	if len(state.Files) != 2 || state.Files[0].FileName != "a.stl" || state.Files[1].FileName != "b.stl" {
		t.Errorf("files = %+v", state.Files)
	}
	if state.Selected == nil || *state.Selected != "a.stl" {
		t.Errorf("selected = %v", state.Selected)
	}
}

func TestImportDirectoryMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "import_directory", map[string]interface{}{"path": filepath.Join(t.TempDir(), "nope")})
	if !r.IsError {
		t.Error("expected error for missing directory")
	}
}

func TestImportURLsDataURI(t *testing.T) {
	srv, ws := testServer(t)
	uri := "data:model/stl;base64," + base64.StdEncoding.EncodeToString([]byte("solid q"))

	r := callTool(t, srv, "import_urls", map[string]interface{}{
		"urls":  []interface{}{uri},
		"names": []interface{}{"q.stl"},
	})
	if r.IsError {
		t.Fatalf("import_urls: %s", resultText(r))
	}
	ws.Wait()
	mesh, ok := ws.ActiveMesh()
	if !ok || string(mesh.Data) != "solid q" || mesh.FileName != "q.stl" {
		t.Errorf("active mesh = %+v", mesh)
	}
}

func TestImportURLsHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("solid remote"))
	}))
	defer ts.Close()
	orig := blockedHostCheck
	blockedHostCheck = func(string) error { return nil }
	defer func() { blockedHostCheck = orig }()

	srv, ws := testServer(t)
	r := callTool(t, srv, "import_urls", map[string]interface{}{
		"urls": []interface{}{ts.URL + "/parts/remote.stl"},
	})
	if r.IsError {
		t.Fatalf("import_urls: %s", resultText(r))
	}
	entries := ws.Entries()
	if len(entries) != 1 || entries[0].FileName != "remote.stl" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestImportURLsRejectsLoopback(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "import_urls", map[string]interface{}{
		"urls": []interface{}{"http://127.0.0.1/a.stl"},
	})
	if !r.IsError || !strings.Contains(resultText(r), "blocked host") {
		t.Errorf("expected blocked host error, got %q", resultText(r))
	}
}

func TestImportURLsNameCountMismatch(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "import_urls", map[string]interface{}{
		"urls":  []interface{}{"data:x;base64,AA==", "data:x;base64,AA=="},
		"names": []interface{}{"a.stl"},
	})
	if !r.IsError {
		t.Error("expected error for mismatched names")
	}
}

func TestDecodeDataURI(t *testing.T) {
	if _, err := decodeDataURI("data:text/plain,hello"); !errors.Is(err, apperr.ErrUnsupported) {
		t.Errorf("non-base64 URI err = %v, want ErrUnsupported", err)
	}
	if _, err := fetchHTTP(context.Background(), "ftp://example.com/a.stl"); !errors.Is(err, apperr.ErrUnsupported) {
		t.Errorf("ftp scheme err = %v, want ErrUnsupported", err)
	}
	if _, err := decodeDataURI("data:;base64"); err == nil {
		t.Error("expected error for missing comma")
	}
	data, err := decodeDataURI("data:application/octet-stream;base64,c29saWQ")
	if err != nil || string(data) != "solid" {
		t.Errorf("decode = %q, %v", data, err)
	}
}

func TestSelectAndAnnotate(t *testing.T) {
	srv, ws := testServer(t)
	dir := meshDir(t, map[string]string{"a.stl": "a", "b.stl": "b"})
	_ = callTool(t, srv, "import_directory", map[string]interface{}{"path": dir})

	r := callTool(t, srv, "select_file", map[string]interface{}{"fileName": "b.stl"})
	if text := resultText(r); text != "selected: b.stl" {
		t.Errorf("select = %q", text)
	}
	r = callTool(t, srv, "select_file", map[string]interface{}{"fileName": "zzz.stl"})
	if !r.IsError {
		t.Error("expected error for unknown file")
	}
	if name, _ := ws.Selected(); name != "b.stl" {
		t.Errorf("selected = %q", name)
	}

	r = callTool(t, srv, "set_annotation", map[string]interface{}{"index": float64(1), "field": "class", "value": "Bracket"})
	if r.IsError {
		t.Fatalf("set_annotation: %s", resultText(r))
	}
	r = callTool(t, srv, "set_annotation", map[string]interface{}{"index": float64(7), "field": "class", "value": "x"})
	if !r.IsError {
		t.Error("expected error for out of range index")
	}
	r = callTool(t, srv, "set_annotation", map[string]interface{}{"index": float64(0), "field": "colour", "value": "x"})
	if !r.IsError {
		t.Error("expected error for unknown field")
	}

	r = callTool(t, srv, "export_annotations", map[string]interface{}{})
	want := "[\n  {\n    \"fileName\": \"a.stl\",\n    \"problem\": \"\",\n    \"class\": \"\"\n  },\n" +
		"  {\n    \"fileName\": \"b.stl\",\n    \"problem\": \"\",\n    \"class\": \"Bracket\"\n  }\n]"
	if got := resultText(r); got != want {
		t.Errorf("export = %q", got)
	}

	r = callTool(t, srv, "search_annotations", map[string]interface{}{"query": "Bracket"})
	if !strings.Contains(resultText(r), `"fileName": "b.stl"`) {
		t.Errorf("search = %q", resultText(r))
	}
}

func TestSetPaneVisible(t *testing.T) {
	srv, ws := testServer(t)
	_ = callTool(t, srv, "set_pane_visible", map[string]interface{}{"visible": true})
	if !ws.PaneVisible() {
		t.Error("pane should be visible")
	}
}

func TestExportContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_export_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "annotated_items.json") {
		t.Error("contract should name the export file")
	}

	contents, err := srv.readExportFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
}
