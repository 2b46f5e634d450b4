// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the annotation workspace to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/meshdesk/internal/apperr"
	"github.com/starford/meshdesk/internal/index"
	"github.com/starford/meshdesk/internal/intake"
	"github.com/starford/meshdesk/internal/models"
	"github.com/starford/meshdesk/internal/workspace"
)

const exportFormatURI = "meshdesk://export-format"

// Server wraps the MCP server with workspace tools.
type Server struct {
	mcp    *server.MCPServer
	ws     *workspace.Workspace
	intake *intake.Intake
	idx    index.EntryIndex
}

// New creates a new MCP server with all workspace tools registered.
// idx may be nil, in which case search_annotations reports an error.
func New(ws *workspace.Workspace, in *intake.Intake, idx index.EntryIndex) *Server {
	s := &Server{ws: ws, intake: in, idx: idx}

	s.mcp = server.NewMCPServer(
		"meshdesk",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List the imported mesh files in order, with their index, annotations, "+
			"the selected file and whether the editor pane is visible."),
	), s.listFiles)

	s.mcp.AddTool(mcp.NewTool("import_directory",
		mcp.WithDescription("Import every matching mesh file of a server-side directory. "+
			"Replaces all current files and annotations."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Directory on the server")),
	), s.importDirectory)

	s.mcp.AddTool(mcp.NewTool("import_urls",
		mcp.WithDescription("Download mesh files from http(s) URLs or base64 data: URIs and import them "+
			"in order. Replaces all current files and annotations."),
		mcp.WithArray("urls", mcp.Required(), mcp.Description("Sources, one per file"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithArray("names", mcp.Description("Optional file names, parallel to urls"),
			mcp.Items(map[string]any{"type": "string"})),
	), s.importURLs)

	s.mcp.AddTool(mcp.NewTool("select_file",
		mcp.WithDescription("Select a file by name for preview. The first file with that name is used."),
		mcp.WithString("fileName", mcp.Required(), mcp.Description("File name as listed by list_files")),
	), s.selectFile)

	s.mcp.AddTool(mcp.NewTool("set_annotation",
		mcp.WithDescription("Set the problem or class annotation of the file at index."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based position from list_files")),
		mcp.WithString("field", mcp.Required(), mcp.Enum(string(models.FieldProblem), string(models.FieldClass))),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value; empty clears the field")),
	), s.setAnnotation)

	s.mcp.AddTool(mcp.NewTool("export_annotations",
		mcp.WithDescription("Return the annotated_items.json export. Read the format via "+
			"get_export_contract or the "+exportFormatURI+" resource."),
	), s.exportAnnotations)

	s.mcp.AddTool(mcp.NewTool("get_export_contract",
		mcp.WithDescription("Returns the annotated_items.json format contract."),
	), s.getExportContract)

	s.mcp.AddTool(mcp.NewTool("set_pane_visible",
		mcp.WithDescription("Show or hide the annotation editor pane."),
		mcp.WithBoolean("visible", mcp.Required()),
	), s.setPaneVisible)

	s.mcp.AddTool(mcp.NewTool("search_annotations",
		mcp.WithDescription("Search file names and annotations."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchAnnotations)

	// Resource: export format contract.
	s.mcp.AddResource(
		mcp.NewResource(exportFormatURI, "Export Format Contract",
			mcp.WithResourceDescription("Format of the annotated_items.json export."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readExportFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type fileView struct {
	Index    int    `json:"index"`
	FileName string `json:"fileName"`
	Problem  string `json:"problem"`
	Class    string `json:"class"`
}

type stateView struct {
	Files       []fileView `json:"files"`
	Selected    *string    `json:"selected"`
	PaneVisible bool       `json:"paneVisible"`
}

func textJSON(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) state() stateView {
	st := s.ws.Snapshot()
	view := stateView{Files: make([]fileView, len(st.Entries)), PaneVisible: st.PaneVisible}
	for i, e := range st.Entries {
		view.Files[i] = fileView{Index: i, FileName: e.FileName, Problem: e.Problem, Class: e.Class}
	}
	if st.HasSelected {
		sel := st.Selected
		view.Selected = &sel
	}
	return view
}

func (s *Server) listFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return textJSON(s.state()), nil
}

func (s *Server) importDirectory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.intake.ImportDir(ctx, s.ws, dir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textJSON(importView{State: s.state(), Skipped: res.Skipped}), nil
}

type importView struct {
	State   stateView        `json:"state"`
	Skipped []intake.Skipped `json:"skipped,omitempty"`
}

func (s *Server) selectFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("fileName")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.ws.Select(name) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("selected: %s", name)), nil
}

func (s *Server) setAnnotation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idx, err := req.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	field, err := req.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entry, err := s.ws.SetAnnotation(idx, models.Field(field), value)
	switch {
	case errors.Is(err, apperr.ErrOutOfRange):
		return mcp.NewToolResultError(fmt.Sprintf("no file at index %d", idx)), nil
	case errors.Is(err, apperr.ErrUnknownField):
		return mcp.NewToolResultError("field must be problem or class"), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textJSON(fileView{Index: idx, FileName: entry.FileName, Problem: entry.Problem, Class: entry.Class}), nil
}

func (s *Server) exportAnnotations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := s.ws.ExportAnnotations()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getExportContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ExportFormatContract), nil
}

func (s *Server) readExportFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      exportFormatURI,
			MIMEType: "text/markdown",
			Text:     ExportFormatContract,
		},
	}, nil
}

func (s *Server) setPaneVisible(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	visible, err := req.RequireBool("visible")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.ws.SetPaneVisible(visible)
	return mcp.NewToolResultText(fmt.Sprintf("pane visible: %t", visible)), nil
}

func (s *Server) searchAnnotations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.idx == nil {
		return mcp.NewToolResultError("search index unavailable"), nil
	}
	results, err := s.idx.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return textJSON(results), nil
}
