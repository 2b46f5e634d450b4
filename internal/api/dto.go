package api

import (
	"github.com/starford/meshdesk/internal/index"
	"github.com/starford/meshdesk/internal/intake"
	"github.com/starford/meshdesk/internal/models"
)

// FileItem is one entry in a list response. Index is the position used by
// annotation edits.
type FileItem struct {
	Index       int    `json:"index" example:"0" validate:"required"`
	FileName    string `json:"fileName" example:"bracket.stl" validate:"required"`
	Problem     string `json:"problem" example:"warped flange"`
	Class       string `json:"class" example:"Bracket"`
	Size        int64  `json:"size_bytes" example:"68484"`
	ContentType string `json:"content_type,omitempty" example:"application/octet-stream"`
}

// FilesResponse is the workspace snapshot returned by GET /files.
type FilesResponse struct {
	Files       []FileItem `json:"files" validate:"required"`
	Selected    *string    `json:"selected"`
	PaneVisible bool       `json:"pane_visible"`
}

// ImportResponse is returned after an upload import.
type ImportResponse struct {
	Batch    string           `json:"batch" example:"0b6f9c2e-..." validate:"required"`
	Files    []FileItem       `json:"files" validate:"required"`
	Skipped  []intake.Skipped `json:"skipped"`
	Selected *string          `json:"selected"`
}

// SetAnnotationRequest is the request body for an annotation edit. An empty
// value clears the field.
type SetAnnotationRequest struct {
	Value *string `json:"value" example:"cracked" validate:"required"`
}

// SelectRequest is the request body for a selection change.
type SelectRequest struct {
	FileName string `json:"fileName" example:"bracket.stl" validate:"required"`
}

// SelectionResponse describes the current selection.
type SelectionResponse struct {
	FileName *string `json:"fileName"`
}

// PaneRequest sets the editor pane visibility.
type PaneRequest struct {
	Visible *bool `json:"visible" validate:"required"`
}

// PaneResponse reports the editor pane visibility.
type PaneResponse struct {
	Visible bool `json:"visible"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

func fileItems(entries []models.FileEntry) []FileItem {
	out := make([]FileItem, len(entries))
	for i, e := range entries {
		out[i] = FileItem{
			Index:       i,
			FileName:    e.FileName,
			Problem:     e.Problem,
			Class:       e.Class,
			Size:        e.FileObject.Size,
			ContentType: e.FileObject.ContentType,
		}
	}
	return out
}

func optional(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return &s
}
