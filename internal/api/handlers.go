package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/meshdesk/internal/apperr"
	"github.com/starford/meshdesk/internal/index"
	"github.com/starford/meshdesk/internal/intake"
	"github.com/starford/meshdesk/internal/models"
	"github.com/starford/meshdesk/internal/workspace"
)

// Handler holds API route handlers.
type Handler struct {
	ws             *workspace.Workspace
	intake         *intake.Intake
	idx            index.EntryIndex
	maxUploadBytes int64
}

// NewHandler creates a new Handler. idx may be nil, in which case search
// reports 503. maxUploadBytes <= 0 disables the request size limit.
func NewHandler(ws *workspace.Workspace, in *intake.Intake, idx index.EntryIndex, maxUploadBytes int64) *Handler {
	return &Handler{ws: ws, intake: in, idx: idx, maxUploadBytes: maxUploadBytes}
}

// ListFiles handles GET /api/files.
//
//	@Summary		List imported files with their annotations
//	@Tags			files
//	@Produce		json
//	@Success		200		{object}	FilesResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	state := h.ws.Snapshot()
	writeJSON(w, http.StatusOK, FilesResponse{
		Files:       fileItems(state.Entries),
		Selected:    optional(state.Selected, state.HasSelected),
		PaneVisible: state.PaneVisible,
	})
}

// SetAnnotation handles PUT /api/files/{index}/{field}.
//
//	@Summary		Set the problem or class annotation of one entry
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			index	path		int						true	"Entry position"
//	@Param			field	path		string					true	"Annotation field"	Enums(problem, class)
//	@Param			body	body		SetAnnotationRequest	true	"New value"
//	@Success		200		{object}	FileItem
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{index}/{field} [put]
func (h *Handler) SetAnnotation(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("index must be an integer"))
		return
	}
	field := models.Field(chi.URLParam(r, "field"))

	var req SetAnnotationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Value == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("value is required"))
		return
	}

	entry, err := h.ws.SetAnnotation(idx, field, *req.Value)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrUnknownField):
			writeJSON(w, http.StatusBadRequest, errorBody("field must be problem or class"))
		case errors.Is(err, apperr.ErrOutOfRange):
			writeJSON(w, http.StatusNotFound, errorBody("no entry at index "+strconv.Itoa(idx)))
		default:
			writeInternal(w, "set annotation", err, slog.Int("index", idx))
		}
		return
	}
	item := fileItems([]models.FileEntry{entry})[0]
	item.Index = idx
	writeJSON(w, http.StatusOK, item)
}

// GetSelection handles GET /api/selection.
//
//	@Summary		Get the selected file
//	@Tags			selection
//	@Produce		json
//	@Success		200		{object}	SelectionResponse
//	@Security		BearerAuth
//	@Router			/selection [get]
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	name, ok := h.ws.Selected()
	writeJSON(w, http.StatusOK, SelectionResponse{FileName: optional(name, ok)})
}

// Select handles POST /api/selection. The mesh loads asynchronously and is
// announced on the event stream.
//
//	@Summary		Select a file for preview
//	@Tags			selection
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SelectRequest	true	"File to select"
//	@Success		202		{object}	SelectionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/selection [post]
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FileName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("fileName is required"))
		return
	}
	if !h.ws.Select(req.FileName) {
		writeJSON(w, http.StatusNotFound, errorBody("file not found"))
		return
	}
	writeJSON(w, http.StatusAccepted, SelectionResponse{FileName: &req.FileName})
}

// GetMesh handles GET /api/mesh.
//
//	@Summary		Download the bytes of the active mesh
//	@Tags			selection
//	@Produce		octet-stream
//	@Success		200	{file}	binary
//	@Success		204	"No mesh loaded"
//	@Security		BearerAuth
//	@Router			/mesh [get]
func (h *Handler) GetMesh(w http.ResponseWriter, r *http.Request) {
	mesh, ok := h.ws.ActiveMesh()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("ETag", `"`+mesh.Checksum+`"`)
	w.Header().Set("X-File-Name", mesh.FileName)
	http.ServeContent(w, r, mesh.FileName, mesh.LoadedAt, bytes.NewReader(mesh.Data))
}

// Export handles GET /api/export.
//
//	@Summary		Download all annotations as annotated_items.json
//	@Tags			export
//	@Produce		json
//	@Success		200	{file}	binary
//	@Security		BearerAuth
//	@Router			/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.ws.ExportAnnotations()
	if err != nil {
		writeInternal(w, "export", err)
		return
	}
	w.Header().Set("Content-Type", workspace.ExportContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+workspace.ExportFileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GetPane handles GET /api/pane.
//
//	@Summary		Get editor pane visibility
//	@Tags			pane
//	@Produce		json
//	@Success		200	{object}	PaneResponse
//	@Security		BearerAuth
//	@Router			/pane [get]
func (h *Handler) GetPane(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PaneResponse{Visible: h.ws.PaneVisible()})
}

// SetPane handles PUT /api/pane.
func (h *Handler) SetPane(w http.ResponseWriter, r *http.Request) {
	var req PaneRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Visible == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("visible is required"))
		return
	}
	h.ws.SetPaneVisible(*req.Visible)
	writeJSON(w, http.StatusOK, PaneResponse{Visible: *req.Visible})
}

// TogglePane handles POST /api/pane/toggle.
func (h *Handler) TogglePane(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PaneResponse{Visible: h.ws.TogglePane()})
}

// Search handles GET /api/search.
//
//	@Summary		Search file names and annotations
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	if h.idx == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("search index unavailable"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.idx.Search(q, limit)
	if err != nil {
		writeInternal(w, "search", err, slog.String("query", q))
		return
	}
	if results == nil {
		results = []SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
