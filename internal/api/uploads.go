package api

import (
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/starford/meshdesk/internal/intake"
)

const (
	uploadField     = "files"
	multipartMemory = 32 << 20 // parts beyond this spill to temp files
)

// ImportFiles handles POST /api/files (multipart/form-data, repeatable field
// "files"). The upload replaces every entry in the workspace.
//
//	@Summary		Import a batch of mesh files
//	@Tags			files
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			files	formData	file	true	"Mesh files (repeatable)"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files [post]
func (h *Handler) ImportFiles(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("upload too large or invalid multipart"))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'files' field in multipart form"))
		return
	}

	uploads := make([]intake.Upload, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("unreadable upload: "+fh.Filename))
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, intake.Upload{Name: fh.Filename, Body: f})
	}

	res, err := h.intake.Import(r.Context(), h.ws, uploads)
	if err != nil {
		writeInternal(w, "import", err, slog.Int("uploads", len(uploads)))
		return
	}

	state := h.ws.Snapshot()
	skipped := res.Skipped
	if skipped == nil {
		skipped = []intake.Skipped{}
	}
	writeJSON(w, http.StatusOK, ImportResponse{
		Batch:    res.Batch,
		Files:    fileItems(state.Entries),
		Skipped:  skipped,
		Selected: optional(state.Selected, state.HasSelected),
	})
}
