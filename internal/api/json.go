package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// writeInternal logs err with the operation name and answers 500 without
// leaking details to the client.
func writeInternal(w http.ResponseWriter, op string, err error, attrs ...any) {
	args := append([]any{slog.String("error", err.Error())}, attrs...)
	slog.Error(op+" failed", args...)
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

// decodeJSON reads a bounded JSON request body into v. Unknown keys are
// rejected so typos in field names surface as 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
