package workspace

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/starford/meshdesk/internal/models"
)

// Export download metadata.
const (
	ExportFileName    = "annotated_items.json"
	ExportContentType = "application/json"
)

// ExportOptions controls the export encoding.
type ExportOptions struct {
	// IncludeFileObject emits each entry's payload handle under "fileObject".
	IncludeFileObject bool
}

type exportRecord struct {
	FileName   string             `json:"fileName"`
	FileObject *models.FileObject `json:"fileObject,omitempty"`
	Problem    string             `json:"problem"`
	Class      string             `json:"class"`
}

// ExportAnnotations encodes every entry, in store order. It does not modify
// the workspace.
func (w *Workspace) ExportAnnotations() ([]byte, error) {
	return EncodeAnnotations(w.Entries(), w.exportOpts)
}

// EncodeAnnotations renders entries as a JSON array indented by two spaces,
// without HTML escaping and without a trailing newline. No entries encode
// as "[]".
func EncodeAnnotations(entries []models.FileEntry, opts ExportOptions) ([]byte, error) {
	records := make([]exportRecord, len(entries))
	for i, e := range entries {
		records[i] = exportRecord{FileName: e.FileName, Problem: e.Problem, Class: e.Class}
		if opts.IncludeFileObject {
			obj := e.FileObject
			records[i].FileObject = &obj
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode annotations: %w", err)
	}
	return unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// unescapeLineSeparators writes U+2028 and U+2029 as raw characters, which
// encoding/json always escapes. Backslashes in encoder output only start
// escape sequences, so the scan steps over each escape as a unit.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if i+6 <= len(data) {
			switch string(data[i : i+6]) {
			case `\u2028`:
				out = append(out, "\u2028"...)
				i += 5
				continue
			case `\u2029`:
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}
