// Package models defines the domain types for meshdesk.
package models

import "time"

// Field names an editable annotation field of a FileEntry.
type Field string

const (
	FieldProblem Field = "problem"
	FieldClass   Field = "class"
)

// Valid reports whether f is one of the annotation fields.
func (f Field) Valid() bool {
	return f == FieldProblem || f == FieldClass
}

// FileObject is an opaque handle to an imported payload held by a storage
// provider. It is owned by exactly one FileEntry and never mutated.
type FileObject struct {
	Key         string `json:"key"`
	Size        int64  `json:"size_bytes"`
	ContentType string `json:"content_type,omitempty"`
}

// FileEntry is one imported mesh file plus its two annotation fields.
type FileEntry struct {
	FileName   string     `json:"fileName"`
	FileObject FileObject `json:"-"`
	Problem    string     `json:"problem"`
	Class      string     `json:"class"`
}

// Get returns the value of an annotation field.
func (e FileEntry) Get(f Field) string {
	switch f {
	case FieldProblem:
		return e.Problem
	case FieldClass:
		return e.Class
	}
	return ""
}

// With returns a copy of e with the given annotation field replaced.
func (e FileEntry) With(f Field, value string) FileEntry {
	switch f {
	case FieldProblem:
		e.Problem = value
	case FieldClass:
		e.Class = value
	}
	return e
}

// Mesh is a payload handed to the renderer.
type Mesh struct {
	FileName string
	Data     []byte
	Checksum string
	LoadedAt time.Time
}
