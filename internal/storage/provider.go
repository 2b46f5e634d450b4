// Package storage holds the binary payloads behind imported file handles.
package storage

import (
	"context"
	"io"
	"time"
)

// Driver identifies a concrete payload storage backend.
type Driver string

const (
	DriverFS     Driver = "fs"     // local directory (default)
	DriverMemory Driver = "memory" // process memory
	DriverS3     Driver = "s3"     // S3 / MinIO compatible
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
}

// Info describes a stored payload.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Provider is the interface for payload storage backends.
type Provider interface {
	// Put stores a new payload at key. It fails with apperr.ErrAlreadyExists
	// if the key is taken.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Open returns a reader over the full payload. Missing keys wrap
	// apperr.ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Head returns metadata only.
	Head(ctx context.Context, key string) (Info, error)
	// Delete removes a payload. Missing keys wrap apperr.ErrNotFound.
	Delete(ctx context.Context, key string) error
	// List returns payloads whose key has prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Driver returns the backend identifier.
	Driver() Driver
}
