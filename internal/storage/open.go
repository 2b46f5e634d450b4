package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/starford/meshdesk/internal/apperr"
)

// Config selects and configures a payload backend.
type Config struct {
	Driver Driver
	Path   string // root directory for DriverFS
	S3     S3Config
}

// Open constructs the Provider named by cfg.Driver. The FS root is created if missing.
func Open(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Driver {
	case DriverFS, "":
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create root: %w", err)
		}
		return NewFS(cfg.Path)
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("storage: driver %q: %w", cfg.Driver, apperr.ErrUnsupported)
	}
}
