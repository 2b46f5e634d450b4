package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gobwas/glob"

	"github.com/starford/meshdesk/internal/index"
	"github.com/starford/meshdesk/internal/intake"
	"github.com/starford/meshdesk/internal/storage"
	"github.com/starford/meshdesk/internal/workspace"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Storage   StorageConfig     `yaml:"storage"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Import    ImportConfig      `yaml:"import"`
	Selection SelectionConfig   `yaml:"selection"`
	Export    ExportConfig      `yaml:"export"`
	Events    EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Import.Validate(); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if c.Storage.Driver == string(storage.DriverFS) && c.Import.Inbox.Path != "" &&
		samePath(c.Storage.Path, c.Import.Inbox.Path) {
		return errors.New("import: inbox path must differ from storage path")
	}
	return c.Selection.Validate()
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects where imported payloads are staged.
type StorageConfig struct {
	Driver string   `yaml:"driver"`
	Path   string   `yaml:"path"`
	S3     S3Config `yaml:"s3"`
}

// S3Config holds S3-compatible object storage settings.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = string(storage.DriverFS)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required,
			validation.In(string(storage.DriverFS), string(storage.DriverMemory), string(storage.DriverS3))),
		validation.Field(&c.Path, validation.When(c.Driver == string(storage.DriverFS), validation.Required)),
		validation.Field(&c.S3, validation.When(c.Driver == string(storage.DriverS3), validation.By(func(any) error {
			if c.S3.Bucket == "" {
				return errors.New("bucket is required")
			}
			return nil
		}))),
	)
}

// ProviderConfig converts to the storage package configuration.
func (c *StorageConfig) ProviderConfig() storage.Config {
	return storage.Config{
		Driver: storage.Driver(c.Driver),
		Path:   c.Path,
		S3: storage.S3Config{
			Bucket:          c.S3.Bucket,
			Region:          c.S3.Region,
			Endpoint:        c.S3.Endpoint,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			PathStyle:       c.S3.PathStyle,
		},
	}
}

// SQLiteConfig holds the search index database configuration. An empty path
// or ":memory:" keeps the index in memory.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ImportConfig controls which files are accepted and the optional inbox
// directory.
type ImportConfig struct {
	Pattern     string      `yaml:"pattern"`
	MaxUploadMB int         `yaml:"max_upload_mb"`
	Inbox       InboxConfig `yaml:"inbox"`
}

// InboxConfig describes a server-side directory imported at startup and,
// with Watch, again whenever its matching files change.
type InboxConfig struct {
	Path     string        `yaml:"path"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// MaxUploadBytes returns the upload limit in bytes; 0 means unlimited.
func (c *ImportConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Validate validates the import configuration.
func (c *ImportConfig) Validate() error {
	if c.Pattern == "" {
		c.Pattern = intake.DefaultPattern
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Pattern, validation.By(func(any) error {
			_, err := glob.Compile(c.Pattern)
			return err
		})),
		validation.Field(&c.MaxUploadMB, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.Inbox.Watch && c.Inbox.Path == "" {
		return errors.New("inbox: watch requires a path")
	}
	return nil
}

// SelectionConfig controls how concurrent mesh reads are ordered.
type SelectionConfig struct {
	ReadPolicy string `yaml:"read_policy"`
}

// Validate validates the selection configuration.
func (c *SelectionConfig) Validate() error {
	if c.ReadPolicy == "" {
		c.ReadPolicy = string(workspace.ReadPolicyTagged)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.ReadPolicy, validation.In(
			string(workspace.ReadPolicyTagged), string(workspace.ReadPolicyLastCompleted))),
	)
}

// ExportConfig controls the annotated_items.json encoding.
type ExportConfig struct {
	IncludeFileObject bool `yaml:"include_file_object"`
}

// EventsConfig controls the SSE stream.
type EventsConfig struct {
	Throttle time.Duration `yaml:"throttle"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Driver: string(storage.DriverFS),
			Path:   "./data/uploads",
		},
		SQLite: SQLiteConfig{
			Path: index.MemoryDSN,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Import: ImportConfig{
			Pattern:     intake.DefaultPattern,
			MaxUploadMB: 512,
			Inbox: InboxConfig{
				Debounce: intake.DefaultDebounce,
			},
		},
		Selection: SelectionConfig{
			ReadPolicy: string(workspace.ReadPolicyTagged),
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}
