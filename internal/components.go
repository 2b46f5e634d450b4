package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/meshdesk/internal/index"
	"github.com/starford/meshdesk/internal/intake"
	"github.com/starford/meshdesk/internal/metrics"
	"github.com/starford/meshdesk/internal/sse"
	"github.com/starford/meshdesk/internal/storage"
	"github.com/starford/meshdesk/internal/workspace"
)

// components are the long-lived collaborators shared by the HTTP and MCP
// front ends.
type components struct {
	logger  *slog.Logger
	store   storage.Provider
	db      *index.DB
	metrics *metrics.Collectors
	broker  *sse.Broker
	ws      *workspace.Workspace
	intake  *intake.Intake
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config, out io.Writer) *slog.Logger {
	if out == nil {
		out = os.Stdout
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// build wires storage, index, metrics, events, workspace and intake. The
// returned close function releases them in reverse order.
func build(ctx context.Context, cfg *Config, logger *slog.Logger) (*components, func(), error) {
	store, err := storage.Open(ctx, cfg.Storage.ProviderConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}

	m := metrics.New()
	broker := sse.NewBroker(cfg.Events.Throttle)

	ws := workspace.New(store,
		workspace.WithLogger(logger),
		workspace.WithRenderer(broker),
		workspace.WithEvents(broker.PublishWorkspaceEvent),
		workspace.WithMirror(db),
		workspace.WithMetrics(m),
		workspace.WithReadPolicy(workspace.ReadPolicy(cfg.Selection.ReadPolicy)),
		workspace.WithExportOptions(workspace.ExportOptions{IncludeFileObject: cfg.Export.IncludeFileObject}),
	)

	in, err := intake.New(store, cfg.Import.Pattern, cfg.Import.MaxUploadBytes(), logger)
	if err != nil {
		ws.Close()
		broker.Close()
		db.Close()
		return nil, nil, err
	}

	c := &components{
		logger:  logger,
		store:   store,
		db:      db,
		metrics: m,
		broker:  broker,
		ws:      ws,
		intake:  in,
	}
	closeFn := func() {
		ws.Close()
		broker.Close()
		if err := db.Close(); err != nil {
			logger.Warn("index close failed", slog.String("error", err.Error()))
		}
	}
	return c, closeFn, nil
}

// importInbox imports the configured inbox directory, if any.
func (c *components) importInbox(ctx context.Context, dir string) {
	res, err := c.intake.ImportDir(ctx, c.ws, dir)
	if err != nil {
		c.logger.Warn("inbox import failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}
	c.logger.Info("inbox imported",
		slog.String("dir", dir),
		slog.Int("files", len(res.Files)),
		slog.Int("skipped", len(res.Skipped)))
}
