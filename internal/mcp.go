package internal

import (
	"context"
	"log/slog"
	"os"

	"github.com/starford/meshdesk/internal/mcpserver"
)

// RunMCP serves the workspace tools over stdio. Logs go to stderr unless
// another output is configured.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	out := app.logOutput
	if out == nil {
		out = os.Stderr
	}
	logger := newLogger(cfg, out)

	c, closeAll, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeAll()

	if cfg.Import.Inbox.Path != "" {
		c.importInbox(ctx, cfg.Import.Inbox.Path)
	}

	logger.Info("MCP server starting on stdio", slog.String("storage_driver", cfg.Storage.Driver))
	return mcpserver.New(c.ws, c.intake, c.db).ServeStdio()
}
