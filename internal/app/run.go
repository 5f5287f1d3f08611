package app

import (
	"context"
	"fmt"

	"github.com/vk/weavergo/internal/ctxlog"
)

// Run executes the rewrite. It returns nil on success; on failure the
// diagnostic has been logged and no output image exists.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.logger.Info("Starting rewrite.", "input", a.appCfg.InputPath, "output", a.appCfg.OutputPath)
	if err := a.rewriter.Rewrite(ctx, a.appCfg.InputPath, a.appCfg.OutputPath); err != nil {
		a.logger.Error("Rewrite failed; no output written.", "error", err)
		return fmt.Errorf("rewrite failed: %w", err)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
