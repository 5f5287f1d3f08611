package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/weavergo/internal/config"
	"github.com/vk/weavergo/internal/ctxlog"
	"github.com/vk/weavergo/internal/fsutil"
	"github.com/vk/weavergo/internal/image"
	"github.com/vk/weavergo/internal/loader"
	"github.com/vk/weavergo/internal/registry"
	"github.com/vk/weavergo/internal/rewriter"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle for one rewrite run.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	appCfg   *Config
	rewriter *rewriter.Rewriter
}

// NewApp is the constructor for the main application. It returns a
// fully initialized App instance, including its own isolated logger
// and plugin catalog. Configuration and plugin-load failures are fatal
// startup errors and panic; callers recover to provide a clean exit.
func NewApp(outW io.Writer, appCfg *Config, cfgLoader config.Loader, plugins ...registry.Plugin) *App {
	logger := newLogger(appCfg.LogLevel, appCfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, conv, err := cfgLoader.Load(ctx, appCfg.ConfigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	if len(plugins) == 0 {
		plugins = corePlugins
	}
	catalog := registry.NewCatalog(plugins...)
	logger.Debug("All compiled-in plugins registered.", "count", len(plugins))

	cache := image.NewCache()
	if appCfg.PluginsPath != "" {
		if err := preloadImages(cache, appCfg.PluginsPath); err != nil {
			panic(fmt.Errorf("failed to preload plugin images: %w", err))
		}
	}

	pipelines, err := loader.New(model, conv, catalog, cache, logger).BuildPipelines(ctx)
	if err != nil {
		// Configuration and plugin-load errors abort before any
		// structural mutation occurs.
		panic(fmt.Errorf("failed to build processor pipelines: %w", err))
	}
	logger.Debug("Processor pipelines built.")

	return &App{
		outW:     outW,
		logger:   logger,
		appCfg:   appCfg,
		rewriter: rewriter.New(pipelines, logger),
	}
}

// preloadImages loads every image file under dir into the cache.
func preloadImages(cache *image.Cache, dir string) error {
	paths, err := fsutil.FindByExtension(dir, image.FileExtension)
	if err != nil {
		return err
	}
	for _, path := range paths {
		if _, err := cache.Load(path); err != nil {
			return err
		}
	}
	return nil
}
