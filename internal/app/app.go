package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/nodegrid/internal/config"
	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *config.Config
	registry *registry.Registry
	closers  []func() error
}

// NewApp is the constructor for the main application. It builds an isolated
// logger and a kind registry populated with the given modules, or with the
// core modules when none are given.
func NewApp(ctx context.Context, outW io.Writer, cfg *config.Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: registry.New(),
	}

	if len(modules) == 0 {
		var err error
		if modules, err = a.coreModules(ctx); err != nil {
			return nil, errors.Join(fmt.Errorf("failed to set up modules: %w", err), a.Close())
		}
	}
	for _, mod := range modules {
		mod.Register(a.registry)
	}
	logger.Debug("All Go modules registered.", "modules", len(modules), "kinds", len(a.registry.Kinds()))

	return a, nil
}

// Registry returns the node kind catalog.
func (a *App) Registry() *registry.Registry { return a.registry }

// Close releases resources held by the modules.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
