// Package app provides the top-level application lifecycle management for the
// backtester. It wires dependencies (stores, cache, blob storage,
// notifications), builds the replay components, and dispatches to the
// configured operating mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/backtestbot/internal/config"
	"github.com/alanyoungcy/backtestbot/internal/strategy"
)

// App is the root application object. It owns the configuration, logger, the
// strategy registry, and a list of cleanup functions called in reverse order
// on shutdown.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *strategy.Registry
	closers  []func()
}

// New creates a new App from the given configuration and logger. The registry
// starts with every built-in strategy; callers may Register more before Run.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "app")),
		registry: strategy.Builtin(),
	}
}

// Registry exposes the strategy registry so embedders can add strategies.
func (a *App) Registry() *strategy.Registry {
	return a.registry
}

// Run is the main entry point. It wires all dependencies, selects the
// operating mode, and blocks until the mode finishes or the context is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "backtest":
		return a.BacktestMode(ctx, deps)
	case "compare":
		return a.CompareMode(ctx, deps)
	case "serve":
		return a.ServeMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
