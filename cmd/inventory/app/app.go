// Package app provides the application context and dependency management
// for the inventory CLI: configuration, logging and the lazily built
// inventory client with its stores.
package app

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	inventory "github.com/matt653/high-life-auto-sub000"
	"github.com/matt653/high-life-auto-sub000/cmd/application"
	"github.com/matt653/high-life-auto-sub000/internal/cache"
	"github.com/matt653/high-life-auto-sub000/internal/enhancements"
	"github.com/matt653/high-life-auto-sub000/internal/server"
	"github.com/matt653/high-life-auto-sub000/internal/snapshot"
	"github.com/matt653/high-life-auto-sub000/pkg/authority"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
)

var _ application.Application = (*App)(nil)

// App represents the inventory application with all its dependencies.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// client and its stores are created on first use
	mu      sync.Mutex
	client  inventory.Client
	closers []io.Closer
}

// New creates an App and loads its configuration.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.config == nil {
		config, err := LoadConfig("")
		if err != nil {
			return nil, errors.WrapResource("load", "config", "", err)
		}
		app.config = config
	}
	if app.logger == nil {
		logger := NewLogger(app.config)
		app.logger = &logger
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// OutputFormat returns the --format value, empty when unset.
func (a *App) OutputFormat() string { return a.config.Format }

// ServerConfig returns the HTTP server settings.
func (a *App) ServerConfig() server.Config { return a.config.Server }

// AutoUpdates reports whether serve re-ingests periodically.
func (a *App) AutoUpdates() bool { return a.config.AutoUpdatesEnabled }

// Client returns the inventory client, opening its stores on first use.
func (a *App) Client() (inventory.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	client, closers, err := a.buildClient(context.Background())
	if err != nil {
		closeAll(closers, a.logger)
		return nil, err
	}
	a.client = client
	a.closers = closers
	return client, nil
}

func (a *App) buildClient(ctx context.Context) (inventory.Client, []io.Closer, error) {
	cfg := a.config
	var closers []io.Closer

	snapshots, err := snapshot.Open(cfg.SnapshotDriver, cfg.SnapshotPath)
	if err != nil {
		return nil, closers, errors.WrapResource("open", "snapshot store", cfg.SnapshotPath, err)
	}
	if snapshots != nil {
		closers = append(closers, snapshots)
	}

	adapter, closer, err := enhancements.Open(ctx, cfg.Enhancements)
	if err != nil {
		return nil, closers, errors.WrapResource("open", "enhancement store", cfg.Enhancements.Driver, err)
	}
	closers = append(closers, closer)

	opts := []inventory.Option{
		inventory.WithFeeds(cfg.Feeds...),
		inventory.WithEnhancements(adapter),
		inventory.WithNavState(cache.NewNav(cfg.NavTTL)),
		inventory.WithResolveDeadline(cfg.ResolveDeadline),
		inventory.WithEnhancementTimeout(cfg.EnhancementTimeout),
		inventory.WithAutoUpdateInterval(cfg.AutoUpdateInterval),
		inventory.WithLogger(a.logger),
	}
	if snapshots != nil {
		opts = append(opts, inventory.WithSnapshots(snapshots))
	}
	if len(cfg.Authority) > 0 {
		opts = append(opts, inventory.WithAuthorityTable(authority.New(cfg.Authority...)))
	}

	client, err := inventory.New(opts...)
	if err != nil {
		return nil, closers, errors.WrapResource("create", "inventory client", "", err)
	}

	a.logger.Debug().
		Int("feeds", len(cfg.Feeds)).
		Str("snapshots", cfg.SnapshotDriver).
		Str("enhancements", cfg.Enhancements.Driver).
		Msg("Inventory client ready")

	return client, closers, nil
}

// Shutdown stops auto-updates and closes the stores.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		if err := a.client.AutoUpdatesOff(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to stop auto-updates during shutdown")
		}
	}
	err := closeAll(a.closers, a.logger)
	a.closers = nil
	return err
}

func closeAll(closers []io.Closer, logger *zerolog.Logger) error {
	var first error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Warn().Err(err).Msg("Store close failed")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets the configuration instead of loading it.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets the inventory client, skipping store setup.
func WithClient(client inventory.Client) Option {
	return func(a *App) error {
		a.client = client
		return nil
	}
}
