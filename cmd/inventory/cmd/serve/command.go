// Package serve provides the HTTP API server command.
package serve

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/matt653/high-life-auto-sub000/cmd/application"
	"github.com/matt653/high-life-auto-sub000/internal/server"
	"github.com/matt653/high-life-auto-sub000/pkg/constants"
)

// Application is what serve needs beyond application.Application.
type Application interface {
	application.Application

	// ServerConfig returns the configured server settings; flags override them.
	ServerConfig() server.Config

	// AutoUpdates reports whether the inventory is re-ingested periodically.
	AutoUpdates() bool
}

// NewCommand creates the serve command.
func NewCommand(app Application) *cobra.Command {
	defaults := server.DefaultConfig()

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		Short:   "Start the REST API server with WebSocket and SSE updates",
		Long: `Start the inventory API server.

Features:
  - Vehicle list and detail endpoints serving merged views
  - Per-vehicle load-state stream (/vehicles/{id}/watch)
  - Enhancement editing (PUT /vehicles/{id}/enhancement)
  - Manual ingestion (POST /ingest), rate limited per client
  - WebSocket (/updates/ws) and SSE (/updates/stream) change notifications
  - Optional API key authentication for write endpoints
  - Graceful shutdown with connection draining

An initial ingestion runs in the background when the server starts;
/ready reports 503 until it completes.`,
		Example: `  # Start on the configured address
  inventory serve

  # Custom port, writes protected by an API key
  SERVER_API_KEY=secret inventory serve --port 3000 --auth

  # Allow a storefront origin
  inventory serve --cors-origins https://shop.example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, app)
		},
	}

	cmd.Flags().Int("port", defaults.Port, "Server port")
	cmd.Flags().String("host", defaults.Host, "Bind address")
	cmd.Flags().String("prefix", defaults.PathPrefix, "API path prefix")

	cmd.Flags().Bool("cors", false, "Enable CORS for all origins")
	cmd.Flags().StringSlice("cors-origins", nil, "Allowed CORS origins (comma-separated)")

	cmd.Flags().Bool("auth", false, "Require an API key for write endpoints")
	cmd.Flags().String("auth-header", defaults.AuthHeader, "Authentication header name")
	cmd.Flags().String("api-key", "", "API key (defaults to server.api_key from the config)")

	cmd.Flags().Int("ingest-rate-limit", defaults.IngestRateLimit, "Manual ingestions per minute per client (0 to disable)")
	cmd.Flags().Duration("cache-ttl", defaults.CacheTTL, "Response cache TTL")
	cmd.Flags().Bool("skip-initial-ingest", false, "Do not ingest on startup")

	cmd.Flags().Duration("read-timeout", defaults.ReadTimeout, "HTTP read timeout")
	cmd.Flags().Duration("idle-timeout", defaults.IdleTimeout, "HTTP idle timeout")

	return cmd
}

func runServer(cmd *cobra.Command, app Application) error {
	cfg, err := parseConfig(cmd, app.ServerConfig())
	if err != nil {
		return err
	}
	logger := app.Logger()

	logger.Info().
		Int("port", cfg.Port).
		Str("host", cfg.Host).
		Str("prefix", cfg.PathPrefix).
		Bool("cors", cfg.CORSEnabled).
		Bool("auth", cfg.AuthEnabled).
		Int("ingest_rate_limit", cfg.IngestRateLimit).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("Starting API server")

	srv, err := server.New(app, cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Start()

	client, err := app.Client()
	if err != nil {
		return err
	}
	if skip, _ := cmd.Flags().GetBool("skip-initial-ingest"); !skip {
		go func() {
			ctx, cancel := context.WithTimeout(cmd.Context(), constants.UpdateContextTimeout)
			defer cancel()
			if _, err := client.Ingest(ctx); err != nil {
				logger.Error().Err(err).Msg("Initial ingestion failed")
			}
		}()
	}
	if app.AutoUpdates() {
		if err := client.AutoUpdatesOn(); err != nil {
			return fmt.Errorf("starting auto-updates: %w", err)
		}
	}

	httpServer := &http.Server{
		Addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:     srv.Handler(),
		ReadTimeout: cfg.ReadTimeout,
		// streaming endpoints hold the connection open
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return startWithGracefulShutdown(cmd.Context(), httpServer, srv, logger)
}

// parseConfig applies explicitly set flags over the configured settings.
func parseConfig(cmd *cobra.Command, cfg server.Config) (server.Config, error) {
	flags := cmd.Flags()

	if flags.Changed("port") {
		cfg.Port = mustGetInt(cmd, "port")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("port out of range: %d", cfg.Port)
	}
	if flags.Changed("host") {
		cfg.Host = mustGetString(cmd, "host")
	}
	if flags.Changed("prefix") {
		cfg.PathPrefix = mustGetString(cmd, "prefix")
	}
	if mustGetBool(cmd, "cors") {
		cfg.CORSEnabled = true
		cfg.CORSOrigins = []string{"*"}
	}
	if origins := mustGetStringSlice(cmd, "cors-origins"); len(origins) > 0 {
		cfg.CORSEnabled = true
		cfg.CORSOrigins = origins
	}
	if flags.Changed("auth-header") {
		cfg.AuthHeader = mustGetString(cmd, "auth-header")
	}
	if key := mustGetString(cmd, "api-key"); key != "" {
		cfg.APIKey = key
	}
	if mustGetBool(cmd, "auth") {
		cfg.AuthEnabled = true
	}
	if cfg.AuthEnabled && cfg.APIKey == "" {
		return cfg, fmt.Errorf("--auth requires an API key (--api-key or server.api_key)")
	}
	if flags.Changed("ingest-rate-limit") {
		cfg.IngestRateLimit = mustGetInt(cmd, "ingest-rate-limit")
	}
	if flags.Changed("cache-ttl") {
		cfg.CacheTTL = mustGetDuration(cmd, "cache-ttl")
	}
	if flags.Changed("read-timeout") {
		cfg.ReadTimeout = mustGetDuration(cmd, "read-timeout")
	}
	if flags.Changed("idle-timeout") {
		cfg.IdleTimeout = mustGetDuration(cmd, "idle-timeout")
	}
	return cfg, nil
}

// startWithGracefulShutdown serves until ctx is canceled, then drains
// connections and stops the background services.
func startWithGracefulShutdown(ctx context.Context, httpServer *http.Server, srv *server.Server, logger *zerolog.Logger) error {
	serverErr := make(chan error, 1)

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case err := <-serverErr:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return err
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")

		// the parent context is already canceled
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Background services shutdown had issues")
		}

		logger.Info().Msg("Server stopped gracefully")
		return nil
	}
}

func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

func mustGetStringSlice(cmd *cobra.Command, name string) []string {
	val, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

func mustGetDuration(cmd *cobra.Command, name string) time.Duration {
	val, err := cmd.Flags().GetDuration(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}
