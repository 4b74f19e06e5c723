// Package app wires configuration, storage and the HTTP server into a
// runnable service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"relay/internal/sweeper"
	"relay/pkg/accounts"
	"relay/pkg/api/handlers"
	"relay/pkg/auth"
	"relay/pkg/config"
	"relay/pkg/logger"
	"relay/pkg/presence"
	"relay/pkg/store"
)

// App encapsulates the server components and lifecycle.
type App struct {
	cfg       *config.Config
	version   string
	commit    string
	buildDate string

	srv *http.Server
}

// New validates the configuration and opens resources that do not need a
// running context. Call Run to start the server and block until shutdown.
func New(cfg *config.Config, version, commit, buildDate string) (*App, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	auth.Configure(cfg.Sessions.Secret, cfg.Sessions.TTL.Duration())
	accounts.SetDeveloperCred(cfg.Security.Developer.Phone, cfg.Security.Developer.Password)
	presence.SetWindow(cfg.Presence.TypingWindow.Duration())
	handlers.SetMaxBodySize(cfg.Server.MaxBodySize.Int64())

	if err := store.Open(cfg.Server.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", cfg.Server.DBPath, err)
	}

	return &App{cfg: cfg, version: version, commit: commit, buildDate: buildDate}, nil
}

func validateConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if cfg.Sessions.Secret == "" {
		return fmt.Errorf("sessions.secret is required (or set RELAY_SESSION_SECRET)")
	}
	if cfg.Server.DBPath == "" {
		return fmt.Errorf("server.db_path is required")
	}
	cert, key := cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile
	if (cert == "") != (key == "") {
		return fmt.Errorf("tls requires both cert_file and key_file")
	}
	return nil
}

// Run starts the sweeper and HTTP server, and blocks until ctx is
// canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	stopSweeper, err := sweeper.Start(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer stopSweeper()

	errCh := a.startHTTP()

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func (a *App) shutdown() {
	if a.srv != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(shCtx); err != nil {
			logger.Warn("http_shutdown_error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Warn("store_close_error", "error", err)
	}
}
