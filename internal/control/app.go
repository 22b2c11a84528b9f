// Package control assembles the proxy's components and manages their lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vietddude/tmdbproxy/internal/api"
	"github.com/vietddude/tmdbproxy/internal/core/config"
	"github.com/vietddude/tmdbproxy/internal/fallback"
	redisclient "github.com/vietddude/tmdbproxy/internal/infra/redis"
	"github.com/vietddude/tmdbproxy/internal/infra/upstream"
	"github.com/vietddude/tmdbproxy/internal/notify"
	"github.com/vietddude/tmdbproxy/internal/proxy"
)

// App is the running proxy: HTTP server, upstream client and notifier.
type App struct {
	cfg         *config.AppConfig
	upstream    *upstream.Client
	redisClient *redisclient.Client
	dispatcher  *notify.Dispatcher
	server      *api.Server
	handler     http.Handler
	log         *slog.Logger
}

// NewApp creates a new App from a validated configuration.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	log := slog.Default().With("component", "app")

	client := upstream.NewClient(upstream.Config{
		BaseURL: cfg.TMDB.BaseURL,
		APIKey:  cfg.TMDB.APIKey,
	})

	var (
		rdb       *redisclient.Client
		fallbacks *fallback.Store
		err       error
	)
	if cfg.Redis.Enabled() {
		rdb, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		fallbacks, err = fallback.NewWithSource(ctx, rdb)
	} else {
		fallbacks, err = fallback.New()
	}
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, fmt.Errorf("failed to load fallback documents: %w", err)
	}

	service := proxy.NewService(client, fallbacks, proxy.NewPolicies(cfg.Retry))

	notifier := notify.New(notify.ConfigFrom(cfg))
	dispatcher := notify.NewDispatcher(notifier)

	handler := api.NewRouter(
		api.NewHandler(service, api.NewSecretChecker(cfg.Auth.Secret, cfg.Auth.Source), dispatcher, client.Monitor),
		cfg.Server.CORSOrigins,
	)

	return &App{
		cfg:         cfg,
		upstream:    client,
		redisClient: rdb,
		dispatcher:  dispatcher,
		server:      api.NewServer(handler, cfg.Server.Port),
		handler:     handler,
		log:         log,
	}, nil
}

// Handler returns the HTTP handler serving all routes.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Start starts serving in the background.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("HTTP server failed", "error", err)
		}
	}()

	a.log.Info("Proxy listening",
		"addr", a.server.Addr(),
		"upstream", a.cfg.TMDB.BaseURL,
		"secret_source", a.cfg.Auth.Source,
		"redis", a.cfg.Redis.Enabled(),
		"demo", a.cfg.Demo,
	)
	return nil
}

// Stop stops the server, then waits for pending notifications before closing
// connections.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping proxy...")

	var errs []error
	if err := a.server.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop server: %w", err))
	}
	if err := a.dispatcher.Stop(ctx); err != nil {
		a.log.Warn("Pending notifications abandoned", "error", err)
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if err := a.upstream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close upstream: %w", err))
	}
	return errors.Join(errs...)
}
