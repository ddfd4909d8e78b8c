package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/iwvelando/ltvcalc/internal/params"
	"github.com/iwvelando/ltvcalc/internal/params/rediscache"
	"github.com/iwvelando/ltvcalc/internal/store"
	"github.com/iwvelando/ltvcalc/internal/warmer"
	"github.com/iwvelando/ltvcalc/pkg/constants"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// App wires a parameters source, a cache and the optional warmer behind the
// HTTP handler.
type App struct {
	logger  *zap.Logger
	cfg     *Config
	service *params.Service
	warmer  *warmer.Warmer
	server  *http.Server
	closers []func() error
}

// NewApp builds the application described by cfg. Parameters come from the
// database when a DSN is configured, otherwise from sourceUrl; with neither,
// every request is answered from fallbacks.
func NewApp(ctx context.Context, logger *zap.Logger, cfg *Config, fallbacks params.Fallbacks, version string) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if fallbacks == nil {
		fallbacks = params.DefaultFallbacks()
	}

	app := &App{logger: logger, cfg: cfg}

	source, err := app.openSource(ctx, fallbacks)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	cache, err := app.openCache(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.service = params.NewService(logger, source, cache,
		params.WithTTL(cfg.Cache.TTL),
		params.WithFallbacks(fallbacks),
		params.WithFetchTimeout(cfg.SourceTimeout),
	)
	if cfg.Warmer.Enabled && source != nil {
		app.warmer = warmer.New(logger, app.service, cfg.Warmer.Schedule, cfg.SourceTimeout)
	}

	app.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      NewHandler(logger, app.service, cfg.BodySizeBytes(), version),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return app, nil
}

func (a *App) openSource(ctx context.Context, fallbacks params.Fallbacks) (params.Source, error) {
	switch {
	case a.cfg.Database.DSN != "":
		db, err := store.Open(ctx, a.cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return a.repository(ctx, db, fallbacks)
	case a.cfg.SourceURL != "":
		a.logger.Info("using upstream calculation parameters",
			zap.String("op", "server.NewApp"),
			zap.String("source_url", a.cfg.SourceURL),
		)
		return params.NewClient(a.logger, a.cfg.SourceURL, a.cfg.SourceTimeout), nil
	default:
		a.logger.Warn("no parameters source configured, serving fallbacks only",
			zap.String("op", "server.NewApp"),
		)
		return nil, nil
	}
}

func (a *App) repository(ctx context.Context, db *sql.DB, fallbacks params.Fallbacks) (params.Source, error) {
	repo := store.NewRepository(db)
	if a.cfg.Database.Migrate {
		seeded, err := repo.EnsureSchema(ctx, fallbacks)
		if err != nil {
			return nil, fmt.Errorf("failed to migrate banking standards: %w", err)
		}
		a.logger.Info("banking standards schema ready",
			zap.String("op", "server.NewApp"),
			zap.Int("seeded", seeded),
		)
	}
	return repo, nil
}

func (a *App) openCache(ctx context.Context) (params.Cache, error) {
	if a.cfg.Cache.Backend != constants.RedisCacheBackend {
		return params.NewMemoryCache(), nil
	}
	redisCfg := a.cfg.Cache.Redis
	client, err := rediscache.Connect(ctx, redisCfg.Address, redisCfg.Password, redisCfg.DB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return rediscache.New(client, redisCfg.KeyPrefix), nil
}

// Handler returns the HTTP handler of the application.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Service returns the parameters service shared by all handlers.
func (a *App) Service() *params.Service {
	return a.service
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if a.warmer != nil {
		if err := a.warmer.RunOnce(ctx); err != nil {
			a.logger.Warn("initial parameters warm-up failed",
				zap.String("op", "server.App.Run"),
				zap.Error(err),
			)
		}
		if err := a.warmer.Start(ctx); err != nil {
			return err
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server",
			zap.String("op", "server.App.Run"),
			zap.String("address", a.cfg.Address),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("shutting down HTTP server", zap.String("op", "server.App.Run"))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("error during server shutdown: %w", err)
	}
	if a.warmer != nil {
		if err := a.warmer.Stop(shutdownCtx); err != nil && runErr == nil {
			runErr = err
		}
	}
	if err := a.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Close releases database and redis connections.
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
