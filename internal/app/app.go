package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredraw-server/internal/auth"
	"github.com/vovakirdan/wiredraw-server/internal/config"
	"github.com/vovakirdan/wiredraw-server/internal/core"
	"github.com/vovakirdan/wiredraw-server/internal/presence"
	"github.com/vovakirdan/wiredraw-server/internal/store"
	"github.com/vovakirdan/wiredraw-server/internal/store/postgres"
	"github.com/vovakirdan/wiredraw-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wiredraw-server/internal/transport/http"
)

// ErrMissingJWTSecret is returned when no credential signing secret is configured.
var ErrMissingJWTSecret = errors.New("jwt_secret is not configured")

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	tracker         *presence.Tracker
	log             *zerolog.Logger
}

// OpenStore opens and migrates the shape log backend selected by cfg.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		st, err = sqlite.New(cfg.Path)
	case "postgres":
		st, err = postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", store.ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return st, nil
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}

	st, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database initialized")

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}

	var (
		tracker core.Presence
		roster  transporthttp.Roster
	)
	if cfg.Redis.Addr != "" {
		t, err := presence.NewTracker(ctx, presence.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      2 * cfg.HeartbeatInterval,
		})
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("init presence: %w", err)
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("presence tracker connected")
		a.tracker = t
		tracker, roster = t, t
	}

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}

	a.hub = core.NewHub(st, core.Config{
		HeartbeatInterval: cfg.HeartbeatInterval,
		SendQueueSize:     cfg.SendQueueSize,
	}, tracker, logger)
	a.server = transporthttp.NewServer(a.hub, auth.NewVerifier(jwtConfig), st, roster, cfg, logger)

	return a, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(ctx)
	hubDone := make(chan struct{})
	go func() {
		a.hub.Run(hubCtx)
		close(hubDone)
	}()

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	var err error
	select {
	case err = <-serverErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err = a.server.Shutdown(shutdownCtx); err == nil {
			err = <-serverErr
		}
	}

	stopHub()
	<-hubDone
	a.cleanup()
	return err
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.tracker != nil {
		if err := a.tracker.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close presence tracker")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
