// Package entrypoint wires the configured backend, auth, sync engine
// and router together and runs the HTTP server.
package entrypoint

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fragmentado/catalog/internal/auth"
	"github.com/fragmentado/catalog/internal/config"
	http_controllers "github.com/fragmentado/catalog/internal/http"
	"github.com/fragmentado/catalog/internal/scheduler"
	"github.com/fragmentado/catalog/internal/songlink"
	"github.com/fragmentado/catalog/internal/spotify"
	"github.com/fragmentado/catalog/internal/store"
	"github.com/fragmentado/catalog/internal/store/dbstore"
	"github.com/fragmentado/catalog/internal/store/filestore"
	"github.com/fragmentado/catalog/internal/sync"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down
// within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		logrus.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("listen failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.WithField("timeout", timeout.String()).Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Fatal("server shutdown failed")
	}

	logrus.Info("server exiting")
}

// OpenStore creates the content store the configuration selects. The
// returned *sql.DB is non-nil only for the sqlite backend and feeds
// the persistent session store.
func OpenStore(cfg *config.Config) (store.Store, *sql.DB, error) {
	switch cfg.Content.Backend {
	case config.BackendFile:
		if err := os.MkdirAll(filepath.Dir(cfg.Content.SnapshotPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create snapshot directory: %w", err)
		}
		return filestore.New(cfg.Content.SnapshotPath), nil, nil

	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Content.DatabasePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
		s, err := dbstore.New(cfg.Content.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := s.SQLDB()
		if err != nil {
			return nil, nil, err
		}
		return s, sqlDB, nil

	default:
		return nil, nil, fmt.Errorf("unknown content backend %q", cfg.Content.Backend)
	}
}

// csrfSecret resolves the configured session secret into raw bytes,
// generating a fresh one when none is set.
func csrfSecret(cfg *config.Config) ([]byte, error) {
	if cfg.Auth.SessionSecret != "" {
		if raw, err := hex.DecodeString(cfg.Auth.SessionSecret); err == nil {
			return raw, nil
		}
		return []byte(cfg.Auth.SessionSecret), nil
	}

	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, err
	}
	logrus.Info("generated session secret (set AUTH_SESSION_SECRET to persist sessions across restarts)")
	raw, _ := hex.DecodeString(secret)
	return raw, nil
}

// Run boots the full service.
func Run(cfg *config.Config, version string) {
	logrus.WithField("version", version).Info("starting catalog service")

	contentStore, sqlDB, err := OpenStore(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open content store")
	}
	defer func() {
		if err := contentStore.Close(); err != nil {
			logrus.WithError(err).Error("error closing content store")
		}
	}()

	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth.SessionLifetime, cfg.Auth.SecureCookies)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize session manager")
	}

	secret, err := csrfSecret(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to derive CSRF secret")
	}

	spotifyCfg := spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		ArtistID:     cfg.Spotify.ArtistID,
		Market:       cfg.Spotify.Market,
	}

	var engine *sync.Engine
	var links sync.LinkResolver
	if spotifyCfg.Configured() {
		links = songlink.NewClient()
		engine = sync.NewEngine(contentStore, spotify.NewClient(spotifyCfg.ClientID, spotifyCfg.ClientSecret), links, spotifyCfg)
	} else {
		logrus.Warn("spotify credentials not configured, catalog sync endpoints disabled")
	}

	syncScheduler := scheduler.NewSpotifySyncScheduler(engine, cfg.Sync)
	if err := syncScheduler.Start(context.Background()); err != nil {
		logrus.WithError(err).Fatal("failed to start sync scheduler")
	}

	admin, err := contentStore.Admin()
	if err != nil {
		logrus.WithError(err).Fatal("failed to read admin credential")
	}
	if admin == nil {
		logrus.Info("no admin account found, POST /api/admin/bootstrap to create one")
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Store:         contentStore,
		Sessions:      sessionManager,
		Engine:        engine,
		Links:         links,
		CSRFSecret:    secret,
		SecureCookies: cfg.Auth.SecureCookies,
	})

	Serve(router, cfg, func(ctx context.Context) {
		syncScheduler.Stop()
	})
}
