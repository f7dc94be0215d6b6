package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lenslove/academy/internal/curriculum"
	"github.com/lenslove/academy/internal/docstore"
	"github.com/lenslove/academy/internal/platform/cache"
	"github.com/lenslove/academy/internal/platform/config"
	"github.com/lenslove/academy/internal/platform/credentials"
	"github.com/lenslove/academy/internal/platform/database"
	"github.com/lenslove/academy/internal/progress"
	"github.com/lenslove/academy/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	registry, err := curriculum.Load(cfg.CurriculumPath)
	if err != nil {
		slog.Error("failed to load curriculum", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	backend, err := openStore(ctx, cfg)
	if err != nil {
		var setupErr *credentials.SetupError
		if errors.As(err, &setupErr) {
			slog.Error("setup error", "error", setupErr)
		} else {
			slog.Error("failed to open document store", "backend", cfg.Store.Backend, "error", err)
		}
		os.Exit(1)
	}
	defer backend.close()

	srv, err := web.NewServer(web.Config{
		UserID:         cfg.UserID,
		Store:          progress.NewStore(backend.docs, cfg.Store.Collection),
		Registry:       registry,
		Events:         backend.events,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	})
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: srv.Handler(),
		// No read/write timeouts: session websockets stay open for as long as the learner does.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr, "backend", cfg.Store.Backend, "user_id", cfg.UserID)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from LEARN_LOG_LEVEL and LEARN_LOG_FORMAT.
func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(lc.Level)}
	if strings.EqualFold(lc.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// storeBackend is an opened document store with its release function.
type storeBackend struct {
	docs   docstore.Store
	events progress.EventLogger
	close  func()
}

func openStore(ctx context.Context, cfg *config.Config) (*storeBackend, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		slog.Warn("using in-memory store, progress is lost on restart")
		return &storeBackend{
			docs:   docstore.NewMemoryStore(),
			events: progress.NopEventLogger{},
			close:  func() {},
		}, nil

	case config.BackendPostgres:
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if cfg.Store.Migrate {
			if err := db.Migrate(ctx, docstore.PostgresSchema, progress.EventsSchema); err != nil {
				db.Close()
				return nil, err
			}
		}
		docs, err := docstore.NewPostgresStore(db.Pool)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &storeBackend{
			docs:   docs,
			events: progress.NewPostgresEventLogger(db.Pool),
			close:  db.Close,
		}, nil

	case config.BackendRedis:
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, err
		}
		docs, err := docstore.NewRedisStore(c.Client, "lens")
		if err != nil {
			c.Close()
			return nil, err
		}
		return &storeBackend{
			docs:   docs,
			events: progress.NopEventLogger{},
			close:  func() { c.Close() },
		}, nil

	case config.BackendGCS:
		creds, err := credentials.Bootstrap(cfg.Secrets.Path, cfg.Secrets.Namespace, cfg.Secrets.CredentialsFile)
		if err != nil {
			return nil, err
		}
		docs, err := docstore.NewGCSStore(ctx, cfg.GCS.Bucket, creds.JSON)
		if err != nil {
			return nil, err
		}
		return &storeBackend{
			docs:   docs,
			events: progress.NopEventLogger{},
			close:  func() { docs.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
