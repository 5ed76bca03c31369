package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/playperu/meimei/internal/catalog"
	"github.com/playperu/meimei/internal/config"
	"github.com/playperu/meimei/internal/database"
	"github.com/playperu/meimei/internal/scores"
	"github.com/playperu/meimei/internal/server"
	"github.com/playperu/meimei/internal/session"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Catalog ---
	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	if err := cat.CheckProjection(cfg.Projection); err != nil {
		return fmt.Errorf("PROJECTION: %w", err)
	}
	logger.Info("catalog loaded", "locations", cat.Len(), "projections", cat.Projections())

	// --- SQLite ---
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	docs, err := server.NewDocStore(ctx, db)
	if err != nil {
		return fmt.Errorf("initializing session store: %w", err)
	}
	scoreStore, err := scores.NewStore(ctx, db)
	if err != nil {
		return fmt.Errorf("initializing score store: %w", err)
	}

	metrics, err := server.NewMetrics(nil)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	broker := server.NewBroker()
	sessions := server.NewRegistry(cat, session.Config{
		Projection:   cfg.Projection,
		TargetVisits: cfg.TargetVisits,
	}, docs, broker, metrics, logger)
	flags := server.NewFlagQuizzes(cfg.FlagRounds, cfg.FlagAdvanceDelay, scoreStore, metrics, logger)
	defer flags.Close()

	if cfg.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH not set, score reset disabled")
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		DB:       db,
		Catalog:  cat,
		Sessions: sessions,
		Flags:    flags,
		Scores:   scoreStore,
		Broker:   broker,
		Metrics:  metrics,
		Admin: server.AdminCredentials{
			User:         cfg.AdminUser,
			PasswordHash: cfg.AdminPasswordHash,
		},
		SPADir: cfg.SPADir,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		return sessions.RunEviction(gctx, cfg.SessionIdleTTL, cfg.SessionRetention)
	})

	g.Go(func() error {
		return flags.RunEviction(gctx, cfg.SessionIdleTTL)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Open(path)
}
