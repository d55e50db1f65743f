package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"corpdash/internal/amqp"
	"corpdash/internal/audit"
	"corpdash/internal/cache"
	"corpdash/internal/cli"
	"corpdash/internal/config"
	apphttp "corpdash/internal/http"
	"corpdash/internal/log"
	"corpdash/internal/session"
	"corpdash/internal/storage"
)

const (
	sweepInterval = time.Minute
	pruneInterval = time.Hour
	shutdownGrace = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg)
	cli.MustValidate(logger, cfg.Validate)

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	sessions := session.NewStore(cfg.SessionMax, cfg.SessionTTL, logger)
	caches := cache.NewManager(logger)
	caches.Register(sessions.Cleaner())

	var (
		recorders   audit.Multi
		history     audit.History
		repo        *storage.SQLiteRepository
		readyChecks = make(map[string]func(context.Context) error)
	)

	if cfg.AuditBackend == config.AuditSQLite {
		repo = cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
		recorders = append(recorders, repo)
		history = repo
		readyChecks["audit_db"] = repo.Ping
		logger.Info("Upload audit enabled", log.FieldComponent, log.ComponentStorage, "path", cfg.SQLiteDBPath)
	}

	if cfg.AMQPURL != "" {
		pub, err := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		recorders = append(recorders, pub)
		logger.Info("Upload events enabled", log.FieldComponent, log.ComponentAMQP, "exchange", cfg.AMQPExchange)
	}

	var recorder audit.Recorder = audit.Nop{}
	if len(recorders) > 0 {
		recorder = recorders
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Sessions:         sessions,
		Recorder:         recorder,
		History:          history,
		Logger:           logger,
		MaxUploadBytes:   cfg.MaxUploadBytes(),
		UploadsPerMinute: cfg.UploadRatePerMinute,
		TrustedProxies:   cfg.TrustedProxies,
		ReadyChecks:      readyChecks,
	})
	srv.MaxHeaderBytes = 1 << 16

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting corpdash server", log.FieldOperation, log.OpStartup, "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return caches.Run(ctx, sweepInterval) })
	g.Go(func() error { return srv.Limiter().Run(ctx, sweepInterval) })

	if repo != nil && cfg.AuditRetention > 0 {
		g.Go(func() error { return prune(ctx, repo, cfg.AuditRetention, logger) })
	}

	return g.Wait()
}

// prune deletes audit rows older than retention every pruneInterval.
func prune(ctx context.Context, repo *storage.SQLiteRepository, retention time.Duration, logger *log.Logger) error {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := repo.Prune(ctx, time.Now().Add(-retention))
			if err != nil {
				logger.Warn("Failed to prune upload audit", log.FieldError, err.Error(), log.FieldOperation, log.OpCleanup)
				continue
			}
			if n > 0 {
				logger.Info("Pruned upload audit", log.FieldOperation, log.OpCleanup, "removed", n)
			}
		}
	}
}
