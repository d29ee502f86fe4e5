// Package main wires together the recall alert service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryceloomis/Capstone-Recall-Alert/internal/api"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/clock/system"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/config"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/id/uuid"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/logging"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/metrics"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/pipeline"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/recall"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/scheduler"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/source/fda"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/source/usda"
	memorystore "github.com/bryceloomis/Capstone-Recall-Alert/internal/store/memory"
	pgstore "github.com/bryceloomis/Capstone-Recall-Alert/internal/store/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	clock := system.New()
	idGen := uuid.New()

	recallStore, alertStore, closeStore, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer closeStore()

	var sources []recall.Source
	if cfg.Sources.FDA.Enabled {
		sources = append(sources, fda.New(fda.Config{
			BaseURL:   cfg.Sources.FDA.BaseURL,
			PageLimit: cfg.Sources.FDA.PageLimit,
			Timeout:   cfg.Sources.FDA.SourceTimeout(),
		}, logger.Named("fda")))
	}
	if cfg.Sources.USDA.Enabled {
		sources = append(sources, usda.New(usda.Config{
			BaseURL:   cfg.Sources.USDA.BaseURL,
			PageLimit: cfg.Sources.USDA.PageLimit,
			Timeout:   cfg.Sources.USDA.SourceTimeout(),
		}, logger.Named("usda")))
	}

	pipe := pipeline.New(sources, recallStore, alertStore, clock, idGen, logger.Named("pipeline"))
	sched := scheduler.New(pipe, scheduler.Config{
		Interval:     cfg.Scheduler.Interval,
		MisfireGrace: cfg.Scheduler.MisfireGrace,
		RunOnStart:   cfg.Scheduler.RunOnStart,
	}, clock, logger.Named("scheduler"))
	sched.Start(ctx)

	apiServer := api.NewServer(recallStore, alertStore, sched, clock, cfg, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildStores(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
) (recall.RecallStore, recall.AlertStore, func(), error) {
	switch cfg.DB.Provider {
	case "postgres":
		pool, err := pgstore.NewPool(ctx, pgstore.PoolConfig{
			DSN:             cfg.DB.DSN,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		recalls, err := pgstore.NewRecallStore(pool, logger.Named("recalls"))
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		alerts, err := pgstore.NewAlertStore(pool, logger.Named("alerts"))
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		logger.Info("using postgres store")
		return recalls, alerts, pool.Close, nil
	case "memory":
		// Dev mode; recalls and alerts evaporate on restart.
		store := memorystore.New(system.New())
		logger.Info("using in-memory store")
		return store, store, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown db.provider %q", cfg.DB.Provider)
	}
}
