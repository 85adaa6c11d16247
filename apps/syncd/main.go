package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	parksrepo "github.com/parklogic/parksync/domains/parks/be/repo"
	parksservice "github.com/parklogic/parksync/domains/parks/be/service"
	synchandler "github.com/parklogic/parksync/domains/sync/be/handler"
	syncservice "github.com/parklogic/parksync/domains/sync/be/service"
	"github.com/parklogic/parksync/platform/go/ghl"
	platformlogging "github.com/parklogic/parksync/platform/go/logging"
	"github.com/parklogic/parksync/platform/go/newbook"
	"github.com/parklogic/parksync/platform/go/persistence"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`

	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	SweepParkTimeout time.Duration `env:"SWEEP_PARK_TIMEOUT" envDefault:"2m"`
	SweepParallelism int           `env:"SWEEP_PARALLELISM" envDefault:"1"`

	NewbookBaseURL string `env:"NEWBOOK_BASE_URL" envDefault:"https://api.newbook.cloud/rest"`

	GHLBaseURL      string `env:"GHL_BASE_URL" envDefault:"https://services.leadconnectorhq.com"`
	GHLClientID     string `env:"GHL_CLIENT_ID,required"`
	GHLClientSecret string `env:"GHL_CLIENT_SECRET,required"`
	GHLCredentialID string `env:"GHL_CREDENTIAL_ID" envDefault:"default"`

	OpsAPIKey string `env:"OPS_API_KEY"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "syncd",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	parkStore, err := persistence.NewParkConfigStore(pool)
	if err != nil {
		logger.Fatal("init park config store", zap.Error(err))
	}
	tokenStore, err := persistence.NewTokenStore(pool)
	if err != nil {
		logger.Fatal("init token store", zap.Error(err))
	}
	snapshotStore, err := persistence.NewSnapshotStore(pool)
	if err != nil {
		logger.Fatal("init snapshot store", zap.Error(err))
	}

	parksSvc := parksservice.New(parksrepo.NewPostgresRepository(parkStore))

	tokens, err := ghl.NewTokenManager(ghl.TokenManagerConfig{
		AuthBaseURL:  cfg.GHLBaseURL,
		ClientID:     cfg.GHLClientID,
		ClientSecret: cfg.GHLClientSecret,
		CredentialID: cfg.GHLCredentialID,
		Store:        tokenStore,
	})
	if err != nil {
		logger.Fatal("init token manager", zap.Error(err))
	}

	syncSvc := syncservice.New(syncservice.Config{
		Source:    newbook.NewClient(cfg.NewbookBaseURL, nil),
		CRM:       ghl.NewClient(cfg.GHLBaseURL, tokens, nil),
		Snapshots: snapshotStore,
		Logger:    logger,
	})

	sweeper := syncservice.NewSweeper(syncSvc, parksSvc, syncservice.SweeperConfig{
		Interval:    cfg.SweepInterval,
		ParkTimeout: cfg.SweepParkTimeout,
		Parallelism: cfg.SweepParallelism,
	}, logger)

	go func() {
		if err := sweeper.Run(ctx); !errors.Is(err, context.Canceled) {
			logger.Error("sweeper stopped", zap.Error(err))
		}
	}()

	ops := synchandler.New(sweeper, parksSvc, pool, cfg.OpsAPIKey, logger)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      ops.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // on-demand sweeps answer with the full report
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting ops server", zap.String("port", cfg.Port), zap.Duration("sweep_interval", cfg.SweepInterval))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
