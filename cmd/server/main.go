package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdugdh24/matchcore/internal/config"
	"github.com/gdugdh24/matchcore/internal/infrastructure/container"
	"github.com/gdugdh24/matchcore/internal/logger"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging)
	defer func() { _ = log.Sync() }()

	// Cancel on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize dependency injection container
	app, err := container.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize application", zap.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("error closing application", zap.Error(err))
		}
	}()

	log.Info("server starting",
		zap.String("addr", cfg.Server.GetAddr()),
		zap.String("storage", cfg.Storage.Type),
		zap.String("broker", cfg.Push.Broker),
	)

	if err := app.Run(ctx); err != nil {
		log.Error("server exited with error", zap.Error(err))
		return
	}

	log.Info("server exited properly")
}
