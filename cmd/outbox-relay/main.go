// The outbox-relay worker drains pending outbox rows and republishes them.
// It runs as a sidecar to the API or as a standalone deployment; the
// distributed lock keeps concurrent instances from double publishing.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tutormatch-backend/infrastructure/config"
	"tutormatch-backend/infrastructure/di"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Persistence.Close()

	container.Logger.Info("Starting outbox relay worker",
		zap.String("environment", cfg.Environment),
		zap.String("persistence_driver", cfg.PersistenceDriver),
		zap.Int("batch_size", cfg.OutboxBatchSize),
		zap.Duration("interval", cfg.OutboxInterval),
	)

	container.Relay.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("Shutting down outbox relay worker...")
	container.Relay.Stop()

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}
}
