package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suPer8Hu/rag-chat/internal/app"
	"github.com/suPer8Hu/rag-chat/internal/config"
	"github.com/suPer8Hu/rag-chat/internal/db"
	"github.com/suPer8Hu/rag-chat/internal/logger"
	"github.com/suPer8Hu/rag-chat/internal/store/rabbitmq"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.RabbitURL == "" {
		log.Fatal("RABBIT_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal("open db", "error", err)
	}
	if err := db.Migrate(gdb, app.Models()...); err != nil {
		log.Fatal("migrate", "error", err)
	}

	clients, err := app.WireClients(ctx, log, cfg, gdb, false)
	if err != nil {
		log.Fatal("wire clients", "error", err)
	}
	defer clients.Close()

	svcs, err := app.WireServices(log, cfg, gdb, clients)
	if err != nil {
		log.Fatal("wire services", "error", err)
	}

	consumer, err := rabbitmq.NewConsumer(log, rabbitmq.ConsumerConfig{
		URL:           cfg.RabbitURL,
		Queue:         cfg.RabbitQueue,
		Concurrency:   cfg.WorkerConcurrency,
		MaxAttempts:   3,
		RetryDelay:    10 * time.Second,
		HandleTimeout: 5 * time.Minute,
	})
	if err != nil {
		log.Fatal("rabbit consumer", "error", err)
	}
	defer consumer.Close()

	if err := consumer.Run(ctx, svcs.Ingest.Process); err != nil {
		log.Error("worker stopped", "error", err)
	}
}
