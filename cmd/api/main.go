package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/rag-chat/internal/app"
	"github.com/suPer8Hu/rag-chat/internal/config"
	"github.com/suPer8Hu/rag-chat/internal/db"
	"github.com/suPer8Hu/rag-chat/internal/httpapi"
	"github.com/suPer8Hu/rag-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/rag-chat/internal/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("api exited", "error", err)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AppEnv == "prod" || cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	gdb, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if err := db.Migrate(gdb, app.Models()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	clients, err := app.WireClients(ctx, log, cfg, gdb, true)
	if err != nil {
		return err
	}
	defer clients.Close()

	svcs, err := app.WireServices(log, cfg, gdb, clients)
	if err != nil {
		return err
	}

	h := handlers.NewHandler(log, svcs.Accounts, svcs.Chat, svcs.Ingest)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(log, cfg, h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.HTTPAddr, "ai_provider", cfg.AIProvider, "vector_provider", cfg.VectorProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
