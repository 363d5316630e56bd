package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/incubrix/cms/internal/app"
	"github.com/incubrix/cms/internal/config"
	"github.com/incubrix/cms/internal/handlers"
	"github.com/incubrix/cms/internal/middleware"
	"github.com/incubrix/cms/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration failed: %v", err)
	}
	if err := logger.Init(cfg.Log.Level); err != nil {
		log.Fatalf("logger initialization failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	svc, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	if err := svc.Feeds.Regenerate(ctx); err != nil {
		logger.Error("initial_feed_generation_failed", err, nil)
	}

	server := fiber.New(fiber.Config{BodyLimit: cfg.Server.MaxUploadBytes})
	server.Use(recover.New(recover.Config{EnableStackTrace: true}))
	server.Use(middleware.CORS(cfg.Server.CORSOrigins))
	server.Use(middleware.RequestLogger())
	server.Use(middleware.NotFoundLogger())
	server.Use(middleware.Metrics())

	handlers.Register(server, handlers.Handlers{
		System:      handlers.NewSystemHandler(svc.Feeds),
		Assets:      handlers.NewAssetsHandler(svc.Store, svc.Assets, svc.Ingest, svc.Hierarchy),
		Feeds:       handlers.NewFeedsHandler(svc.Feeds, svc.Registry),
		Settings:    handlers.NewSettingsHandler(svc.Settings),
		PublicFeeds: handlers.NewPublicFeedsHandler(svc.Registry),
	})

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":            cfg.Server.Port,
		"address":         listenAddr,
		"body_limit":      cfg.Server.MaxUploadBytes,
		"storage_backend": cfg.Storage.Backend,
		"db_driver":       cfg.DB.Driver,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = server.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
