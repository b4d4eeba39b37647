package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"habitat-backend/config"
	"habitat-backend/internal/api"
	"habitat-backend/internal/catalog"
	"habitat-backend/internal/db"
	"habitat-backend/internal/engine"
	"habitat-backend/internal/habitat"
	"habitat-backend/internal/maintenance"
	"habitat-backend/internal/notification"
	"habitat-backend/internal/registry"
	"habitat-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "habitat-backend ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Printf("could not load configuration from %s (%v); using defaults", configPath, err)
		cfg = config.Default()
	} else {
		logger.Printf("configuration loaded successfully from %s", configPath)
	}

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Println("VAPID keys are not configured; push notifications disabled")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	zoneRegistry, err := registry.FromConfig(cfg.Zones)
	if err != nil {
		logger.Fatalf("invalid zone configuration: %v", err)
	}

	cat := catalog.New()
	eng := engine.New(engine.Config{
		HungerThreshold: cfg.Engine.HungerThreshold,
		FeedExtension:   cfg.Engine.FeedExtension,
		EventRetention:  cfg.Engine.EventRetention,
	}, cat)
	manager := habitat.NewManager(eng, cat, zoneRegistry, appStore)

	var workerPool *notification.WorkerPool
	if webpushOptions != nil {
		workerPool = notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions)
	}

	maintenanceSvc := maintenance.NewService(cfg, manager, workerPool)
	go maintenanceSvc.Run(ctx)

	router := api.NewRouter(cfg, manager, eng, appStore, webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
