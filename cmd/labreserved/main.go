package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"golang.org/x/time/rate"

	"lab-reservation-backend/config"
	"lab-reservation-backend/internal/api"
	"lab-reservation-backend/internal/auth"
	"lab-reservation-backend/internal/broadcast"
	"lab-reservation-backend/internal/db"
	"lab-reservation-backend/internal/notification"
	"lab-reservation-backend/internal/reminder"
	"lab-reservation-backend/internal/reservation"
	"lab-reservation-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "lab-reservation ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Auth.JWTSecret == "" {
		logger.Fatalf("auth.jwt_secret (or LABRES_JWT_SECRET) must be set")
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
		logger.Println("VAPID keys not configured, web push delivery disabled")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	// One registry per process, shared by every stream and the reservation service.
	registry := broadcast.NewRegistry(cfg.Stream.MaxFailures)

	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore,
		notification.NewMailer(cfg.Mail), webpushOptions)
	workerPool.Start(ctx)
	dispatcher := notification.NewDispatcher(appStore, workerPool)

	reservations := reservation.NewService(appStore, dispatcher, registry, reservation.Options{
		StrictTransitions: cfg.Reservations.StrictTransitions,
	})

	reminderSvc := reminder.NewService(cfg.Reminder, appStore, dispatcher)
	go reminderSvc.Run(ctx)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	handler := api.NewHandler(api.Deps{
		Store:        appStore,
		Reservations: reservations,
		Registry:     registry,
		WebPush:      webpushOptions,
		Stream: api.StreamOptions{
			Heartbeat:  cfg.Stream.Heartbeat,
			BufferSize: cfg.Stream.BufferSize,
		},
	})
	router := api.NewRouter(handler, verifier, api.RouterOptions{
		RateLimit: rate.Limit(cfg.Server.RateLimitPerSec),
		Burst:     cfg.Server.RateLimitBurst,
		CacheTTL:  time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
	})

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     router,
		// Request contexts derive from ctx so open event streams end on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	server.RegisterOnShutdown(cancel)

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
