package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"billionaire_empire/internal/api"
	"billionaire_empire/internal/config"
	"billionaire_empire/internal/database"
	"billionaire_empire/internal/game"
	"billionaire_empire/internal/monitoring"
)

func main() {
	// Загружаем переменные окружения
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg := config.Load()
	rules, err := config.LoadRules(cfg.BalanceFile)
	if err != nil {
		log.Fatalf("Failed to load balance rules: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Хранилище состояний
	store, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer store.Close()

	metrics := monitoring.NewPrometheusMetrics()
	hub := api.NewHub(cfg.CORSOrigins, metrics)
	go hub.Run(ctx)

	sessions := api.NewSessions(store, api.SessionOptions{
		Rules:     rules,
		KeyPrefix: cfg.StateKeyPrefix,
		Seed:      cfg.RandomSeed,
		Autosave:  cfg.Autosave,
		IdleTTL:   cfg.SessionTTL,
		Recorder:  metrics,
		Observers: []game.Observer{metrics, hub},
	})
	go sessions.Run(ctx)

	if cfg.MetricsAddr != "" {
		// отдельный порт для /metrics
		go func() {
			if err := metrics.StartServer(cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Prometheus server error: %v", err)
			}
		}()
	}

	router := api.NewRouter(api.Options{
		Sessions:    sessions,
		Hub:         hub,
		Auth:        api.NewAuthenticator(cfg.JWTSecret),
		Limiter:     api.NewRateLimiter(cfg.APIRate, cfg.APIBurst),
		Metrics:     metrics,
		CORSOrigins: cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	log.Printf("🚀 Billionaire Empire server started on %s (store: %s)", cfg.HTTPAddr, cfg.StoreBackend)
	if cfg.DevMode() {
		log.Printf("⚠️ JWT_SECRET is empty: players are identified by the X-Player-ID header")
	}
	if cfg.MetricsAddr != "" {
		log.Printf("📊 Prometheus metrics available on %s", cfg.MetricsAddr)
	}

	<-ctx.Done()
	log.Println("🔄 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if err := sessions.Close(shutdownCtx); err != nil {
		log.Printf("Failed to save some games: %v", err)
	}
	_ = metrics.Shutdown(shutdownCtx)

	log.Println("✅ Server shutdown completed")
}
