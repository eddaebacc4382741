package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/smais007/eventora/internal/auth"
	"github.com/smais007/eventora/internal/cache"
	"github.com/smais007/eventora/internal/config"
	"github.com/smais007/eventora/internal/db"
	httpx "github.com/smais007/eventora/internal/http"
	"github.com/smais007/eventora/internal/http/middlewares"
	"github.com/smais007/eventora/internal/notifications"
	"github.com/smais007/eventora/internal/observability"
	"github.com/smais007/eventora/internal/redisclient"
	"github.com/smais007/eventora/internal/repo/memory"
	"github.com/smais007/eventora/internal/repo/postgres"
)

func main() {
	// .env is optional, real env always wins
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	if cfg.JWTSecret == "" {
		log.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	// tracing is opt-in via the OTLP endpoint
	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(context.Background(), "eventora", cfg.OTLPEndpoint)
		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	deps := httpx.Deps{
		Tokens:       tokens,
		Cache:        cache.New(5 * time.Second),
		Prom:         prom,
		PromGatherer: registry,
		Tracing:      cfg.OTLPEndpoint != "",
		RateStore:    middlewares.NewMemoryWindowStore(),
	}

	notifier := notifications.NewLogNotifier(log)
	deps.Notifier = notifications.NewProtectedNotifier(notifier, notifications.ProtectedNotifierConfig{})

	if cfg.DBURL != "" {
		pool, err := db.NewPool(cfg.DBURL)
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := db.Migrate(cfg.DBURL); err != nil {
			log.Error("db migrate failed", "err", err)
			os.Exit(1)
		}

		deps.Users = postgres.NewUsersRepo(pool, prom)
		deps.Events = postgres.NewEventsRepo(pool, prom)
		deps.Ping = func() error {
			ctx, cancel := config.WithTimeout(1 * time.Second)
			defer cancel()
			return pool.Ping(ctx)
		}
	} else {
		// dev fallback, nothing survives a restart
		log.Warn("no database configured, using in-memory stores")
		deps.Users = memory.NewUsersRepo()
		deps.Events = memory.NewEventsRepo()
	}

	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		ctx, cancel := config.WithTimeout(2 * time.Second)
		err := rdb.Ping(ctx)
		cancel()

		if err != nil {
			log.Error("redis connect failed", "err", err)
			os.Exit(1)
		}

		deps.RateStore = middlewares.NewRedisWindowStore(rdb.Raw(), "eventora:ratelimit")
	}

	router := httpx.NewRouter(log, cfg, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")
	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
