// Package main is the entry point for the pharmacy ledger API server.
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

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"pharmaledger/internal/app"
	"pharmaledger/internal/config"
	"pharmaledger/internal/domain/auth"
	"pharmaledger/internal/domain/reorder"
	"pharmaledger/internal/infrastructure/cache"
	v1 "pharmaledger/internal/infrastructure/http/v1"
	"pharmaledger/internal/infrastructure/http/v1/handlers"
	"pharmaledger/internal/infrastructure/storage/postgres"
	"pharmaledger/pkg/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "pharmaledger",
		Short:        "Pharmacy stock ledger API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

// pingFunc adapts a health probe to handlers.Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func runServer(cfg *config.Config) error {
	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting pharmaledger server", "env", cfg.Env, "storage", cfg.StorageDriver)

	checks := make(map[string]handlers.Pinger)

	// --- Redis (optional) ---
	var alerts reorder.AlertState
	rdb, err := redisOptional(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		alerts = cache.NewAlertState(rdb)
		checks["redis"] = pingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		log.Infow("redis connection established", "addr", cfg.RedisAddr)
	}

	// --- Storage ---
	opts := app.DefaultOptions()
	opts.RequireOpenSession = cfg.RequireOpenSession
	opts.Reorder.AlertTTL = cfg.ReorderAlertTTL

	routerCfg := v1.RouterConfig{
		Logger:       log,
		HealthChecks: checks,
		Debug:        cfg.IsDevelopment(),
	}

	switch cfg.StorageDriver {
	case config.DriverMemory:
		st := app.NewMemoryStorage()
		if alerts != nil {
			st.Alerts = alerts
		}
		routerCfg.Services = app.NewServices(st.Storage, opts)
		log.Warn("using in-memory storage, data is lost on restart")

	default:
		st, err := openPostgres(ctx, cfg, alerts)
		if err != nil {
			return err
		}
		defer st.Close()
		checks["postgres"] = st.Pool
		routerCfg.Services = app.NewServices(st.Storage, opts)
		if cfg.IdempotencyEnabled {
			routerCfg.Idempotency = st.Idempotency
		}
		log.Info("postgres connection established")
	}

	// --- JWT ---
	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	if cfg.JWTIssuer != "" {
		jwtConfig.Issuer = cfg.JWTIssuer
	}
	routerCfg.JWTValidator = auth.NewJWTService(jwtConfig)

	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func openPostgres(ctx context.Context, cfg *config.Config, alerts reorder.AlertState) (*app.PostgresStorage, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns

	return app.NewPostgresStorage(ctx, app.PostgresOptions{
		Pool:           poolCfg,
		Alerts:         alerts,
		IdempotencyTTL: cfg.IdempotencyTTL,
	})
}

// redisOptional connects when configured; nil otherwise.
func redisOptional(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if !cfg.RedisEnabled() {
		return nil, nil
	}
	return cache.NewRedisClient(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}
