// Package main is the entry point for the pharmacy ledger background worker.
// It relays outbox events, scans stock for reorder alerts and expires
// idempotency keys.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"pharmaledger/internal/app"
	"pharmaledger/internal/config"
	appctx "pharmaledger/internal/core/context"
	"pharmaledger/internal/domain/reorder"
	"pharmaledger/internal/infrastructure/cache"
	"pharmaledger/internal/infrastructure/storage/postgres"
	"pharmaledger/pkg/logger"
)

// systemActor owns the purchase orders the worker drafts.
const systemActor = "system:reorder"

const (
	outboxBatchSize         = 100
	idempotencyCleanupEvery = time.Hour
	dlqSweepEvery           = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if cfg.StorageDriver != config.DriverPostgres {
		log.Fatalw("worker requires postgres storage", "storage", cfg.StorageDriver)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Info("starting pharmaledger worker")

	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb, err = cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer rdb.Close()
	}

	var alerts reorder.AlertState
	if rdb != nil {
		alerts = cache.NewAlertState(rdb)
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	poolCfg.ApplicationName = "pharmaledger-worker"
	st, err := app.NewPostgresStorage(ctx, app.PostgresOptions{
		Pool:           poolCfg,
		Alerts:         alerts,
		IdempotencyTTL: cfg.IdempotencyTTL,
	})
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer st.Close()

	opts := app.DefaultOptions()
	opts.Reorder.AlertTTL = cfg.ReorderAlertTTL

	w := NewWorker(cfg, st, app.NewServices(st.Storage, opts), rdb, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker runs the periodic background jobs.
type Worker struct {
	cfg      *config.Config
	storage  *app.PostgresStorage
	services *app.Services
	relay    *postgres.OutboxRelay
	lock     *cache.JobLock
	log      *logger.Logger
}

// NewWorker wires the jobs. Without Redis, events are only logged and the
// reorder scan runs without a cross-worker lock.
func NewWorker(cfg *config.Config, st *app.PostgresStorage, svc *app.Services, rdb *redis.Client, log *logger.Logger) *Worker {
	log = log.WithComponent("worker")

	var handler postgres.OutboxHandler = postgres.OutboxHandlerFunc(func(ctx context.Context, msg *postgres.OutboxMessage) error {
		logger.Info(ctx, "outbox event", "event_type", msg.EventType, "aggregate_id", msg.AggregateID)
		return nil
	})
	var lock *cache.JobLock
	if rdb != nil {
		handler = cache.NewEventPublisher(rdb)
		lock = cache.NewJobLock(rdb)
	}

	return &Worker{
		cfg:      cfg,
		storage:  st,
		services: svc,
		relay:    postgres.NewOutboxRelay(st.Tx, outboxBatchSize, handler),
		lock:     lock,
		log:      log,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ctx = logger.WithLogger(ctx, w.log)

	outboxTicker := time.NewTicker(w.cfg.OutboxPollInterval)
	defer outboxTicker.Stop()

	reorderTicker := time.NewTicker(w.cfg.ReorderScanInterval)
	defer reorderTicker.Stop()

	dlqTicker := time.NewTicker(dlqSweepEvery)
	defer dlqTicker.Stop()

	cleanupTicker := time.NewTicker(idempotencyCleanupEvery)
	defer cleanupTicker.Stop()

	w.scanReorder(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-outboxTicker.C:
			w.processOutbox(ctx)
		case <-reorderTicker.C:
			w.scanReorder(ctx)
		case <-dlqTicker.C:
			w.sweepDLQ(ctx)
		case <-cleanupTicker.C:
			w.cleanupIdempotency(ctx)
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	count, err := w.relay.ProcessBatch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Errorw("outbox relay failed", "error", err)
		}
		return
	}
	if count > 0 {
		w.log.Debugw("processed outbox batch", "count", count)
	}
}

func (w *Worker) sweepDLQ(ctx context.Context) {
	moved, err := w.relay.MoveToDLQ(ctx)
	if err != nil {
		w.log.Errorw("outbox DLQ sweep failed", "error", err)
		return
	}
	if moved > 0 {
		w.log.Warnw("moved outbox messages to DLQ", "count", moved)
	}
}

// scanReorder flags low stock and, when enabled, drafts purchase orders.
// With Redis only one worker runs the job per interval.
func (w *Worker) scanReorder(ctx context.Context) {
	job := func(ctx context.Context) error {
		alerts, err := w.services.Reorder.Scan(ctx)
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		if !w.cfg.ReorderAutoGenerate || len(alerts) == 0 {
			return nil
		}

		actorCtx := appctx.WithUser(ctx, &appctx.UserContext{UserID: systemActor, IsAdmin: true})
		result, err := w.services.Reorder.GeneratePurchaseOrders(actorCtx)
		if err != nil {
			return fmt.Errorf("generate purchase orders: %w", err)
		}
		if len(result.OrderIDs) > 0 {
			w.log.Infow("drafted purchase orders", "count", len(result.OrderIDs), "skipped", len(result.Skipped))
		}
		return nil
	}

	var err error
	if w.lock != nil {
		err = w.lock.RunExclusive(ctx, "reorder-scan", w.cfg.ReorderScanInterval, job)
	} else {
		err = job(ctx)
	}

	switch {
	case errors.Is(err, cache.ErrLocked):
		w.log.Debug("reorder scan running on another worker")
	case err != nil && ctx.Err() == nil:
		w.log.Errorw("reorder job failed", "error", err)
	}
}

func (w *Worker) cleanupIdempotency(ctx context.Context) {
	n, err := w.storage.Idempotency.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
		return
	}
	if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}
	postgres.LogPoolStats(ctx, w.storage.Pool.Unwrap())
}
