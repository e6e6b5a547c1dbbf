package app

import (
	"context"
	"fmt"
	"time"

	"pharmaledger/internal/domain/reorder"
	"pharmaledger/internal/infrastructure/numerator"
	"pharmaledger/internal/infrastructure/storage/postgres"
	"pharmaledger/internal/infrastructure/storage/postgres/auth_repo"
	"pharmaledger/internal/infrastructure/storage/postgres/catalog_repo"
	"pharmaledger/internal/infrastructure/storage/postgres/document_repo"
	"pharmaledger/internal/infrastructure/storage/postgres/register_repo"
)

// PostgresStorage is the production driver.
type PostgresStorage struct {
	Storage
	Pool        *postgres.Pool
	Tx          *postgres.TxManager
	AuditLog    *postgres.AuditService
	Outbox      *postgres.OutboxPublisher
	Idempotency *postgres.IdempotencyStore
}

// PostgresOptions configures NewPostgresStorage.
type PostgresOptions struct {
	Pool postgres.PoolConfig
	// Alerts de-duplicates low-stock alerts; nil reports every scan.
	Alerts reorder.AlertState
	// IdempotencyTTL is how long a replayable response is kept.
	IdempotencyTTL time.Duration
}

// NewPostgresStorage connects the pool and builds every repository over it.
func NewPostgresStorage(ctx context.Context, opts PostgresOptions) (*PostgresStorage, error) {
	pool, err := postgres.NewPool(ctx, opts.Pool)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	st, err := newPostgresStorage(pool, opts)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return st, nil
}

func newPostgresStorage(pool *postgres.Pool, opts PostgresOptions) (*PostgresStorage, error) {
	txm := postgres.NewTxManager(pool)

	auditLog, err := postgres.NewAuditService(txm)
	if err != nil {
		return nil, fmt.Errorf("audit service: %w", err)
	}

	alerts := opts.Alerts
	if alerts == nil {
		alerts = reorder.NoopAlertState{}
	}
	outbox := postgres.NewOutboxPublisher(txm)

	return &PostgresStorage{
		Storage: Storage{
			TxManager: txm,
			Numerator: numerator.NewWithQuerierFunc(func(ctx context.Context) numerator.Querier {
				return txm.GetQuerier(ctx)
			}),
			Audit:        auditLog,
			Stock:        register_repo.NewStockRepo(txm),
			Sales:        document_repo.NewSaleRepo(txm),
			Refunds:      document_repo.NewRefundRepo(txm),
			Orders:       document_repo.NewPurchaseOrderRepo(txm),
			Adjustments:  document_repo.NewStockAdjustmentRepo(txm),
			Sessions:     document_repo.NewCashSessionRepo(txm),
			Levels:       catalog_repo.NewReorderLevelRepo(txm),
			Organization: catalog_repo.NewOrganizationRepo(txm),
			Staff:        auth_repo.NewStaffRepo(txm),
			Events:       outbox,
			Alerts:       alerts,
		},
		Pool:        pool,
		Tx:          txm,
		AuditLog:    auditLog,
		Outbox:      outbox,
		Idempotency: postgres.NewIdempotencyStore(txm, opts.IdempotencyTTL),
	}, nil
}

// Close releases the pool.
func (s *PostgresStorage) Close() {
	s.Pool.Close()
}
