// Package app assembles the ledger services over a storage driver.
package app

import (
	"pharmaledger/internal/core/numerator"
	"pharmaledger/internal/core/tx"
	"pharmaledger/internal/domain/audit"
	"pharmaledger/internal/domain/auth"
	"pharmaledger/internal/domain/cash_session"
	"pharmaledger/internal/domain/catalogs/organization"
	"pharmaledger/internal/domain/documents/purchase_order"
	"pharmaledger/internal/domain/documents/refund"
	"pharmaledger/internal/domain/documents/sale"
	"pharmaledger/internal/domain/documents/stock_adjustment"
	"pharmaledger/internal/domain/registers/stock"
	"pharmaledger/internal/domain/reorder"
	"pharmaledger/internal/infrastructure/storage/memory"
)

// Storage is the set of repositories and ports a driver provides.
type Storage struct {
	TxManager tx.Manager
	Numerator numerator.Generator
	Audit     audit.Logger

	Stock        stock.Repository
	Sales        sale.Repository
	Refunds      refund.Repository
	Orders       purchase_order.Repository
	Adjustments  stock_adjustment.Repository
	Sessions     cash_session.Repository
	Levels       reorder.Repository
	Organization organization.Repository
	Staff        auth.StaffRepository

	Events reorder.EventPublisher
	Alerts reorder.AlertState
}

// Options tunes service behavior.
type Options struct {
	RequireOpenSession bool
	Reorder            reorder.Config
	Auth               auth.ServiceConfig
}

// DefaultOptions returns the defaults used when no configuration is given.
func DefaultOptions() Options {
	return Options{
		Auth: auth.DefaultServiceConfig(),
	}
}

// Services holds every ledger service.
type Services struct {
	Stock        *stock.Service
	Sales        *sale.Service
	Refunds      *refund.Service
	Orders       *purchase_order.Service
	Adjustments  *stock_adjustment.Service
	Sessions     *cash_session.Service
	Reorder      *reorder.Service
	Organization *organization.Service
	Auth         *auth.Service
}

// NewServices wires the services over st.
func NewServices(st Storage, opts Options) *Services {
	authSvc := auth.NewService(st.Staff, st.TxManager, st.Audit, opts.Auth)
	stockSvc := stock.NewService(st.Stock, st.TxManager, st.Audit)
	orgSvc := organization.NewService(st.Organization, st.TxManager, st.Audit)
	sessionSvc := cash_session.NewService(st.Sessions, st.Sales, st.Numerator, st.TxManager, st.Audit)

	saleSvc := sale.NewService(sale.Dependencies{
		Repo:               st.Sales,
		Ledger:             stockSvc,
		TaxRates:           orgSvc,
		Sessions:           sessionSvc,
		Refunds:            sale.RefundLedgerFunc(st.Refunds.HasActive),
		Authorizer:         authSvc,
		Numerator:          st.Numerator,
		TxManager:          st.TxManager,
		Audit:              st.Audit,
		RequireOpenSession: opts.RequireOpenSession,
	})
	refundSvc := refund.NewService(st.Refunds, saleSvc, stockSvc, authSvc, st.Numerator, st.TxManager, st.Audit)
	orderSvc := purchase_order.NewService(st.Orders, stockSvc, authSvc, st.Numerator, st.TxManager, st.Audit)
	adjustmentSvc := stock_adjustment.NewService(st.Adjustments, stockSvc, authSvc, st.Numerator, st.TxManager, st.Audit)
	reorderSvc := reorder.NewService(st.Levels, stockSvc, orderSvc, st.Events, st.Alerts, st.TxManager, st.Audit, opts.Reorder)

	return &Services{
		Stock:        stockSvc,
		Sales:        saleSvc,
		Refunds:      refundSvc,
		Orders:       orderSvc,
		Adjustments:  adjustmentSvc,
		Sessions:     sessionSvc,
		Reorder:      reorderSvc,
		Organization: orgSvc,
		Auth:         authSvc,
	}
}

// MemoryStorage is the in-process driver. The returned recorder and outbox
// expose what was written, for tests and the demo server.
type MemoryStorage struct {
	Storage
	DB       *memory.DB
	Recorder *memory.AuditRecorder
	Outbox   *memory.Outbox
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	db := memory.NewDB()
	recorder := memory.NewAuditRecorder(db)
	outbox := memory.NewOutbox(db)
	return &MemoryStorage{
		Storage: Storage{
			TxManager:    memory.NewTxManager(db),
			Numerator:    numerator.NewInMemory(),
			Audit:        recorder,
			Stock:        memory.NewStockRepo(db),
			Sales:        memory.NewSaleRepo(db),
			Refunds:      memory.NewRefundRepo(db),
			Orders:       memory.NewPurchaseOrderRepo(db),
			Adjustments:  memory.NewStockAdjustmentRepo(db),
			Sessions:     memory.NewCashSessionRepo(db),
			Levels:       memory.NewReorderRepo(db),
			Organization: memory.NewOrganizationRepo(db),
			Staff:        memory.NewStaffRepo(db),
			Events:       outbox,
			Alerts:       memory.NewAlertState(),
		},
		DB:       db,
		Recorder: recorder,
		Outbox:   outbox,
	}
}
