// Package memory is an in-process storage driver implementing every domain
// repository. Transactions are serialized behind one lock and roll back by
// restoring a snapshot of the tables taken at begin.
//
// Stored values are copies. Slices held in tables are replaced, never
// modified in place, so a snapshot only needs to copy the maps.
package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/tx"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/auth"
	"pharmaledger/internal/domain/cash_session"
	"pharmaledger/internal/domain/catalogs/organization"
	"pharmaledger/internal/domain/documents/purchase_order"
	"pharmaledger/internal/domain/documents/refund"
	"pharmaledger/internal/domain/documents/sale"
	"pharmaledger/internal/domain/documents/stock_adjustment"
	"pharmaledger/internal/domain/registers/stock"
	"pharmaledger/internal/domain/reorder"
)

type tables struct {
	batches   map[id.ID]stock.Batch
	movements []stock.Movement

	sales     map[id.ID]sale.Sale
	saleLines map[id.ID][]sale.Line

	refunds     map[id.ID]refund.Refund
	refundLines map[id.ID][]refund.Line

	orders     map[id.ID]purchase_order.PurchaseOrder
	orderLines map[id.ID][]purchase_order.Line
	receipts   map[id.ID][]purchase_order.Receipt

	adjustments map[id.ID]stock_adjustment.StockAdjustment
	levels      map[id.ID]reorder.Level
	sessions    map[id.ID]cash_session.Session
	drops       map[id.ID][]cash_session.CashDrop
	staff       map[string]auth.Staff
	org         *organization.Organization

	audit  []AuditRecord
	outbox []reorder.Event
}

func newTables() *tables {
	return &tables{
		batches:     make(map[id.ID]stock.Batch),
		sales:       make(map[id.ID]sale.Sale),
		saleLines:   make(map[id.ID][]sale.Line),
		refunds:     make(map[id.ID]refund.Refund),
		refundLines: make(map[id.ID][]refund.Line),
		orders:      make(map[id.ID]purchase_order.PurchaseOrder),
		orderLines:  make(map[id.ID][]purchase_order.Line),
		receipts:    make(map[id.ID][]purchase_order.Receipt),
		adjustments: make(map[id.ID]stock_adjustment.StockAdjustment),
		levels:      make(map[id.ID]reorder.Level),
		sessions:    make(map[id.ID]cash_session.Session),
		drops:       make(map[id.ID][]cash_session.CashDrop),
		staff:       make(map[string]auth.Staff),
	}
}

func (t *tables) clone() *tables {
	c := *t
	c.batches = maps.Clone(t.batches)
	c.sales = maps.Clone(t.sales)
	c.saleLines = maps.Clone(t.saleLines)
	c.refunds = maps.Clone(t.refunds)
	c.refundLines = maps.Clone(t.refundLines)
	c.orders = maps.Clone(t.orders)
	c.orderLines = maps.Clone(t.orderLines)
	c.receipts = maps.Clone(t.receipts)
	c.adjustments = maps.Clone(t.adjustments)
	c.levels = maps.Clone(t.levels)
	c.sessions = maps.Clone(t.sessions)
	c.drops = maps.Clone(t.drops)
	c.staff = maps.Clone(t.staff)
	if t.org != nil {
		org := *t.org
		c.org = &org
	}
	return &c
}

// DB is the shared in-memory database.
type DB struct {
	mu   sync.Mutex
	data *tables
}

// NewDB creates an empty database.
func NewDB() *DB {
	return &DB{data: newTables()}
}

type txKey struct{ db *DB }

func (db *DB) inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{db}).(bool)
	return ok
}

// with runs fn against the tables, taking the lock unless ctx already holds it.
func (db *DB) with(ctx context.Context, fn func(t *tables) error) error {
	if db.inTx(ctx) {
		return fn(db.data)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(db.data)
}

// TxManager implements tx.ReadOnlyManager over a DB.
type TxManager struct {
	db *DB
}

// NewTxManager creates a transaction manager for db.
func NewTxManager(db *DB) *TxManager {
	return &TxManager{db: db}
}

// RunInTransaction implements tx.Manager. Nested calls join the outer
// transaction; an error from the outermost fn restores the tables.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.db.inTx(ctx) {
		return fn(ctx)
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	snapshot := m.db.data.clone()
	if err := fn(context.WithValue(ctx, txKey{m.db}, true)); err != nil {
		m.db.data = snapshot
		return err
	}
	return nil
}

// ReadOnly implements tx.ReadOnlyManager.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransaction(ctx, fn)
}

var _ tx.ReadOnlyManager = (*TxManager)(nil)

// --- list helpers ---

// sortByTime orders items by ts descending, or ascending when orderBy has no
// leading "-" and is not empty. Ties keep insertion order.
func sortByTime[T any](items []T, orderBy string, ts func(T) time.Time) {
	asc := orderBy != "" && !strings.HasPrefix(orderBy, "-")
	sort.SliceStable(items, func(i, j int) bool {
		if asc {
			return ts(items[i]).Before(ts(items[j]))
		}
		return ts(items[i]).After(ts(items[j]))
	})
}

func page[T any](items []T, f domain.ListFilter) domain.ListResult[T] {
	f.Normalize()
	total := len(items)
	start := min(f.Offset, total)
	end := min(start+f.Limit, total)
	out := make([]T, end-start)
	copy(out, items[start:end])
	return domain.ListResult[T]{
		Items:      out,
		TotalCount: int64(total),
		Limit:      f.Limit,
		Offset:     f.Offset,
	}
}

// inWindow applies DateFrom (inclusive) and DateTo (exclusive).
func inWindow(t time.Time, f domain.ListFilter) bool {
	if f.DateFrom != nil && t.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && !t.Before(*f.DateTo) {
		return false
	}
	return true
}

func matchesIDs(v id.ID, ids []id.ID) bool {
	if len(ids) == 0 {
		return true
	}
	for _, x := range ids {
		if x == v {
			return true
		}
	}
	return false
}

func matchesSearch(number, search string) bool {
	return search == "" || strings.Contains(strings.ToLower(number), strings.ToLower(search))
}
