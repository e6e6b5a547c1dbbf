package memory

import (
	"context"
	"sort"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/registers/stock"
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	db *DB
}

// NewStockRepo creates a stock repository.
func NewStockRepo(db *DB) *StockRepo {
	return &StockRepo{db: db}
}

func (r *StockRepo) CreateBatch(ctx context.Context, b *stock.Batch) error {
	return r.db.with(ctx, func(t *tables) error {
		if _, exists := t.batches[b.ID]; exists {
			return apperror.NewInvariantViolation("batch already exists").WithDetail("batch_id", b.ID.String())
		}
		t.batches[b.ID] = *b
		return nil
	})
}

func (r *StockRepo) GetBatch(ctx context.Context, batchID id.ID) (*stock.Batch, error) {
	var out *stock.Batch
	err := r.db.with(ctx, func(t *tables) error {
		b, ok := t.batches[batchID]
		if !ok {
			return apperror.NewNotFound("stock_batch", batchID.String())
		}
		out = &b
		return nil
	})
	return out, err
}

func (r *StockRepo) GetBatchForUpdate(ctx context.Context, batchID id.ID) (*stock.Batch, error) {
	return r.GetBatch(ctx, batchID)
}

func (r *StockRepo) LockForAllocation(ctx context.Context, itemID id.ID, expiresAfter *time.Time) ([]*stock.Batch, error) {
	var out []*stock.Batch
	err := r.db.with(ctx, func(t *tables) error {
		for _, b := range t.batches {
			if b.ItemID != itemID || b.RemainingQuantity <= 0 {
				continue
			}
			if expiresAfter != nil && !b.ExpiryDate.After(*expiresAfter) {
				continue
			}
			c := b
			out = append(out, &c)
		}
		return nil
	})
	sortFEFO(out)
	return out, err
}

func sortFEFO(batches []*stock.Batch) {
	sort.Slice(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if !a.ExpiryDate.Equal(b.ExpiryDate) {
			return a.ExpiryDate.Before(b.ExpiryDate)
		}
		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

func (r *StockRepo) UpdateRemaining(ctx context.Context, b *stock.Batch) error {
	return r.db.with(ctx, func(t *tables) error {
		cur, ok := t.batches[b.ID]
		if !ok {
			return apperror.NewNotFound("stock_batch", b.ID.String())
		}
		if cur.Version != b.Version {
			return apperror.NewConcurrencyConflict("stock_batch", b.ID.String())
		}
		if b.RemainingQuantity < 0 {
			return apperror.NewInvariantViolation("batch remaining quantity cannot be negative").
				WithDetail("batch_id", b.ID.String())
		}
		cur.RemainingQuantity = b.RemainingQuantity
		cur.Version++
		t.batches[b.ID] = cur
		b.Version = cur.Version
		return nil
	})
}

func (r *StockRepo) ListBatches(ctx context.Context, f stock.BatchFilter) (domain.ListResult[*stock.Batch], error) {
	var items []*stock.Batch
	err := r.db.with(ctx, func(t *tables) error {
		for _, b := range t.batches {
			if f.ItemID != nil && b.ItemID != *f.ItemID {
				continue
			}
			if f.OnlyAvailable && b.RemainingQuantity <= 0 {
				continue
			}
			if f.ExpiringBefore != nil && !b.ExpiryDate.Before(*f.ExpiringBefore) {
				continue
			}
			if f.PurchaseOrderLineID != nil && (b.PurchaseOrderLineID == nil || *b.PurchaseOrderLineID != *f.PurchaseOrderLineID) {
				continue
			}
			if !matchesIDs(b.ID, f.IDs) || !matchesSearch(b.BatchCode, f.Search) {
				continue
			}
			c := b
			items = append(items, &c)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*stock.Batch]{}, err
	}
	sortFEFO(items)
	return page(items, f.ListFilter), nil
}

func (r *StockRepo) OnHand(ctx context.Context, itemIDs []id.ID) (map[id.ID]types.Quantity, error) {
	out := make(map[id.ID]types.Quantity)
	want := make(map[id.ID]bool, len(itemIDs))
	for _, itemID := range itemIDs {
		want[itemID] = true
	}
	err := r.db.with(ctx, func(t *tables) error {
		for _, b := range t.batches {
			if want[b.ItemID] {
				out[b.ItemID] += b.RemainingQuantity
			}
		}
		return nil
	})
	return out, err
}

func (r *StockRepo) CreateMovements(ctx context.Context, movements []stock.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.with(ctx, func(t *tables) error {
		for _, m := range movements {
			if !m.Kind.IsValid() {
				return apperror.NewValidation("unknown movement kind " + string(m.Kind))
			}
			if m.ReferenceLineID != nil {
				lineID := *m.ReferenceLineID
				m.ReferenceLineID = &lineID
			}
			t.movements = append(t.movements[:len(t.movements):len(t.movements)], m)
		}
		return nil
	})
}

func (r *StockRepo) ListMovements(ctx context.Context, f stock.MovementFilter) (domain.ListResult[stock.Movement], error) {
	var items []stock.Movement
	err := r.db.with(ctx, func(t *tables) error {
		for _, m := range t.movements {
			if f.ItemID != nil && m.ItemID != *f.ItemID {
				continue
			}
			if f.BatchID != nil && m.BatchID != *f.BatchID {
				continue
			}
			if f.Kind != nil && m.Kind != *f.Kind {
				continue
			}
			if f.ReferenceType != "" && m.ReferenceType != f.ReferenceType {
				continue
			}
			if f.ReferenceID != nil && m.ReferenceID != *f.ReferenceID {
				continue
			}
			if !inWindow(m.CreatedAt, f.ListFilter) {
				continue
			}
			items = append(items, m)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[stock.Movement]{}, err
	}
	sortByTime(items, f.OrderBy, func(m stock.Movement) time.Time { return m.CreatedAt })
	return page(items, f.ListFilter), nil
}

func (r *StockRepo) SumMovementDeltas(ctx context.Context, batchID id.ID) (types.Quantity, error) {
	var sum types.Quantity
	err := r.db.with(ctx, func(t *tables) error {
		for _, m := range t.movements {
			if m.BatchID == batchID {
				sum += m.Delta
			}
		}
		return nil
	})
	return sum, err
}

var _ stock.Repository = (*StockRepo)(nil)
