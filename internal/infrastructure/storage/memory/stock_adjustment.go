package memory

import (
	"context"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/documents/stock_adjustment"
)

// StockAdjustmentRepo implements stock_adjustment.Repository.
type StockAdjustmentRepo struct {
	db *DB
}

// NewStockAdjustmentRepo creates a stock adjustment repository.
func NewStockAdjustmentRepo(db *DB) *StockAdjustmentRepo {
	return &StockAdjustmentRepo{db: db}
}

func (r *StockAdjustmentRepo) Create(ctx context.Context, doc *stock_adjustment.StockAdjustment) error {
	return r.db.with(ctx, func(t *tables) error {
		if _, exists := t.adjustments[doc.ID]; exists {
			return apperror.NewInvariantViolation("stock adjustment already exists").WithDetail("adjustment_id", doc.ID.String())
		}
		t.adjustments[doc.ID] = *doc
		return nil
	})
}

func (r *StockAdjustmentRepo) GetByID(ctx context.Context, adjustmentID id.ID) (*stock_adjustment.StockAdjustment, error) {
	var out *stock_adjustment.StockAdjustment
	err := r.db.with(ctx, func(t *tables) error {
		doc, ok := t.adjustments[adjustmentID]
		if !ok {
			return apperror.NewNotFound("stock_adjustment", adjustmentID.String())
		}
		out = &doc
		return nil
	})
	return out, err
}

func (r *StockAdjustmentRepo) GetForUpdate(ctx context.Context, adjustmentID id.ID) (*stock_adjustment.StockAdjustment, error) {
	return r.GetByID(ctx, adjustmentID)
}

func (r *StockAdjustmentRepo) Update(ctx context.Context, doc *stock_adjustment.StockAdjustment) error {
	return r.db.with(ctx, func(t *tables) error {
		cur, ok := t.adjustments[doc.ID]
		if !ok {
			return apperror.NewNotFound("stock_adjustment", doc.ID.String())
		}
		if cur.Version != doc.Version {
			return apperror.NewConcurrencyConflict("stock_adjustment", doc.ID.String())
		}
		doc.Version++
		doc.UpdatedAt = time.Now().UTC()
		t.adjustments[doc.ID] = *doc
		return nil
	})
}

func (r *StockAdjustmentRepo) List(ctx context.Context, f stock_adjustment.ListFilter) (domain.ListResult[*stock_adjustment.StockAdjustment], error) {
	var items []*stock_adjustment.StockAdjustment
	err := r.db.with(ctx, func(t *tables) error {
		for _, doc := range t.adjustments {
			if f.BatchID != nil && doc.BatchID != *f.BatchID {
				continue
			}
			if f.ItemID != nil && doc.ItemID != *f.ItemID {
				continue
			}
			if f.Status != nil && doc.Status != *f.Status {
				continue
			}
			if !inWindow(doc.Date, f.ListFilter) || !matchesIDs(doc.ID, f.IDs) || !matchesSearch(doc.Number, f.Search) {
				continue
			}
			c := doc
			items = append(items, &c)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*stock_adjustment.StockAdjustment]{}, err
	}
	sortByTime(items, f.OrderBy, func(d *stock_adjustment.StockAdjustment) time.Time { return d.Date })
	return page(items, f.ListFilter), nil
}

var _ stock_adjustment.Repository = (*StockAdjustmentRepo)(nil)
