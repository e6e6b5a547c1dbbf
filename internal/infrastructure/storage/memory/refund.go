package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/documents/refund"
)

// RefundRepo implements refund.Repository.
type RefundRepo struct {
	db *DB
}

// NewRefundRepo creates a refund repository.
func NewRefundRepo(db *DB) *RefundRepo {
	return &RefundRepo{db: db}
}

func (r *RefundRepo) Create(ctx context.Context, doc *refund.Refund) error {
	return r.db.with(ctx, func(t *tables) error {
		if _, exists := t.refunds[doc.ID]; exists {
			return apperror.NewInvariantViolation("refund already exists").WithDetail("refund_id", doc.ID.String())
		}
		if _, ok := t.sales[doc.SaleID]; !ok {
			return apperror.NewNotFound("sale", doc.SaleID.String())
		}
		stored := *doc
		stored.Lines = nil
		t.refunds[doc.ID] = stored
		return nil
	})
}

func (r *RefundRepo) GetByID(ctx context.Context, refundID id.ID) (*refund.Refund, error) {
	var out *refund.Refund
	err := r.db.with(ctx, func(t *tables) error {
		doc, ok := t.refunds[refundID]
		if !ok {
			return apperror.NewNotFound("refund", refundID.String())
		}
		out = &doc
		return nil
	})
	return out, err
}

func (r *RefundRepo) GetForUpdate(ctx context.Context, refundID id.ID) (*refund.Refund, error) {
	return r.GetByID(ctx, refundID)
}

func (r *RefundRepo) Update(ctx context.Context, doc *refund.Refund) error {
	return r.db.with(ctx, func(t *tables) error {
		cur, ok := t.refunds[doc.ID]
		if !ok {
			return apperror.NewNotFound("refund", doc.ID.String())
		}
		if cur.Version != doc.Version {
			return apperror.NewConcurrencyConflict("refund", doc.ID.String())
		}
		doc.Version++
		doc.UpdatedAt = time.Now().UTC()
		stored := *doc
		stored.Lines = nil
		t.refunds[doc.ID] = stored
		return nil
	})
}

func (r *RefundRepo) GetLines(ctx context.Context, refundID id.ID) ([]refund.Line, error) {
	var out []refund.Line
	err := r.db.with(ctx, func(t *tables) error {
		out = cloneRefundLines(t.refundLines[refundID])
		return nil
	})
	return out, err
}

func (r *RefundRepo) SaveLines(ctx context.Context, refundID id.ID, lines []refund.Line) error {
	return r.db.with(ctx, func(t *tables) error {
		if _, ok := t.refunds[refundID]; !ok {
			return apperror.NewNotFound("refund", refundID.String())
		}
		t.refundLines[refundID] = cloneRefundLines(lines)
		return nil
	})
}

func cloneRefundLines(lines []refund.Line) []refund.Line {
	if lines == nil {
		return nil
	}
	out := slices.Clone(lines)
	for i := range out {
		out[i].Allocations = slices.Clone(out[i].Allocations)
	}
	return out
}

func (r *RefundRepo) ListBySale(ctx context.Context, saleID id.ID) ([]*refund.Refund, error) {
	var out []*refund.Refund
	err := r.db.with(ctx, func(t *tables) error {
		for _, doc := range t.refunds {
			if doc.SaleID == saleID {
				c := doc
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Number < out[j].Number
	})
	return out, err
}

func (r *RefundRepo) ActiveLines(ctx context.Context, saleID id.ID) ([]refund.Line, error) {
	var out []refund.Line
	err := r.db.with(ctx, func(t *tables) error {
		for refundID, doc := range t.refunds {
			if doc.SaleID == saleID && doc.IsActive() {
				out = append(out, cloneRefundLines(t.refundLines[refundID])...)
			}
		}
		return nil
	})
	return out, err
}

func (r *RefundRepo) HasActive(ctx context.Context, saleID id.ID) (bool, error) {
	var found bool
	err := r.db.with(ctx, func(t *tables) error {
		for _, doc := range t.refunds {
			if doc.SaleID == saleID && doc.IsActive() {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *RefundRepo) List(ctx context.Context, f refund.ListFilter) (domain.ListResult[*refund.Refund], error) {
	var items []*refund.Refund
	err := r.db.with(ctx, func(t *tables) error {
		for _, doc := range t.refunds {
			if f.SaleID != nil && doc.SaleID != *f.SaleID {
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
		return domain.ListResult[*refund.Refund]{}, err
	}
	sortByTime(items, f.OrderBy, func(d *refund.Refund) time.Time { return d.Date })
	return page(items, f.ListFilter), nil
}

var _ refund.Repository = (*RefundRepo)(nil)
