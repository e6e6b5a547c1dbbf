package memory

import (
	"context"
	"slices"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/documents/sale"
)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	db *DB
}

// NewSaleRepo creates a sale repository.
func NewSaleRepo(db *DB) *SaleRepo {
	return &SaleRepo{db: db}
}

func (r *SaleRepo) Create(ctx context.Context, doc *sale.Sale) error {
	return r.db.with(ctx, func(t *tables) error {
		if _, exists := t.sales[doc.ID]; exists {
			return apperror.NewInvariantViolation("sale already exists").WithDetail("sale_id", doc.ID.String())
		}
		for _, other := range t.sales {
			if other.Number == doc.Number {
				return apperror.NewInvariantViolation("sale number already used").WithDetail("number", doc.Number)
			}
		}
		stored := *doc
		stored.Lines = nil
		t.sales[doc.ID] = stored
		return nil
	})
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	var out *sale.Sale
	err := r.db.with(ctx, func(t *tables) error {
		doc, ok := t.sales[saleID]
		if !ok {
			return apperror.NewNotFound("sale", saleID.String())
		}
		out = &doc
		return nil
	})
	return out, err
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.GetByID(ctx, saleID)
}

func (r *SaleRepo) Update(ctx context.Context, doc *sale.Sale) error {
	return r.db.with(ctx, func(t *tables) error {
		cur, ok := t.sales[doc.ID]
		if !ok {
			return apperror.NewNotFound("sale", doc.ID.String())
		}
		if cur.Version != doc.Version {
			return apperror.NewConcurrencyConflict("sale", doc.ID.String())
		}
		doc.Version++
		doc.UpdatedAt = time.Now().UTC()
		stored := *doc
		stored.Lines = nil
		t.sales[doc.ID] = stored
		return nil
	})
}

func (r *SaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]sale.Line, error) {
	var out []sale.Line
	err := r.db.with(ctx, func(t *tables) error {
		out = cloneSaleLines(t.saleLines[saleID])
		return nil
	})
	return out, err
}

func (r *SaleRepo) SaveLines(ctx context.Context, saleID id.ID, lines []sale.Line) error {
	return r.db.with(ctx, func(t *tables) error {
		if _, ok := t.sales[saleID]; !ok {
			return apperror.NewNotFound("sale", saleID.String())
		}
		t.saleLines[saleID] = cloneSaleLines(lines)
		return nil
	})
}

func cloneSaleLines(lines []sale.Line) []sale.Line {
	if lines == nil {
		return nil
	}
	out := slices.Clone(lines)
	for i := range out {
		out[i].Allocations = slices.Clone(out[i].Allocations)
	}
	return out
}

func (r *SaleRepo) List(ctx context.Context, f sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	var items []*sale.Sale
	err := r.db.with(ctx, func(t *tables) error {
		for _, doc := range t.sales {
			if f.CashierID != "" && doc.CashierID != f.CashierID {
				continue
			}
			if f.SessionID != nil && (doc.SessionID == nil || *doc.SessionID != *f.SessionID) {
				continue
			}
			if f.CustomerID != nil && (doc.CustomerID == nil || *doc.CustomerID != *f.CustomerID) {
				continue
			}
			if f.Status != nil && doc.Status != *f.Status {
				continue
			}
			if f.PaymentMethod != nil && doc.PaymentMethod != *f.PaymentMethod {
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
		return domain.ListResult[*sale.Sale]{}, err
	}
	sortByTime(items, f.OrderBy, func(s *sale.Sale) time.Time { return s.Date })
	return page(items, f.ListFilter), nil
}

func (r *SaleRepo) CashSalesTotal(ctx context.Context, sessionID id.ID) (types.Money, error) {
	total := types.Zero()
	err := r.db.with(ctx, func(t *tables) error {
		for _, doc := range t.sales {
			if doc.SessionID == nil || *doc.SessionID != sessionID {
				continue
			}
			if doc.Status != sale.StatusCompleted || doc.PaymentMethod != sale.PaymentCash {
				continue
			}
			total = total.Add(doc.Total)
		}
		return nil
	})
	return total, err
}

var _ sale.Repository = (*SaleRepo)(nil)
