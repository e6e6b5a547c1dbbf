package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/documents/purchase_order"
)

// PurchaseOrderRepo implements purchase_order.Repository.
type PurchaseOrderRepo struct {
	db *DB
}

// NewPurchaseOrderRepo creates a purchase order repository.
func NewPurchaseOrderRepo(db *DB) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{db: db}
}

func (r *PurchaseOrderRepo) Create(ctx context.Context, doc *purchase_order.PurchaseOrder) error {
	return r.db.with(ctx, func(t *tables) error {
		if _, exists := t.orders[doc.ID]; exists {
			return apperror.NewInvariantViolation("purchase order already exists").WithDetail("purchase_order_id", doc.ID.String())
		}
		stored := *doc
		stored.Lines = nil
		t.orders[doc.ID] = stored
		return nil
	})
}

func (r *PurchaseOrderRepo) GetByID(ctx context.Context, orderID id.ID) (*purchase_order.PurchaseOrder, error) {
	var out *purchase_order.PurchaseOrder
	err := r.db.with(ctx, func(t *tables) error {
		doc, ok := t.orders[orderID]
		if !ok {
			return apperror.NewNotFound("purchase_order", orderID.String())
		}
		out = &doc
		return nil
	})
	return out, err
}

func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*purchase_order.PurchaseOrder, error) {
	return r.GetByID(ctx, orderID)
}

func (r *PurchaseOrderRepo) Update(ctx context.Context, doc *purchase_order.PurchaseOrder) error {
	return r.db.with(ctx, func(t *tables) error {
		cur, ok := t.orders[doc.ID]
		if !ok {
			return apperror.NewNotFound("purchase_order", doc.ID.String())
		}
		if cur.Version != doc.Version {
			return apperror.NewConcurrencyConflict("purchase_order", doc.ID.String())
		}
		doc.Version++
		doc.UpdatedAt = time.Now().UTC()
		stored := *doc
		stored.Lines = nil
		t.orders[doc.ID] = stored
		return nil
	})
}

func (r *PurchaseOrderRepo) GetLines(ctx context.Context, orderID id.ID) ([]purchase_order.Line, error) {
	var out []purchase_order.Line
	err := r.db.with(ctx, func(t *tables) error {
		out = slices.Clone(t.orderLines[orderID])
		return nil
	})
	return out, err
}

func (r *PurchaseOrderRepo) SaveLines(ctx context.Context, orderID id.ID, lines []purchase_order.Line) error {
	return r.db.with(ctx, func(t *tables) error {
		if _, ok := t.orders[orderID]; !ok {
			return apperror.NewNotFound("purchase_order", orderID.String())
		}
		t.orderLines[orderID] = slices.Clone(lines)
		return nil
	})
}

func (r *PurchaseOrderRepo) UpdateReceived(ctx context.Context, lines []purchase_order.Line) error {
	return r.db.with(ctx, func(t *tables) error {
		for _, l := range lines {
			stored := slices.Clone(t.orderLines[l.PurchaseOrderID])
			idx := slices.IndexFunc(stored, func(s purchase_order.Line) bool { return s.ID == l.ID })
			if idx < 0 {
				return apperror.NewNotFound("purchase_order_line", l.ID.String())
			}
			stored[idx].ReceivedQuantity = l.ReceivedQuantity
			t.orderLines[l.PurchaseOrderID] = stored
		}
		return nil
	})
}

func (r *PurchaseOrderRepo) List(ctx context.Context, f purchase_order.ListFilter) (domain.ListResult[*purchase_order.PurchaseOrder], error) {
	var items []*purchase_order.PurchaseOrder
	err := r.db.with(ctx, func(t *tables) error {
		for orderID, doc := range t.orders {
			if f.SupplierID != nil && doc.SupplierID != *f.SupplierID {
				continue
			}
			if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, doc.Status) {
				continue
			}
			if f.ItemID != nil && !slices.ContainsFunc(t.orderLines[orderID], func(l purchase_order.Line) bool {
				return l.ItemID == *f.ItemID
			}) {
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
		return domain.ListResult[*purchase_order.PurchaseOrder]{}, err
	}
	sortByTime(items, f.OrderBy, func(d *purchase_order.PurchaseOrder) time.Time { return d.Date })
	return page(items, f.ListFilter), nil
}

func (r *PurchaseOrderRepo) OpenOrderItems(ctx context.Context, itemIDs []id.ID) (map[id.ID]id.ID, error) {
	out := make(map[id.ID]id.ID)
	err := r.db.with(ctx, func(t *tables) error {
		for orderID, doc := range t.orders {
			if !doc.Status.IsOpen() {
				continue
			}
			for _, l := range t.orderLines[orderID] {
				if slices.Contains(itemIDs, l.ItemID) {
					out[l.ItemID] = orderID
				}
			}
		}
		return nil
	})
	return out, err
}

func (r *PurchaseOrderRepo) CreateReceipt(ctx context.Context, receipt *purchase_order.Receipt) error {
	return r.db.with(ctx, func(t *tables) error {
		if _, ok := t.orders[receipt.PurchaseOrderID]; !ok {
			return apperror.NewNotFound("purchase_order", receipt.PurchaseOrderID.String())
		}
		stored := *receipt
		stored.Lines = slices.Clone(receipt.Lines)
		existing := t.receipts[receipt.PurchaseOrderID]
		t.receipts[receipt.PurchaseOrderID] = append(existing[:len(existing):len(existing)], stored)
		return nil
	})
}

func (r *PurchaseOrderRepo) ListReceipts(ctx context.Context, orderID id.ID) ([]*purchase_order.Receipt, error) {
	var out []*purchase_order.Receipt
	err := r.db.with(ctx, func(t *tables) error {
		for _, rec := range t.receipts[orderID] {
			c := rec
			c.Lines = slices.Clone(rec.Lines)
			out = append(out, &c)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

var _ purchase_order.Repository = (*PurchaseOrderRepo)(nil)
