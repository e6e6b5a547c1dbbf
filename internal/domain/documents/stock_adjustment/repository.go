package stock_adjustment

import (
	"context"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain"
)

// Repository defines operations for stock adjustments.
type Repository interface {
	Create(ctx context.Context, doc *StockAdjustment) error
	GetByID(ctx context.Context, adjustmentID id.ID) (*StockAdjustment, error)
	GetForUpdate(ctx context.Context, adjustmentID id.ID) (*StockAdjustment, error)

	// Update persists changes when doc.Version still matches,
	// then bumps doc.Version and UpdatedAt.
	Update(ctx context.Context, doc *StockAdjustment) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*StockAdjustment], error)
}

// ListFilter for filtering adjustments.
type ListFilter struct {
	domain.ListFilter

	BatchID *id.ID
	ItemID  *id.ID
	Status  *Status
}
