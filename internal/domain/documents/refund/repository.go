package refund

import (
	"context"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain"
)

// Repository defines operations for refund documents.
type Repository interface {
	Create(ctx context.Context, doc *Refund) error
	GetByID(ctx context.Context, refundID id.ID) (*Refund, error)
	GetForUpdate(ctx context.Context, refundID id.ID) (*Refund, error)

	// Update persists header changes when doc.Version still matches,
	// then bumps doc.Version and UpdatedAt.
	Update(ctx context.Context, doc *Refund) error

	// Line operations (lines carry their batch attributions)
	GetLines(ctx context.Context, refundID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, refundID id.ID, lines []Line) error

	// ListBySale returns every refund of the sale, oldest first, headers only.
	ListBySale(ctx context.Context, saleID id.ID) ([]*Refund, error)

	// ActiveLines returns the lines of the sale's non-cancelled refunds.
	ActiveLines(ctx context.Context, saleID id.ID) ([]Line, error)

	HasActive(ctx context.Context, saleID id.ID) (bool, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Refund], error)
}

// ListFilter for filtering refunds.
type ListFilter struct {
	domain.ListFilter

	SaleID *id.ID
	Status *Status
}
