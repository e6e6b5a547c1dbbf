package sale

import (
	"context"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain"
)

// Repository defines operations for sale documents.
type Repository interface {
	Create(ctx context.Context, doc *Sale) error
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)
	// Update persists header changes when doc.Version still matches,
	// then bumps doc.Version and UpdatedAt.
	Update(ctx context.Context, doc *Sale) error

	// Line operations (lines carry their allocations)
	GetLines(ctx context.Context, saleID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, saleID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)

	// GetForUpdate locks the sale row. Refunds and voids of one sale serialize on it.
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)

	// CashSalesTotal sums totals of completed cash sales tagged with the session.
	CashSalesTotal(ctx context.Context, sessionID id.ID) (types.Money, error)
}

// ListFilter for filtering sales.
type ListFilter struct {
	domain.ListFilter

	CashierID     string
	SessionID     *id.ID
	CustomerID    *id.ID
	Status        *Status
	PaymentMethod *PaymentMethod
}
