package purchase_order

import (
	"context"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain"
)

// Repository defines operations for purchase orders and their receipts.
type Repository interface {
	Create(ctx context.Context, doc *PurchaseOrder) error
	GetByID(ctx context.Context, orderID id.ID) (*PurchaseOrder, error)
	GetForUpdate(ctx context.Context, orderID id.ID) (*PurchaseOrder, error)

	// Update persists header changes when doc.Version still matches,
	// then bumps doc.Version and UpdatedAt.
	Update(ctx context.Context, doc *PurchaseOrder) error

	GetLines(ctx context.Context, orderID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, orderID id.ID, lines []Line) error

	// UpdateReceived stores ReceivedQuantity of the given lines.
	UpdateReceived(ctx context.Context, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseOrder], error)

	// OpenOrderItems maps each of itemIDs that appears on an open order
	// (draft, approved or partially received) to one such order.
	OpenOrderItems(ctx context.Context, itemIDs []id.ID) (map[id.ID]id.ID, error)

	// Receipts

	CreateReceipt(ctx context.Context, receipt *Receipt) error
	ListReceipts(ctx context.Context, orderID id.ID) ([]*Receipt, error)
}

// ListFilter for filtering purchase orders.
type ListFilter struct {
	domain.ListFilter

	SupplierID *id.ID
	Statuses   []Status
	ItemID     *id.ID
}
