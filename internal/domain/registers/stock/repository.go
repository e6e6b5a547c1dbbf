package stock

import (
	"context"
	"time"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain"
)

// Repository persists batches and movements.
type Repository interface {
	// Batch operations

	CreateBatch(ctx context.Context, batch *Batch) error
	GetBatch(ctx context.Context, batchID id.ID) (*Batch, error)

	// GetBatchForUpdate returns a batch with a row lock held until the transaction ends.
	GetBatchForUpdate(ctx context.Context, batchID id.ID) (*Batch, error)

	// LockForAllocation locks every batch of the item with remaining quantity,
	// in FEFO order (expiry date, receipt time, id). With expiresAfter set,
	// batches expiring on or before that instant are excluded.
	LockForAllocation(ctx context.Context, itemID id.ID, expiresAfter *time.Time) ([]*Batch, error)

	// UpdateRemaining persists RemainingQuantity, checking and bumping Version.
	UpdateRemaining(ctx context.Context, batch *Batch) error

	ListBatches(ctx context.Context, filter BatchFilter) (domain.ListResult[*Batch], error)

	// OnHand returns the live sum of remaining quantity per item.
	// Items without batches are absent from the result.
	OnHand(ctx context.Context, itemIDs []id.ID) (map[id.ID]types.Quantity, error)

	// Movement operations

	CreateMovements(ctx context.Context, movements []Movement) error
	ListMovements(ctx context.Context, filter MovementFilter) (domain.ListResult[Movement], error)
	SumMovementDeltas(ctx context.Context, batchID id.ID) (types.Quantity, error)
}

// BatchFilter for listing batches.
type BatchFilter struct {
	domain.ListFilter

	ItemID              *id.ID
	OnlyAvailable       bool
	ExpiringBefore      *time.Time
	PurchaseOrderLineID *id.ID
}

// MovementFilter for listing the movement log. DateFrom/DateTo bound created_at.
type MovementFilter struct {
	domain.ListFilter

	ItemID        *id.ID
	BatchID       *id.ID
	Kind          *MovementKind
	ReferenceType string
	ReferenceID   *id.ID
}
