package reorder

import (
	"context"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain"
)

// Repository persists reorder levels.
type Repository interface {
	// Upsert creates or replaces the level of an item. An existing row is
	// replaced only when level.Version matches; Version is bumped on success.
	Upsert(ctx context.Context, level *Level) error
	Get(ctx context.Context, itemID id.ID) (*Level, error)
	Delete(ctx context.Context, itemID id.ID) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Level], error)

	// All returns every configured level.
	All(ctx context.Context) ([]*Level, error)

	// LockGeneration serializes order generation. The lock is held until the
	// surrounding transaction ends.
	LockGeneration(ctx context.Context) error
}

// ListFilter for listing levels.
type ListFilter struct {
	domain.ListFilter

	AutoReorder *bool
	SupplierID  *id.ID
}
