package organization

import (
	"context"
)

// Repository defines the interface for organization storage.
type Repository interface {
	// Get returns the organization row, NOT_FOUND before it is configured.
	Get(ctx context.Context) (*Organization, error)

	// Save inserts or updates the row, checking Version on update.
	Save(ctx context.Context, org *Organization) error
}
