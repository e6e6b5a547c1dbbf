package auth

import (
	"context"
)

// StaffRepository defines staff storage operations.
type StaffRepository interface {
	// GetByID retrieves a staff member by user id.
	GetByID(ctx context.Context, userID string) (*Staff, error)

	// Save inserts a staff member or updates an existing one, checking Version.
	Save(ctx context.Context, staff *Staff) error

	// List retrieves staff members ordered by name.
	List(ctx context.Context, filter StaffFilter) ([]*Staff, error)
}

// StaffFilter for listing staff.
type StaffFilter struct {
	Role     string
	IsActive *bool
}
