package cash_session

import (
	"context"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain"
)

// Repository defines operations for cash sessions and drops.
type Repository interface {
	// Create stores a new open session. A second open session for the same
	// cashier and drawer is rejected with INVARIANT_VIOLATION.
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, sessionID id.ID) (*Session, error)
	GetForUpdate(ctx context.Context, sessionID id.ID) (*Session, error)

	// GetForShare reads the session with a shared lock, so a concurrent close
	// waits until the caller's transaction ends.
	GetForShare(ctx context.Context, sessionID id.ID) (*Session, error)

	// Update persists changes when s.Version still matches,
	// then bumps s.Version and UpdatedAt.
	Update(ctx context.Context, s *Session) error

	// FindOpen returns the cashier's open sessions, on one drawer when drawerID is set.
	FindOpen(ctx context.Context, cashierID string, drawerID *string) ([]*Session, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Session], error)

	CreateDrop(ctx context.Context, drop *CashDrop) error
	ListDrops(ctx context.Context, sessionID id.ID) ([]CashDrop, error)
	SumDrops(ctx context.Context, sessionID id.ID) (types.Money, error)
}

// ListFilter for filtering sessions. DateFrom/DateTo bound opened_at.
type ListFilter struct {
	domain.ListFilter

	CashierID string
	DrawerID  string
	Status    *Status
}
