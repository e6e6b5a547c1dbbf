package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/cash_session"
)

// CashSessionRepo implements cash_session.Repository.
type CashSessionRepo struct {
	db *DB
}

// NewCashSessionRepo creates a cash session repository.
func NewCashSessionRepo(db *DB) *CashSessionRepo {
	return &CashSessionRepo{db: db}
}

func (r *CashSessionRepo) Create(ctx context.Context, s *cash_session.Session) error {
	return r.db.with(ctx, func(t *tables) error {
		if _, exists := t.sessions[s.ID]; exists {
			return apperror.NewInvariantViolation("cash session already exists").WithDetail("session_id", s.ID.String())
		}
		for _, other := range t.sessions {
			if other.IsOpen() && other.CashierID == s.CashierID && other.DrawerID == s.DrawerID {
				return apperror.NewInvariantViolation("cashier already has an open session on this drawer").
					WithDetail("session_id", other.ID.String()).
					WithDetail("drawer_id", s.DrawerID)
			}
		}
		t.sessions[s.ID] = *s
		return nil
	})
}

func (r *CashSessionRepo) GetByID(ctx context.Context, sessionID id.ID) (*cash_session.Session, error) {
	var out *cash_session.Session
	err := r.db.with(ctx, func(t *tables) error {
		s, ok := t.sessions[sessionID]
		if !ok {
			return apperror.NewNotFound("cash_session", sessionID.String())
		}
		out = &s
		return nil
	})
	return out, err
}

func (r *CashSessionRepo) GetForUpdate(ctx context.Context, sessionID id.ID) (*cash_session.Session, error) {
	return r.GetByID(ctx, sessionID)
}

func (r *CashSessionRepo) GetForShare(ctx context.Context, sessionID id.ID) (*cash_session.Session, error) {
	return r.GetByID(ctx, sessionID)
}

func (r *CashSessionRepo) Update(ctx context.Context, s *cash_session.Session) error {
	return r.db.with(ctx, func(t *tables) error {
		cur, ok := t.sessions[s.ID]
		if !ok {
			return apperror.NewNotFound("cash_session", s.ID.String())
		}
		if cur.Version != s.Version {
			return apperror.NewConcurrencyConflict("cash_session", s.ID.String())
		}
		s.Version++
		s.UpdatedAt = time.Now().UTC()
		t.sessions[s.ID] = *s
		return nil
	})
}

func (r *CashSessionRepo) FindOpen(ctx context.Context, cashierID string, drawerID *string) ([]*cash_session.Session, error) {
	var out []*cash_session.Session
	err := r.db.with(ctx, func(t *tables) error {
		for _, s := range t.sessions {
			if !s.IsOpen() || s.CashierID != cashierID {
				continue
			}
			if drawerID != nil && s.DrawerID != *drawerID {
				continue
			}
			c := s
			out = append(out, &c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, err
}

func (r *CashSessionRepo) List(ctx context.Context, f cash_session.ListFilter) (domain.ListResult[*cash_session.Session], error) {
	var items []*cash_session.Session
	err := r.db.with(ctx, func(t *tables) error {
		for _, s := range t.sessions {
			if f.CashierID != "" && s.CashierID != f.CashierID {
				continue
			}
			if f.DrawerID != "" && s.DrawerID != f.DrawerID {
				continue
			}
			if f.Status != nil && s.Status != *f.Status {
				continue
			}
			if !inWindow(s.OpenedAt, f.ListFilter) || !matchesIDs(s.ID, f.IDs) || !matchesSearch(s.Number, f.Search) {
				continue
			}
			c := s
			items = append(items, &c)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*cash_session.Session]{}, err
	}
	sortByTime(items, f.OrderBy, func(s *cash_session.Session) time.Time { return s.OpenedAt })
	return page(items, f.ListFilter), nil
}

func (r *CashSessionRepo) CreateDrop(ctx context.Context, drop *cash_session.CashDrop) error {
	return r.db.with(ctx, func(t *tables) error {
		if _, ok := t.sessions[drop.SessionID]; !ok {
			return apperror.NewNotFound("cash_session", drop.SessionID.String())
		}
		existing := t.drops[drop.SessionID]
		t.drops[drop.SessionID] = append(existing[:len(existing):len(existing)], *drop)
		return nil
	})
}

func (r *CashSessionRepo) ListDrops(ctx context.Context, sessionID id.ID) ([]cash_session.CashDrop, error) {
	var out []cash_session.CashDrop
	err := r.db.with(ctx, func(t *tables) error {
		out = slices.Clone(t.drops[sessionID])
		return nil
	})
	return out, err
}

func (r *CashSessionRepo) SumDrops(ctx context.Context, sessionID id.ID) (types.Money, error) {
	total := types.Zero()
	err := r.db.with(ctx, func(t *tables) error {
		for _, d := range t.drops[sessionID] {
			total = total.Add(d.Amount)
		}
		return nil
	})
	return total, err
}

var _ cash_session.Repository = (*CashSessionRepo)(nil)
