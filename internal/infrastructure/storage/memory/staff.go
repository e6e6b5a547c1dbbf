package memory

import (
	"context"
	"slices"
	"sort"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/domain/auth"
)

// StaffRepo implements auth.StaffRepository.
type StaffRepo struct {
	db *DB
}

// NewStaffRepo creates a staff repository.
func NewStaffRepo(db *DB) *StaffRepo {
	return &StaffRepo{db: db}
}

func (r *StaffRepo) GetByID(ctx context.Context, userID string) (*auth.Staff, error) {
	var out *auth.Staff
	err := r.db.with(ctx, func(t *tables) error {
		s, ok := t.staff[userID]
		if !ok {
			return apperror.NewNotFound("staff", userID)
		}
		s.Roles = slices.Clone(s.Roles)
		out = &s
		return nil
	})
	return out, err
}

func (r *StaffRepo) Save(ctx context.Context, staff *auth.Staff) error {
	return r.db.with(ctx, func(t *tables) error {
		cur, exists := t.staff[staff.ID]
		switch {
		case !exists:
			staff.Version = max(staff.Version, 1)
		case cur.Version != staff.Version:
			return apperror.NewConcurrencyConflict("staff", staff.ID)
		default:
			staff.Version++
		}
		c := *staff
		c.Roles = slices.Clone(staff.Roles)
		t.staff[staff.ID] = c
		return nil
	})
}

func (r *StaffRepo) List(ctx context.Context, f auth.StaffFilter) ([]*auth.Staff, error) {
	var out []*auth.Staff
	err := r.db.with(ctx, func(t *tables) error {
		for _, s := range t.staff {
			if f.Role != "" && !slices.Contains(s.Roles, f.Role) {
				continue
			}
			if f.IsActive != nil && s.IsActive != *f.IsActive {
				continue
			}
			c := s
			c.Roles = slices.Clone(s.Roles)
			out = append(out, &c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

var _ auth.StaffRepository = (*StaffRepo)(nil)
