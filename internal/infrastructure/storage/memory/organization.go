package memory

import (
	"context"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/domain/catalogs/organization"
)

// OrganizationRepo implements organization.Repository.
type OrganizationRepo struct {
	db *DB
}

// NewOrganizationRepo creates an organization repository.
func NewOrganizationRepo(db *DB) *OrganizationRepo {
	return &OrganizationRepo{db: db}
}

func (r *OrganizationRepo) Get(ctx context.Context) (*organization.Organization, error) {
	var out *organization.Organization
	err := r.db.with(ctx, func(t *tables) error {
		if t.org == nil {
			return apperror.NewNotFound("organization", "")
		}
		c := *t.org
		out = &c
		return nil
	})
	return out, err
}

func (r *OrganizationRepo) Save(ctx context.Context, org *organization.Organization) error {
	return r.db.with(ctx, func(t *tables) error {
		switch {
		case t.org == nil:
			org.Version = 1
		case t.org.Version != org.Version:
			return apperror.NewConcurrencyConflict("organization", org.ID.String())
		default:
			org.Version++
		}
		c := *org
		t.org = &c
		return nil
	})
}

var _ organization.Repository = (*OrganizationRepo)(nil)
