// Package catalog_repo provides PostgreSQL implementations for reference data
// repositories: the organization settings and reorder levels.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/domain/catalogs/organization"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

// organizationTable holds at most one row, enforced by a unique index on (true).
const organizationTable = "cat_organizations"

var organizationCols = postgres.ExtractDBColumns[organization.Organization]()

// OrganizationRepo implements organization.Repository.
type OrganizationRepo struct {
	txManager *postgres.TxManager
}

var _ organization.Repository = (*OrganizationRepo)(nil)

// NewOrganizationRepo creates a new organization repository.
func NewOrganizationRepo(txManager *postgres.TxManager) *OrganizationRepo {
	return &OrganizationRepo{txManager: txManager}
}

// Get returns the organization settings.
func (r *OrganizationRepo) Get(ctx context.Context) (*organization.Organization, error) {
	org := &organization.Organization{}
	q := postgres.Builder().Select(organizationCols...).From(organizationTable).Limit(1)
	if err := postgres.GetOne(ctx, r.txManager.GetQuerier(ctx), org, q, "organization", "default"); err != nil {
		return nil, err
	}
	return org, nil
}

// Save updates the row when org.Version matches, otherwise inserts the first
// row. A second insert hits the singleton index and reports a conflict.
func (r *OrganizationRepo) Save(ctx context.Context, org *organization.Organization) error {
	querier := r.txManager.GetQuerier(ctx)
	data := postgres.StructToMap(org)

	update := postgres.Builder().
		Update(organizationTable).
		SetMap(postgres.PickColumns(data, postgres.ColumnsExcept(organizationCols, "id", "version"))).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": org.ID, "version": org.Version})

	affected, err := postgres.Exec(ctx, querier, update)
	if err != nil {
		return fmt.Errorf("update organization: %w", err)
	}
	if affected == 1 {
		org.Version++
		return nil
	}

	data["version"] = 1
	insert := postgres.Builder().
		Insert(organizationTable).
		SetMap(postgres.PickColumns(data, organizationCols))
	if _, err := postgres.Exec(ctx, querier, insert); err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return apperror.NewConcurrencyConflict("organization", org.ID.String())
		}
		return fmt.Errorf("insert organization: %w", err)
	}
	org.Version = 1
	return nil
}
