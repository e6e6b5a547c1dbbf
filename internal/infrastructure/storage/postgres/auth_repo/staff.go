// Package auth_repo provides the PostgreSQL implementation of staff storage.
package auth_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/domain/auth"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

const staffTable = "auth_staff"

var staffCols = postgres.ExtractDBColumns[auth.Staff]()

// StaffRepo implements auth.StaffRepository.
type StaffRepo struct {
	txManager *postgres.TxManager
}

var _ auth.StaffRepository = (*StaffRepo)(nil)

// NewStaffRepo creates a new staff repository.
func NewStaffRepo(txManager *postgres.TxManager) *StaffRepo {
	return &StaffRepo{txManager: txManager}
}

// GetByID retrieves a staff member by user id.
func (r *StaffRepo) GetByID(ctx context.Context, userID string) (*auth.Staff, error) {
	staff := &auth.Staff{}
	q := postgres.Builder().
		Select(staffCols...).
		From(staffTable).
		Where(squirrel.Eq{"id": userID})
	if err := postgres.GetOne(ctx, r.txManager.GetQuerier(ctx), staff, q, "staff", userID); err != nil {
		return nil, err
	}
	return staff, nil
}

// Save inserts a new staff member or updates an existing one.
func (r *StaffRepo) Save(ctx context.Context, staff *auth.Staff) error {
	q := r.txManager.GetQuerier(ctx)

	query := `
		UPDATE auth_staff SET
			name = $3, email = $4, roles = $5, pin_hash = $6, is_active = $7,
			failed_pin_attempts = $8, locked_until = $9, updated_at = $10,
			version = version + 1
		WHERE id = $1 AND version = $2
	`
	tag, err := q.Exec(ctx, query,
		staff.ID, staff.Version,
		staff.Name, staff.Email, staff.Roles, staff.PINHash, staff.IsActive,
		staff.FailedPINAttempts, staff.LockedUntil, staff.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update staff: %w", err)
	}
	if tag.RowsAffected() == 1 {
		staff.Version++
		return nil
	}

	version := max(staff.Version, 1)
	query = `
		INSERT INTO auth_staff (
			id, name, email, roles, pin_hash, is_active,
			failed_pin_attempts, locked_until, created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	tag, err = q.Exec(ctx, query,
		staff.ID, staff.Name, staff.Email, staff.Roles, staff.PINHash, staff.IsActive,
		staff.FailedPINAttempts, staff.LockedUntil, staff.CreatedAt, staff.UpdatedAt, version,
	)
	if err != nil {
		return fmt.Errorf("insert staff: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrencyConflict("staff", staff.ID)
	}
	staff.Version = version
	return nil
}

// List retrieves staff members ordered by name.
func (r *StaffRepo) List(ctx context.Context, filter auth.StaffFilter) ([]*auth.Staff, error) {
	q := postgres.Builder().
		Select(staffCols...).
		From(staffTable).
		OrderBy("name", "id")
	if filter.Role != "" {
		q = q.Where("? = ANY(roles)", filter.Role)
	}
	if filter.IsActive != nil {
		q = q.Where(squirrel.Eq{"is_active": *filter.IsActive})
	}

	var out []*auth.Staff
	if err := postgres.SelectAll(ctx, r.txManager.GetQuerier(ctx), &out, q); err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return out, nil
}
