// Package auth provides staff credentials, access tokens and the manager
// override used to approve elevated operations at the counter.
package auth

import (
	"context"
	"slices"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/security"
)

// Staff is a pharmacy employee known to the ledger.
// ID matches the user id carried in access tokens.
type Staff struct {
	ID                string     `db:"id" json:"id"`
	Name              string     `db:"name" json:"name"`
	Email             string     `db:"email" json:"email,omitempty"`
	Roles             []string   `db:"roles" json:"roles"`
	PINHash           string     `db:"pin_hash" json:"-"`
	IsActive          bool       `db:"is_active" json:"isActive"`
	FailedPINAttempts int        `db:"failed_pin_attempts" json:"-"`
	LockedUntil       *time.Time `db:"locked_until" json:"-"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updatedAt"`
	Version           int        `db:"version" json:"version"`
}

// NewStaff creates an active staff record.
func NewStaff(userID, name string, roles []string) *Staff {
	now := time.Now().UTC()
	return &Staff{
		ID:        userID,
		Name:      name,
		Roles:     roles,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// Validate validates staff data.
func (s *Staff) Validate(ctx context.Context) error {
	if s.ID == "" {
		return apperror.NewValidation("staff id is required").WithDetail("field", "id")
	}
	if s.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	for _, r := range s.Roles {
		if !slices.Contains(knownRoles, r) {
			return apperror.NewValidation("unknown role "+r).WithDetail("field", "roles")
		}
	}
	return nil
}

var knownRoles = []string{security.RoleAdmin, security.RoleManager, security.RolePharmacist, security.RoleCashier}

// IsLocked returns true if PIN approval is temporarily blocked.
func (s *Staff) IsLocked() bool {
	if s.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*s.LockedUntil)
}

// CanApprove checks if the staff member may approve with a PIN right now.
func (s *Staff) CanApprove() error {
	if !s.IsActive {
		return apperror.NewForbidden("approver account is disabled")
	}
	if s.IsLocked() {
		return apperror.NewForbidden("approver PIN is temporarily locked")
	}
	if s.PINHash == "" {
		return apperror.NewForbidden("approver has no override PIN")
	}
	return nil
}

// RecordFailedPIN increments the failed PIN counter and locks after maxAttempts.
func (s *Staff) RecordFailedPIN(maxAttempts int, lockDuration time.Duration) {
	s.FailedPINAttempts++
	if s.FailedPINAttempts >= maxAttempts {
		lockUntil := time.Now().Add(lockDuration)
		s.LockedUntil = &lockUntil
	}
}

// RecordSuccessfulPIN resets the failed PIN counter.
func (s *Staff) RecordSuccessfulPIN() {
	s.FailedPINAttempts = 0
	s.LockedUntil = nil
}

// Holds reports whether the staff member's roles grant p.
func (s *Staff) Holds(p security.Privilege) bool {
	return security.Grants(s.Roles, p)
}
