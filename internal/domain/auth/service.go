package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/security"
	"pharmaledger/internal/core/tx"
	"pharmaledger/internal/domain/audit"
	"pharmaledger/pkg/logger"
)

// ServiceConfig holds auth service configuration.
type ServiceConfig struct {
	MaxPINAttempts int
	LockDuration   time.Duration
	PINMinLength   int
	BcryptCost     int
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxPINAttempts: 5,
		LockDuration:   15 * time.Minute,
		PINMinLength:   4,
		BcryptCost:     bcrypt.DefaultCost,
	}
}

// Service manages staff credentials and verifies manager overrides.
type Service struct {
	repo      StaffRepository
	txManager tx.Manager
	audit     audit.Logger
	config    ServiceConfig
}

// NewService creates a new auth service.
func NewService(repo StaffRepository, txManager tx.Manager, auditLog audit.Logger, config ServiceConfig) *Service {
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:      repo,
		txManager: txManager,
		audit:     auditLog,
		config:    config,
	}
}

// StaffInput creates or replaces a staff member.
type StaffInput struct {
	ID       string
	Name     string
	Email    string
	Roles    []string
	IsActive *bool
}

// SaveStaff creates or updates a staff member. Admin only.
func (s *Service) SaveStaff(ctx context.Context, in StaffInput) (*Staff, error) {
	actor, err := security.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && !actor.HasRole(security.RoleAdmin) {
		return nil, apperror.NewForbidden("admin role required")
	}

	var staff *Staff
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, in.ID)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}

		if existing != nil {
			c := *existing
			staff = &c
			staff.Name = strings.TrimSpace(in.Name)
			staff.Roles = in.Roles
			staff.UpdatedAt = time.Now().UTC()
		} else {
			staff = NewStaff(in.ID, strings.TrimSpace(in.Name), in.Roles)
		}
		staff.Email = strings.TrimSpace(in.Email)
		if in.IsActive != nil {
			staff.IsActive = *in.IsActive
		}
		if err := staff.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, staff); err != nil {
			return err
		}

		entityID := staffAuditID(staff.ID)
		if existing == nil {
			return s.audit.LogCreate(ctx, audit.EntityStaff, entityID, staff)
		}
		return s.audit.LogUpdate(ctx, audit.EntityStaff, entityID, existing, staff)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "staff saved", "staff_id", staff.ID, "roles", staff.Roles)
	return staff, nil
}

// SetPIN sets a staff member's override PIN. Staff may set their own PIN;
// admins may set anyone's.
func (s *Service) SetPIN(ctx context.Context, userID, pin string) error {
	actor, err := security.CurrentActor(ctx)
	if err != nil {
		return err
	}
	if actor.UserID != userID && !actor.IsAdmin && !actor.HasRole(security.RoleAdmin) {
		return apperror.NewForbidden("cannot set another staff member's PIN")
	}
	if err := s.validatePIN(pin); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		staff, err := s.repo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		staff.PINHash = string(hash)
		staff.RecordSuccessfulPIN()
		staff.UpdatedAt = time.Now().UTC()
		return s.repo.Save(ctx, staff)
	})
}

func (s *Service) validatePIN(pin string) error {
	if len(pin) < s.config.PINMinLength {
		return apperror.NewValidation(fmt.Sprintf("PIN must be at least %d digits", s.config.PINMinLength)).
			WithDetail("field", "pin")
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			return apperror.NewValidation("PIN must contain digits only").WithDetail("field", "pin")
		}
	}
	return nil
}

// GetStaff retrieves a staff member.
func (s *Service) GetStaff(ctx context.Context, userID string) (*Staff, error) {
	return s.repo.GetByID(ctx, userID)
}

// ListStaff lists staff members.
func (s *Service) ListStaff(ctx context.Context, filter StaffFilter) ([]*Staff, error) {
	return s.repo.List(ctx, filter)
}

// Authorize implements security.Authorizer.
//
// Without an approver, or with the actor as approver, the actor's own token
// must grant the privilege. Another staff member approves by PIN; repeated
// wrong PINs lock that member's overrides for a while.
func (s *Service) Authorize(ctx context.Context, p security.Privilege, approver security.Approver) (string, error) {
	actor, err := security.CurrentActor(ctx)
	if err != nil {
		return "", err
	}
	if approver.UserID == "" || approver.UserID == actor.UserID {
		if !security.ActorHolds(actor, p) {
			return "", security.Forbidden(p)
		}
		return actor.UserID, nil
	}
	if approver.PIN == "" {
		return "", apperror.NewValidation("approver PIN is required").WithDetail("field", "approver.pin")
	}

	var (
		approvedBy string
		denied     error
	)
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		staff, err := s.repo.GetByID(ctx, approver.UserID)
		if err != nil {
			if apperror.IsNotFound(err) {
				denied = security.Forbidden(p)
				return nil
			}
			return err
		}
		if err := staff.CanApprove(); err != nil {
			denied = err
			return nil
		}
		if bcrypt.CompareHashAndPassword([]byte(staff.PINHash), []byte(approver.PIN)) != nil {
			staff.RecordFailedPIN(s.config.MaxPINAttempts, s.config.LockDuration)
			denied = apperror.NewForbidden("approver PIN does not match")
			return s.repo.Save(ctx, staff)
		}
		if staff.FailedPINAttempts > 0 {
			staff.RecordSuccessfulPIN()
			if err := s.repo.Save(ctx, staff); err != nil {
				return err
			}
		}
		if !staff.Holds(p) {
			denied = security.Forbidden(p)
			return nil
		}
		approvedBy = staff.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	if denied != nil {
		logger.Warn(ctx, "override denied", "approver", approver.UserID, "privilege", p, "reason", denied.Error())
		return "", denied
	}

	logger.Info(ctx, "override granted", "approver", approvedBy, "privilege", p)
	return approvedBy, nil
}

// staffAuditID derives a stable audit entity id from a staff user id.
func staffAuditID(userID string) id.ID {
	if parsed, err := id.Parse(userID); err == nil {
		return parsed
	}
	return id.NewFromName(userID)
}

var _ security.Authorizer = (*Service)(nil)
