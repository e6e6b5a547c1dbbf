package organization

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/tx"
	"pharmaledger/internal/domain/audit"
	"pharmaledger/pkg/logger"
)

// Service provides the organization settings.
type Service struct {
	repo      Repository
	txManager tx.Manager
	audit     audit.Logger
}

// NewService creates a new Organization service.
func NewService(repo Repository, txManager tx.Manager, auditLog audit.Logger) *Service {
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	return &Service{repo: repo, txManager: txManager, audit: auditLog}
}

// Get returns the organization settings.
func (s *Service) Get(ctx context.Context) (*Organization, error) {
	return s.repo.Get(ctx)
}

// TaxRate returns the configured sales tax in percent.
func (s *Service) TaxRate(ctx context.Context) (decimal.Decimal, error) {
	org, err := s.repo.Get(ctx)
	if err != nil {
		if apperror.IsNotFound(err) {
			return decimal.Zero, apperror.NewInvariantViolation("organization settings are not configured")
		}
		return decimal.Zero, err
	}
	return org.TaxRate, nil
}

// UpdateInput replaces the organization settings.
type UpdateInput struct {
	Name      string
	LegalName string
	TaxID     *string
	TaxRate   decimal.Decimal
	Currency  string
}

// Update creates or replaces the settings.
func (s *Service) Update(ctx context.Context, in UpdateInput) (*Organization, error) {
	var org *Organization
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.Get(ctx)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}

		org = &Organization{ID: id.New()}
		if existing != nil {
			org.ID = existing.ID
			org.Version = existing.Version
		}
		org.Name = strings.TrimSpace(in.Name)
		org.LegalName = strings.TrimSpace(in.LegalName)
		org.TaxID = in.TaxID
		org.TaxRate = in.TaxRate
		org.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
		org.UpdatedAt = time.Now().UTC()
		audit.EnrichUpdatedByDirect(ctx, &org.UpdatedBy)
		if err := org.Validate(); err != nil {
			return err
		}

		if err := s.repo.Save(ctx, org); err != nil {
			return err
		}
		if existing == nil {
			return s.audit.LogCreate(ctx, audit.EntityOrganization, org.ID, org)
		}
		return s.audit.LogUpdate(ctx, audit.EntityOrganization, org.ID, existing, org)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "organization settings updated", "tax_rate", org.TaxRate.String())
	return org, nil
}
