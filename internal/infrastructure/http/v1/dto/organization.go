package dto

import (
	"github.com/shopspring/decimal"

	"pharmaledger/internal/domain/catalogs/organization"
)

// UpdateOrganizationRequest replaces the organization settings.
type UpdateOrganizationRequest struct {
	Name      string          `json:"name" binding:"required,max=200"`
	LegalName string          `json:"legalName" binding:"max=200"`
	TaxID     *string         `json:"taxId" binding:"omitempty,max=64"`
	TaxRate   decimal.Decimal `json:"taxRate" binding:"percent"`
	Currency  string          `json:"currency" binding:"required,len=3,uppercase"`
}

func (r UpdateOrganizationRequest) ToDomain() organization.UpdateInput {
	return organization.UpdateInput{
		Name:      r.Name,
		LegalName: r.LegalName,
		TaxID:     r.TaxID,
		TaxRate:   r.TaxRate,
		Currency:  r.Currency,
	}
}
