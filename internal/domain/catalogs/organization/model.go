// Package organization holds the pharmacy's organization settings, including
// the sales tax rate applied at checkout.
package organization

import (
	"time"

	"github.com/shopspring/decimal"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
)

// Organization is the single legal entity operating the ledger.
type Organization struct {
	ID        id.ID  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	LegalName string `db:"legal_name" json:"legalName,omitempty"`

	// TaxID is the registration number printed on receipts
	TaxID *string `db:"tax_id" json:"taxId,omitempty"`

	// TaxRate is the sales tax in percent, e.g. 7.5
	TaxRate decimal.Decimal `db:"tax_rate" json:"taxRate"`

	Currency  string    `db:"currency" json:"currency"`
	Version   int       `db:"version" json:"version"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

var maxTaxRate = decimal.NewFromInt(100)

// Validate checks the settings.
func (o *Organization) Validate() error {
	if o.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if o.TaxRate.IsNegative() || o.TaxRate.GreaterThan(maxTaxRate) {
		return apperror.NewValidation("tax rate must be between 0 and 100").WithDetail("field", "taxRate")
	}
	if len(o.Currency) != 3 {
		return apperror.NewValidation("currency must be an ISO 4217 code").WithDetail("field", "currency")
	}
	return nil
}
