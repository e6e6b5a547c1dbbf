package organization_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/app/apptest"
	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/domain/catalogs/organization"
)

func TestUpdate(t *testing.T) {
	env := apptest.New(t)
	svc := env.Services.Organization

	_, err := svc.TaxRate(env.Ctx)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))

	first, err := svc.Update(env.Admin(), organization.UpdateInput{Name: "Corner Pharmacy", TaxRate: decimal.RequireFromString("7.5"), Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, "USD", first.Currency)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, "admin", first.UpdatedBy)

	second, err := svc.Update(env.Admin(), organization.UpdateInput{Name: "Corner Pharmacy", TaxRate: decimal.RequireFromString("8"), Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Version)

	rate, err := svc.TaxRate(env.Ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(8).Equal(rate))

	tests := []struct {
		name string
		in   organization.UpdateInput
	}{
		{"missing name", organization.UpdateInput{TaxRate: decimal.Zero, Currency: "USD"}},
		{"negative rate", organization.UpdateInput{Name: "x", TaxRate: decimal.NewFromInt(-1), Currency: "USD"}},
		{"rate over 100", organization.UpdateInput{Name: "x", TaxRate: decimal.NewFromInt(101), Currency: "USD"}},
		{"bad currency", organization.UpdateInput{Name: "x", TaxRate: decimal.Zero, Currency: "DOLLAR"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(env.Admin(), tt.in)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
		})
	}
}
