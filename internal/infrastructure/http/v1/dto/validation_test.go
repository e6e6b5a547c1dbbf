package dto_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/infrastructure/http/v1/dto"
)

type decimalFields struct {
	Tendered decimal.Decimal `validate:"decimal_gte0"`
	Amount   decimal.Decimal `validate:"decimal_gt0"`
	Rate     decimal.Decimal `validate:"percent"`
}

func TestRegisterOn(t *testing.T) {
	v := validator.New()
	require.NoError(t, dto.RegisterOn(v))

	valid := decimalFields{
		Tendered: decimal.Zero,
		Amount:   decimal.RequireFromString("0.01"),
		Rate:     decimal.RequireFromString("100"),
	}

	tests := []struct {
		name  string
		edit  func(*decimalFields)
		field string
	}{
		{name: "valid", edit: func(*decimalFields) {}},
		{name: "negative tendered", edit: func(f *decimalFields) { f.Tendered = decimal.RequireFromString("-1") }, field: "Tendered"},
		{name: "zero amount", edit: func(f *decimalFields) { f.Amount = decimal.Zero }, field: "Amount"},
		{name: "rate above 100", edit: func(f *decimalFields) { f.Rate = decimal.RequireFromString("100.5") }, field: "Rate"},
		{name: "negative rate", edit: func(f *decimalFields) { f.Rate = decimal.RequireFromString("-0.1") }, field: "Rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.edit(&in)
			err := v.Struct(in)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field())
		})
	}
}

func TestRegisterValidators_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		dto.RegisterValidators()
		dto.RegisterValidators()
	})
}
