package sale

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
)

func money(s string) types.Money { return types.MustMoney(s) }

func pct(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestComputeTotals(t *testing.T) {
	lines := []LineRequest{
		{ItemID: id.New(), Quantity: 2, UnitPrice: money("5.00")},
		{ItemID: id.New(), Quantity: 1, UnitPrice: money("3.50")},
	}
	amount := money("1.00")

	tests := []struct {
		name     string
		discount Discount
		rate     string
		want     Totals
	}{
		{
			name: "no discount, no tax",
			rate: "0",
			want: Totals{Subtotal: money("13.50"), Discount: money("0"), Tax: money("0"), Total: money("13.50")},
		},
		{
			name:     "percent discount with tax rounds half up",
			discount: Discount{Percent: pct("10")},
			rate:     "10",
			want:     Totals{Subtotal: money("13.50"), Discount: money("1.35"), Tax: money("1.22"), Total: money("13.37")},
		},
		{
			name:     "fixed discount",
			discount: Discount{Amount: &amount},
			rate:     "8",
			want:     Totals{Subtotal: money("13.50"), Discount: money("1.00"), Tax: money("1.00"), Total: money("13.50")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeTotals(lines, tt.discount, decimal.RequireFromString(tt.rate))
			require.NoError(t, err)
			assert.True(t, tt.want.Subtotal.Equal(got.Subtotal), "subtotal %s", got.Subtotal)
			assert.True(t, tt.want.Discount.Equal(got.Discount), "discount %s", got.Discount)
			assert.True(t, tt.want.Tax.Equal(got.Tax), "tax %s", got.Tax)
			assert.True(t, tt.want.Total.Equal(got.Total), "total %s", got.Total)
		})
	}
}

func TestComputeTotals_InvalidDiscount(t *testing.T) {
	lines := []LineRequest{{ItemID: id.New(), Quantity: 1, UnitPrice: money("10")}}
	tooMuch := money("10.01")
	negative := money("-1")

	tests := []struct {
		name     string
		discount Discount
	}{
		{"both kinds", Discount{Amount: &negative, Percent: pct("5")}},
		{"negative amount", Discount{Amount: &negative}},
		{"exceeds subtotal", Discount{Amount: &tooMuch}},
		{"percent over 100", Discount{Percent: pct("100.5")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeTotals(lines, tt.discount, decimal.Zero)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
		})
	}
}

func TestSettlePayment(t *testing.T) {
	total := money("13.37")

	t.Run("cash gives change", func(t *testing.T) {
		p, err := SettlePayment(PaymentCash, money("20"), total)
		require.NoError(t, err)
		assert.True(t, money("6.63").Equal(p.Change))
	})

	t.Run("cash short", func(t *testing.T) {
		_, err := SettlePayment(PaymentCash, money("13.36"), total)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("card settles exact total", func(t *testing.T) {
		p, err := SettlePayment(PaymentCard, money("0"), total)
		require.NoError(t, err)
		assert.True(t, total.Equal(p.Tendered))
		assert.True(t, p.Change.IsZero())
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := SettlePayment(PaymentMethod("cheque"), total, total)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})
}
