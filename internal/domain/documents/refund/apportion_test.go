package refund

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/documents/sale"
	"pharmaledger/internal/domain/registers/stock"
)

func TestLineShares_LastLineAbsorbsRounding(t *testing.T) {
	a, b := id.New(), id.New()
	doc := &sale.Sale{
		Subtotal: types.MustMoney("10.00"),
		Total:    types.MustMoney("11.00"),
		Lines: []sale.Line{
			{ID: a, Subtotal: types.MustMoney("3.33")},
			{ID: b, Subtotal: types.MustMoney("6.67")},
		},
	}

	shares := lineShares(doc)
	assert.True(t, types.MustMoney("3.66").Equal(shares[a]), "got %s", shares[a])
	assert.True(t, types.MustMoney("7.34").Equal(shares[b]), "got %s", shares[b])
}

func TestProratedAmount_UnitsSumToShare(t *testing.T) {
	share := types.MustMoney("10.00")
	total := types.Zero()
	var got []string
	for refunded := types.Quantity(0); refunded < 3; refunded++ {
		amt := proratedAmount(share, 3, refunded, 1)
		got = append(got, amt.StringFixed(2))
		total = total.Add(amt)
	}
	assert.Equal(t, []string{"3.33", "3.34", "3.33"}, got)
	assert.True(t, share.Equal(total))

	assert.True(t, share.Equal(proratedAmount(share, 3, 0, 3)))
	assert.True(t, proratedAmount(share, 0, 0, 1).IsZero())
}

func TestSpread(t *testing.T) {
	a, b, c := id.New(), id.New(), id.New()
	tests := []struct {
		name string
		qty  types.Quantity
		caps []capacity
		want []Allocation
	}{
		{
			name: "single batch",
			qty:  2,
			caps: []capacity{{a, 4}},
			want: []Allocation{{a, 2}},
		},
		{
			name: "tie goes to earlier batch",
			qty:  3,
			caps: []capacity{{a, 2}, {b, 2}},
			want: []Allocation{{a, 2}, {b, 1}},
		},
		{
			name: "proportional with remainder",
			qty:  5,
			caps: []capacity{{a, 6}, {b, 3}, {c, 1}},
			want: []Allocation{{a, 3}, {b, 2}},
		},
		{
			name: "everything",
			qty:  4,
			caps: []capacity{{a, 3}, {b, 1}},
			want: []Allocation{{a, 3}, {b, 1}},
		},
		{
			name: "no capacity",
			qty:  1,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, spread(tt.qty, tt.caps))
		})
	}
}

func TestBatchCapacities_SubtractsPriorAttributions(t *testing.T) {
	a, b := id.New(), id.New()
	line := &sale.Line{
		ID: id.New(),
		Allocations: []stock.Allocation{
			{BatchID: a, Quantity: 3},
			{BatchID: b, Quantity: 1},
		},
	}
	prior := []Line{
		{SaleLineID: line.ID, Allocations: []Allocation{{BatchID: a, Quantity: 2}}},
		{SaleLineID: id.New(), Allocations: []Allocation{{BatchID: b, Quantity: 1}}},
	}

	assert.Equal(t, []capacity{{a, 1}, {b, 1}}, batchCapacities(line, prior))
}
