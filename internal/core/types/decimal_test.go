package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentRoundsHalfUp(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		pct    string
		want   string
	}{
		{"exact", "100.00", "10", "10"},
		{"half cent rounds up", "0.25", "10", "0.03"},
		{"below half rounds down", "0.24", "10", "0.02"},
		{"fractional rate", "19.99", "7.5", "1.5"},
		{"zero rate", "50.00", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percent(MustMoney(tt.amount), decimal.RequireFromString(tt.pct))
			assert.True(t, MustMoney(tt.want).Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestLineAmount(t *testing.T) {
	got := LineAmount(3, MustMoney("1.335"))
	assert.Equal(t, "4.01", got.StringFixed(2))
}

func TestQuantityJSON(t *testing.T) {
	var q Quantity
	require.NoError(t, json.Unmarshal([]byte(`12`), &q))
	assert.Equal(t, Quantity(12), q)

	require.NoError(t, json.Unmarshal([]byte(`"7"`), &q))
	assert.Equal(t, Quantity(7), q)

	require.NoError(t, json.Unmarshal([]byte(`4.0`), &q))
	assert.Equal(t, Quantity(4), q)

	assert.Error(t, json.Unmarshal([]byte(`2.5`), &q))
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &q))

	out, err := json.Marshal(Quantity(-3))
	require.NoError(t, err)
	assert.Equal(t, `-3`, string(out))
}
