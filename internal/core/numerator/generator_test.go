package numerator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	period := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cfg  Config
		num  int64
		want string
	}{
		{"yearly", DefaultConfig(PrefixSale), 7, "SAL-2026-00007"},
		{"no year", Config{Prefix: PrefixPurchaseOrder, PadWidth: 4}, 12, "PO-0012"},
		{"default pad", Config{Prefix: PrefixRefund, IncludeYear: true}, 1, "RFD-2026-00001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.cfg, period, tt.num))
		})
	}

}

func TestSequenceKey(t *testing.T) {
	period := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "SAL_2026", SequenceKey(DefaultConfig("SAL"), period))
	assert.Equal(t, "SAL_2026_03", SequenceKey(Config{Prefix: "SAL", ResetPeriod: "month"}, period))
	assert.Equal(t, "SAL", SequenceKey(Config{Prefix: "SAL", ResetPeriod: "never"}, period))
}

func TestInMemory(t *testing.T) {
	g := NewInMemory()
	ctx := context.Background()
	period := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	cfg := DefaultConfig(PrefixSale)

	n1, err := g.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	n2, err := g.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "SAL-2026-00001", n1)
	assert.Equal(t, "SAL-2026-00002", n2)

	require.NoError(t, g.SetNextNumber(ctx, cfg, period, 100))
	n3, _ := g.GetNextNumber(ctx, cfg, nil, period)
	assert.Equal(t, "SAL-2026-00101", n3)
}
