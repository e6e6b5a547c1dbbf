package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/registers/stock"
)

func TestWriteMovements(t *testing.T) {
	lineID := id.New()
	movements := []stock.Movement{
		{
			ID: id.New(), ItemID: id.New(), BatchID: id.New(),
			Kind: stock.KindSale, Quantity: 3, Delta: -3,
			ReferenceType: stock.RefSale, ReferenceID: id.New(), ReferenceLineID: &lineID,
			ActorID: "cashier-1", CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			ID: id.New(), ItemID: id.New(), BatchID: id.New(),
			Kind: stock.KindAdjustment, Quantity: 2, Delta: 2,
			ReferenceType: stock.RefAdjustment, ReferenceID: id.New(),
			ActorID: "manager-1", Reason: "count", CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMovements(&buf, movements))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(movementsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, movementHeadings, rows[0])
	assert.Equal(t, "2026-03-01T09:30:00Z", rows[1][0])
	assert.Equal(t, string(stock.KindSale), rows[1][1])
	assert.Equal(t, "-3", rows[1][5])
	assert.Equal(t, lineID.String(), rows[1][8])
	assert.Equal(t, "count", rows[2][10])
}

func TestWriteMovements_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMovements(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(movementsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
