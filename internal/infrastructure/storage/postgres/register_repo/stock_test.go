package register_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

func TestStockRepo_AllocationQuery(t *testing.T) {
	repo := &StockRepo{builder: postgres.Builder()}
	itemID := id.New()
	asOf := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		expiresAfter *time.Time
		wantWhere    string
		wantArgs     int
	}{
		{
			name:      "expired batches allowed",
			wantWhere: "WHERE item_id = $1 AND remaining_quantity > $2 ORDER BY",
			wantArgs:  2,
		},
		{
			name:         "only unexpired",
			expiresAfter: &asOf,
			wantWhere:    "WHERE item_id = $1 AND remaining_quantity > $2 AND expiry_date > $3 ORDER BY",
			wantArgs:     3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.allocationQuery(itemID, tt.expiresAfter).ToSql()
			require.NoError(t, err)

			assert.Contains(t, sql, "FROM reg_stock_batches")
			assert.Contains(t, sql, tt.wantWhere)
			assert.True(t, strings.HasSuffix(sql, "ORDER BY expiry_date, received_at, id FOR UPDATE"), sql)
			assert.Len(t, args, tt.wantArgs)
		})
	}
}

func TestMovementColumnsMatchCopyRow(t *testing.T) {
	assert.Equal(t, []string{
		"id", "item_id", "batch_id", "kind", "quantity", "delta",
		"reference_type", "reference_id", "reference_line_id",
		"actor_id", "reason", "created_at",
	}, movementCols)
}
