package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrator_Load(t *testing.T) {
	m := &Migrator{files: migrationFiles}

	migrations, err := m.Load()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, mig := range migrations {
		assert.Equal(t, i+1, mig.Version, mig.Name)
		assert.NotEmpty(t, strings.TrimSpace(mig.SQL), mig.Name)
	}

	var all strings.Builder
	for _, mig := range migrations {
		all.WriteString(mig.SQL)
	}
	schema := all.String()

	for _, object := range []string{
		"sys_audit", "sys_outbox", "sys_outbox_dlq", "sys_idempotency", "sys_sequences",
		"reg_stock_batches", "reg_stock_movements",
		"doc_sales_number_key", "doc_refunds_number_key", "doc_purchase_orders_number_key",
		"doc_purchase_receipts_number_key", "doc_stock_adjustments_number_key",
		"doc_cash_sessions_open_drawer_idx",
	} {
		t.Run(object, func(t *testing.T) {
			assert.Contains(t, schema, object)
		})
	}
}
