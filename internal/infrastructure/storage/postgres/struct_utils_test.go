package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pharmaledger/internal/core/entity"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
)

type mockDocument struct {
	entity.Document
	CashierID string         `db:"cashier_id"`
	Quantity  types.Quantity `db:"quantity"`
	Lines     []string       `db:"-"`
	scratch   int
}

func TestExtractDBColumns_EmbeddedDocument(t *testing.T) {
	cols := ExtractDBColumns[mockDocument]()

	assert.Equal(t, []string{
		"id", "version", "created_at", "updated_at", "created_by", "updated_by",
		"number", "date", "comment",
		"cashier_id", "quantity",
	}, cols)
	assert.NotContains(t, cols, "lines")
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	doc := mockDocument{
		Document: entity.Document{
			BaseDocument: entity.BaseDocument{
				BaseEntity: entity.BaseEntity{ID: id.New(), Version: 5},
				CreatedAt:  now,
			},
			Number: "SAL-2026-00001",
		},
		CashierID: "c1",
		Quantity:  3,
		Lines:     []string{"ignored"},
		scratch:   9,
	}

	m := StructToMap(&doc)

	assert.Equal(t, doc.ID, m["id"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, now, m["created_at"])
	assert.Equal(t, "SAL-2026-00001", m["number"])
	assert.Equal(t, "c1", m["cashier_id"])
	assert.Equal(t, types.Quantity(3), m["quantity"])
	assert.NotContains(t, m, "lines")
	assert.Len(t, m, 11)
}

func TestColumnsExcept(t *testing.T) {
	tests := []struct {
		name   string
		cols   []string
		except []string
		want   []string
	}{
		{"none", []string{"a", "b"}, nil, []string{"a", "b"}},
		{"some", []string{"id", "version", "name"}, []string{"id", "version"}, []string{"name"}},
		{"unknown", []string{"a"}, []string{"z"}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ColumnsExcept(tt.cols, tt.except...))
		})
	}
}
