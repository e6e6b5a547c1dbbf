package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain"
)

var testSpec = ListSpec{
	SearchColumn: "number",
	DateColumn:   "date",
	Sortable:     []string{"number", "date"},
	DefaultOrder: "date DESC",
	TieBreaker:   "id DESC",
}

func TestParseOrderBy(t *testing.T) {
	tests := []struct {
		name    string
		orderBy string
		want    string
		wantErr bool
	}{
		{name: "default", orderBy: "", want: "date DESC, id DESC"},
		{name: "ascending", orderBy: "number", want: "number ASC, id DESC"},
		{name: "explicit ascending", orderBy: "+number", want: "number ASC, id DESC"},
		{name: "descending", orderBy: "-date", want: "date DESC, id DESC"},
		{name: "unknown column", orderBy: "-total; DROP TABLE x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOrderBy(tt.orderBy, testSpec)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyListFilter(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	docID := id.New()

	tests := []struct {
		name     string
		filter   domain.ListFilter
		spec     ListSpec
		wantSQL  string
		wantArgs int
	}{
		{
			name:    "empty filter",
			spec:    testSpec,
			wantSQL: "SELECT id FROM doc_sales",
		},
		{
			name:     "search and dates",
			filter:   domain.ListFilter{Search: "S-0", DateFrom: &from, DateTo: &to},
			spec:     testSpec,
			wantSQL:  "SELECT id FROM doc_sales WHERE number ILIKE $1 AND date >= $2 AND date < $3",
			wantArgs: 3,
		},
		{
			name:     "ids on custom column",
			filter:   domain.ListFilter{IDs: []id.ID{docID}},
			spec:     ListSpec{IDColumn: "item_id"},
			wantSQL:  "SELECT id FROM doc_sales WHERE item_id IN ($1)",
			wantArgs: 1,
		},
		{
			name:    "search ignored without column",
			filter:  domain.ListFilter{Search: "x", DateFrom: &from},
			spec:    ListSpec{},
			wantSQL: "SELECT id FROM doc_sales",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ApplyListFilter(Builder().Select("id").From("doc_sales"), tt.filter, tt.spec)
			sql, args, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Len(t, args, tt.wantArgs)
		})
	}
}
