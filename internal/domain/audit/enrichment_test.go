package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "pharmaledger/internal/core/context"
)

func TestDiff(t *testing.T) {
	before := map[string]any{"status": "completed", "total": "10.00", "note": "x"}
	after := map[string]any{"status": "voided", "total": "10.00", "voided_by": "m1"}

	changes := Diff(before, after)

	assert.Len(t, changes, 3)
	assert.Equal(t, map[string]any{"old": "completed", "new": "voided"}, changes["status"])
	assert.Equal(t, map[string]any{"old": nil, "new": "m1"}, changes["voided_by"])
	assert.Equal(t, map[string]any{"old": "x", "new": nil}, changes["note"])
	assert.NotContains(t, changes, "total")
}

func TestSnapshot(t *testing.T) {
	type doc struct {
		Status string `json:"status"`
		Lines  []int  `json:"lines"`
	}
	snap, err := Snapshot(doc{Status: "open", Lines: []int{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, "open", snap["status"])
	assert.Equal(t, []any{float64(1), float64(2)}, snap["lines"])

	snap, err = Snapshot(nil)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestEnrichCreatedByDirect(t *testing.T) {
	var created, updated string
	EnrichCreatedByDirect(context.Background(), &created, &updated)
	assert.Empty(t, created)

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u1"})
	EnrichCreatedByDirect(ctx, &created, &updated)
	assert.Equal(t, "u1", created)
	assert.Equal(t, "u1", updated)
}
