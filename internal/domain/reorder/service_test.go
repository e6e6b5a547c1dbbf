package reorder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/app/apptest"
	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/documents/purchase_order"
	"pharmaledger/internal/domain/registers/stock"
	"pharmaledger/internal/domain/reorder"
)

type shelf struct {
	env      *apptest.Env
	supplier id.ID
	// low is auto-reordered from supplier, manual is flagged only,
	// orphan has no supplier and healthy is above minimum.
	low, manual, orphan, healthy id.ID
	lowBatch                     *stock.Batch
}

func newShelf(t *testing.T) *shelf {
	t.Helper()
	env := apptest.New(t)
	s := &shelf{
		env:      env,
		supplier: id.New(),
		low:      id.New(),
		manual:   id.New(),
		orphan:   id.New(),
		healthy:  id.New(),
	}
	s.lowBatch = env.Receive(s.low, apptest.BatchSpec{Code: "L", Quantity: 8, Expiry: apptest.Days(60)})
	env.Receive(s.healthy, apptest.BatchSpec{Code: "H", Quantity: 20, Expiry: apptest.Days(60)})

	ctx := env.Manager("m1")
	levels := []reorder.LevelInput{
		{ItemID: s.low, MinimumStock: 10, ReorderQuantity: 50, AutoReorder: true, PreferredSupplierID: &s.supplier, UnitCost: apptest.Money("0.80")},
		{ItemID: s.manual, MinimumStock: 3, ReorderQuantity: 10},
		{ItemID: s.orphan, MinimumStock: 1, ReorderQuantity: 5, AutoReorder: true},
		{ItemID: s.healthy, MinimumStock: 5, ReorderQuantity: 5, AutoReorder: true, PreferredSupplierID: &s.supplier},
	}
	for _, in := range levels {
		_, err := env.Services.Reorder.SetLevel(ctx, in)
		require.NoError(t, err)
	}
	return s
}

func TestAlerts(t *testing.T) {
	s := newShelf(t)

	alerts, err := s.env.Services.Reorder.Alerts(s.env.Ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 3)

	// Deepest shortfall first.
	assert.Equal(t, s.manual, alerts[0].ItemID)
	assert.Equal(t, s.low, alerts[1].ItemID)
	assert.Equal(t, types.Quantity(8), alerts[1].OnHand)
	assert.Equal(t, types.Quantity(10), alerts[1].MinimumStock)
	assert.Equal(t, s.orphan, alerts[2].ItemID)
	for _, a := range alerts {
		assert.Nil(t, a.OpenOrderID)
	}

	assert.Empty(t, s.env.Storage.Outbox.Events(s.env.Ctx))
}

func TestGeneratePurchaseOrders(t *testing.T) {
	s := newShelf(t)
	ctx := s.env.Manager("m1")

	res, err := s.env.Services.Reorder.GeneratePurchaseOrders(ctx)
	require.NoError(t, err)
	require.Len(t, res.OrderIDs, 1)
	assert.ElementsMatch(t, []reorder.SkippedItem{
		{ItemID: s.manual, Reason: reorder.SkipNotAutoReorder},
		{ItemID: s.orphan, Reason: reorder.SkipNoSupplier},
	}, res.Skipped)

	po, err := s.env.Services.Orders.GetByID(s.env.Ctx, res.OrderIDs[0])
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusDraft, po.Status)
	assert.Equal(t, purchase_order.SourceReorder, po.Source)
	assert.Equal(t, s.supplier, po.SupplierID)
	require.Len(t, po.Lines, 1)
	assert.Equal(t, s.low, po.Lines[0].ItemID)
	assert.Equal(t, types.Quantity(50), po.Lines[0].OrderedQuantity)
	assert.True(t, apptest.Money("0.80").Equal(po.Lines[0].UnitCost))

	t.Run("second run does not duplicate", func(t *testing.T) {
		again, err := s.env.Services.Reorder.GeneratePurchaseOrders(ctx)
		require.NoError(t, err)
		assert.Empty(t, again.OrderIDs)
		assert.Contains(t, again.Skipped, reorder.SkippedItem{ItemID: s.low, Reason: reorder.SkipOpenOrder})

		alerts, err := s.env.Services.Reorder.Alerts(s.env.Ctx)
		require.NoError(t, err)
		for _, a := range alerts {
			if a.ItemID == s.low {
				require.NotNil(t, a.OpenOrderID)
				assert.Equal(t, po.ID, *a.OpenOrderID)
			}
		}
	})

	t.Run("requires an actor", func(t *testing.T) {
		_, err := s.env.Services.Reorder.GeneratePurchaseOrders(s.env.Ctx)
		assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
	})
}

func TestGeneratePurchaseOrders_RetriedTransaction(t *testing.T) {
	s := newShelf(t)
	st := s.env.Storage
	txm := apptest.NewRetryingTx(st.TxManager)
	svc := reorder.NewService(st.Levels, s.env.Services.Stock, s.env.Services.Orders, st.Events, nil, txm, nil, reorder.Config{})

	res, err := svc.GeneratePurchaseOrders(s.env.Manager("m1"))
	require.NoError(t, err)
	assert.Equal(t, 2, txm.Attempts)
	require.Len(t, res.OrderIDs, 1)
	assert.Len(t, res.Skipped, 2)

	po, err := s.env.Services.Orders.GetByID(s.env.Ctx, res.OrderIDs[0])
	require.NoError(t, err)
	assert.Equal(t, s.supplier, po.SupplierID)
}

func TestScan_ReportsEachDropOnce(t *testing.T) {
	s := newShelf(t)
	ctx := s.env.Manager("m1")

	alerts, err := s.env.Services.Reorder.Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, alerts, 3)
	events := s.env.Storage.Outbox.Events(ctx)
	require.Len(t, events, 3)
	assert.Equal(t, reorder.EventLowStockDetected, events[0].EventType)
	assert.Equal(t, reorder.AggregateType, events[0].AggregateType)

	alerts, err = s.env.Services.Reorder.Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, alerts, 3)
	assert.Len(t, s.env.Storage.Outbox.Events(ctx), 3)

	// Back above minimum, then low again: reported anew.
	_, err = s.env.Services.Stock.Adjust(ctx, stock.AdjustRequest{BatchID: s.lowBatch.ID, Delta: 5,
		Ref: stock.Reference{Type: stock.RefAdjustment, ID: id.New()}})
	require.NoError(t, err)
	_, err = s.env.Services.Reorder.Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, s.env.Storage.Outbox.Events(ctx), 3)

	_, err = s.env.Services.Stock.Adjust(ctx, stock.AdjustRequest{BatchID: s.lowBatch.ID, Delta: -4,
		Ref: stock.Reference{Type: stock.RefAdjustment, ID: id.New()}})
	require.NoError(t, err)
	_, err = s.env.Services.Reorder.Scan(ctx)
	require.NoError(t, err)
	events = s.env.Storage.Outbox.Events(ctx)
	require.Len(t, events, 4)
	assert.Equal(t, s.low, events[3].AggregateID)
}

func TestSetLevel(t *testing.T) {
	env := apptest.New(t)
	ctx := env.Manager("m1")
	itemID := id.New()

	lvl, err := env.Services.Reorder.SetLevel(ctx, reorder.LevelInput{ItemID: itemID, MinimumStock: 4})
	require.NoError(t, err)
	assert.Equal(t, 1, lvl.Version)
	assert.Equal(t, "m1", lvl.UpdatedBy)

	lvl, err = env.Services.Reorder.SetLevel(ctx, reorder.LevelInput{ItemID: itemID, MinimumStock: 6})
	require.NoError(t, err)
	assert.Equal(t, 2, lvl.Version)

	got, err := env.Services.Reorder.GetLevel(env.Ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(6), got.MinimumStock)

	tests := []struct {
		name string
		in   reorder.LevelInput
	}{
		{"nil item", reorder.LevelInput{MinimumStock: 1}},
		{"negative minimum", reorder.LevelInput{ItemID: id.New(), MinimumStock: -1}},
		{"auto without quantity", reorder.LevelInput{ItemID: id.New(), AutoReorder: true}},
		{"negative cost", reorder.LevelInput{ItemID: id.New(), UnitCost: apptest.Money("-1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Services.Reorder.SetLevel(ctx, tt.in)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
		})
	}

	require.NoError(t, env.Services.Reorder.DeleteLevel(ctx, itemID))
	_, err = env.Services.Reorder.GetLevel(env.Ctx, itemID)
	assert.True(t, apperror.IsNotFound(err))
}
