package stock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/app/apptest"
	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/registers/stock"
)

func allocate(t *testing.T, env *apptest.Env, itemID id.ID, qty types.Quantity, allowExpired bool) ([]stock.Allocation, error) {
	t.Helper()
	return env.Services.Stock.Allocate(env.Cashier("c1"), stock.AllocateRequest{
		ItemID:       itemID,
		Quantity:     qty,
		AllowExpired: allowExpired,
		Ref:          stock.Reference{Type: stock.RefSale, ID: id.New()},
	})
}

func TestAllocate_FEFO(t *testing.T) {
	env := apptest.New(t)
	itemID := id.New()
	late := env.Receive(itemID, apptest.BatchSpec{Code: "LATE", Quantity: 10, Expiry: apptest.Days(90)})
	early := env.Receive(itemID, apptest.BatchSpec{Code: "EARLY", Quantity: 4, Expiry: apptest.Days(30)})

	allocs, err := allocate(t, env, itemID, 6, false)
	require.NoError(t, err)
	require.Len(t, allocs, 2)

	assert.Equal(t, early.ID, allocs[0].BatchID)
	assert.Equal(t, types.Quantity(4), allocs[0].Quantity)
	assert.Equal(t, late.ID, allocs[1].BatchID)
	assert.Equal(t, types.Quantity(2), allocs[1].Quantity)

	assert.Equal(t, types.Quantity(0), env.Remaining(early.ID))
	assert.Equal(t, types.Quantity(8), env.Remaining(late.ID))
}

func TestAllocate_InsufficientStockChangesNothing(t *testing.T) {
	env := apptest.New(t)
	itemID := id.New()
	a := env.Receive(itemID, apptest.BatchSpec{Code: "A", Quantity: 3, Expiry: apptest.Days(30)})
	b := env.Receive(itemID, apptest.BatchSpec{Code: "B", Quantity: 2, Expiry: apptest.Days(60)})

	_, err := allocate(t, env, itemID, 6, false)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	assert.Equal(t, types.Quantity(3), env.Remaining(a.ID))
	assert.Equal(t, types.Quantity(2), env.Remaining(b.ID))

	sales := stock.KindSale
	moves, err := env.Services.Stock.ListMovements(env.Ctx, stock.MovementFilter{ItemID: &itemID, Kind: &sales})
	require.NoError(t, err)
	assert.Empty(t, moves.Items)
}

func TestAllocate_RetriedTransactionReportsCommittedAttempt(t *testing.T) {
	env := apptest.New(t)
	itemID := id.New()
	b := env.Receive(itemID, apptest.BatchSpec{Code: "B1", Quantity: 10, Expiry: apptest.Days(30)})

	txm := apptest.NewRetryingTx(env.Storage.TxManager)
	svc := stock.NewService(env.Storage.Stock, txm, nil)

	allocs, err := svc.Allocate(env.Cashier("c1"), stock.AllocateRequest{
		ItemID:   itemID,
		Quantity: 4,
		Ref:      stock.Reference{Type: stock.RefSale, ID: id.New()},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, txm.Attempts)
	require.Len(t, allocs, 1)
	assert.Equal(t, types.Quantity(4), allocs[0].Quantity)
	assert.Equal(t, types.Quantity(6), env.Remaining(b.ID))
}

func TestAllocate_ExpiredBatches(t *testing.T) {
	env := apptest.New(t)
	itemID := id.New()
	expired := env.Receive(itemID, apptest.BatchSpec{Code: "OLD", Quantity: 5, Expiry: apptest.Days(-1)})
	expiresToday := env.Receive(itemID, apptest.BatchSpec{Code: "TODAY", Quantity: 5, Expiry: apptest.Days(0)})
	fresh := env.Receive(itemID, apptest.BatchSpec{Code: "NEW", Quantity: 2, Expiry: apptest.Days(10)})

	t.Run("excluded by default", func(t *testing.T) {
		_, err := allocate(t, env, itemID, 3, false)
		assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
		assert.Equal(t, types.Quantity(2), env.Remaining(fresh.ID))
	})

	t.Run("allowed when requested", func(t *testing.T) {
		allocs, err := allocate(t, env, itemID, 6, true)
		require.NoError(t, err)
		require.Len(t, allocs, 2)
		assert.Equal(t, expired.ID, allocs[0].BatchID)
		assert.Equal(t, expiresToday.ID, allocs[1].BatchID)
		assert.Equal(t, types.Quantity(1), allocs[1].Quantity)
	})
}

func TestAllocate_Validation(t *testing.T) {
	env := apptest.New(t)
	tests := []struct {
		name   string
		itemID id.ID
		qty    types.Quantity
	}{
		{"nil item", id.Nil(), 1},
		{"zero quantity", id.New(), 0},
		{"negative quantity", id.New(), -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := allocate(t, env, tt.itemID, tt.qty, false)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
		})
	}
}

func TestRestoreDrainAndReconcile(t *testing.T) {
	env := apptest.New(t)
	itemID := id.New()
	b := env.Receive(itemID, apptest.BatchSpec{Code: "B1", Quantity: 10, Expiry: apptest.Days(30)})
	ctx := env.Manager("m1")
	ref := stock.Reference{Type: stock.RefRefund, ID: id.New()}

	_, err := allocate(t, env, itemID, 7, false)
	require.NoError(t, err)

	_, err = env.Services.Stock.Restore(ctx, stock.BatchChange{BatchID: b.ID, Quantity: 2, Kind: stock.KindRefund, Ref: ref})
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(5), env.Remaining(b.ID))

	_, err = env.Services.Stock.Drain(ctx, stock.BatchChange{BatchID: b.ID, Quantity: 6, Kind: stock.KindRefundReversal, Ref: ref})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	_, err = env.Services.Stock.Drain(ctx, stock.BatchChange{BatchID: b.ID, Quantity: 2, Kind: stock.KindRefundReversal, Ref: ref})
	require.NoError(t, err)

	require.NoError(t, env.Services.Stock.RecordNoRestock(ctx, b.ID, 1, ref))

	rec, err := env.Services.Stock.Reconcile(env.Ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.Equal(t, types.Quantity(3), rec.RemainingQuantity)
	assert.Equal(t, types.Quantity(3), rec.MovementTotal)
}

func TestRestore_RejectsWrongKind(t *testing.T) {
	env := apptest.New(t)
	b := env.Receive(id.New(), apptest.BatchSpec{Code: "B1", Quantity: 1, Expiry: apptest.Days(30)})

	_, err := env.Services.Stock.Restore(env.Admin(), stock.BatchChange{BatchID: b.ID, Quantity: 1, Kind: stock.KindSale})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestAdjust_NeverNegative(t *testing.T) {
	env := apptest.New(t)
	b := env.Receive(id.New(), apptest.BatchSpec{Code: "B1", Quantity: 3, Expiry: apptest.Days(30)})
	ctx := env.Manager("m1")

	_, err := env.Services.Stock.Adjust(ctx, stock.AdjustRequest{BatchID: b.ID, Delta: -4})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	updated, err := env.Services.Stock.Adjust(ctx, stock.AdjustRequest{BatchID: b.ID, Delta: -3})
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(0), updated.RemainingQuantity)
}

func TestReceive_Validation(t *testing.T) {
	base := stock.ReceiveInput{
		ItemID:     id.New(),
		BatchCode:  "B",
		ExpiryDate: apptest.Days(10),
		Quantity:   1,
		UnitCost:   apptest.Money("1"),
		UnitPrice:  apptest.Money("2"),
	}
	before := apptest.Days(20)
	tests := []struct {
		name   string
		mutate func(in *stock.ReceiveInput)
	}{
		{"missing code", func(in *stock.ReceiveInput) { in.BatchCode = "" }},
		{"missing expiry", func(in *stock.ReceiveInput) { in.ExpiryDate = time.Time{} }},
		{"zero quantity", func(in *stock.ReceiveInput) { in.Quantity = 0 }},
		{"negative cost", func(in *stock.ReceiveInput) { in.UnitCost = apptest.Money("-1") }},
		{"manufactured after expiry", func(in *stock.ReceiveInput) { in.ManufactureDate = &before }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			assert.True(t, apperror.HasCode(in.Validate(), apperror.CodeValidation))
		})
	}
}

func TestOnHandMany_MissingItemsAreZero(t *testing.T) {
	env := apptest.New(t)
	stocked, missing := id.New(), id.New()
	env.Receive(stocked, apptest.BatchSpec{Code: "A", Quantity: 4, Expiry: apptest.Days(10)})
	env.Receive(stocked, apptest.BatchSpec{Code: "B", Quantity: 6, Expiry: apptest.Days(-10)})

	got, err := env.Services.Stock.OnHandMany(env.Ctx, []id.ID{stocked, missing})
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(10), got[stocked])
	assert.Equal(t, types.Quantity(0), got[missing])
}
