package purchase_order_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/app/apptest"
	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/security"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/documents/purchase_order"
	"pharmaledger/internal/domain/registers/stock"
)

func draftOrder(t *testing.T, env *apptest.Env, itemID id.ID, qty types.Quantity) *purchase_order.PurchaseOrder {
	t.Helper()
	po, err := env.Services.Orders.Create(env.As("p1", security.RolePharmacist), purchase_order.CreateRequest{
		SupplierID: id.New(),
		Lines:      []purchase_order.LineRequest{{ItemID: itemID, Quantity: qty, UnitCost: apptest.Money("1.25")}},
	})
	require.NoError(t, err)
	return po
}

func approvedOrder(t *testing.T, env *apptest.Env, itemID id.ID, qty types.Quantity) *purchase_order.PurchaseOrder {
	t.Helper()
	po := draftOrder(t, env, itemID, qty)
	po, err := env.Services.Orders.Approve(env.Manager("m1"), po.ID, security.Approver{})
	require.NoError(t, err)
	return po
}

func delivery(lineID id.ID, code string, qty types.Quantity) purchase_order.ReceiveLine {
	return purchase_order.ReceiveLine{
		PurchaseOrderLineID: lineID,
		Quantity:            qty,
		BatchCode:           code,
		ExpiryDate:          apptest.Days(365),
		UnitPrice:           apptest.Money("3.00"),
	}
}

func TestCreate(t *testing.T) {
	env := apptest.New(t)
	po := draftOrder(t, env, id.New(), 8)

	assert.Equal(t, purchase_order.StatusDraft, po.Status)
	assert.Equal(t, purchase_order.SourceManual, po.Source)
	assert.NotEmpty(t, po.Number)
	assert.Equal(t, "p1", po.CreatedBy)
	assert.True(t, apptest.Money("10.00").Equal(po.TotalAmount))

	t.Run("rejects an order without lines", func(t *testing.T) {
		_, err := env.Services.Orders.Create(env.Manager("m1"), purchase_order.CreateRequest{SupplierID: id.New()})
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("rejects a missing supplier", func(t *testing.T) {
		_, err := env.Services.Orders.Create(env.Manager("m1"), purchase_order.CreateRequest{
			Lines: []purchase_order.LineRequest{{ItemID: id.New(), Quantity: 1}},
		})
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})
}

func TestApprove(t *testing.T) {
	env := apptest.New(t)

	tests := []struct {
		name string
		ctx  func() context.Context
		code string
	}{
		{"cashier is forbidden", func() context.Context { return env.Cashier("c1") }, apperror.CodeForbidden},
		{"pharmacist approves", func() context.Context { return env.As("p2", security.RolePharmacist) }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			po := draftOrder(t, env, id.New(), 1)
			got, err := env.Services.Orders.Approve(tt.ctx(), po.ID, security.Approver{})
			if tt.code != "" {
				assert.True(t, apperror.HasCode(err, tt.code))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, purchase_order.StatusApproved, got.Status)
			assert.Equal(t, "p2", got.ApprovedBy)
			assert.NotNil(t, got.ApprovedAt)
			assert.Len(t, got.Lines, 1)
		})
	}

	t.Run("only drafts", func(t *testing.T) {
		po := approvedOrder(t, env, id.New(), 1)
		_, err := env.Services.Orders.Approve(env.Manager("m1"), po.ID, security.Approver{})
		assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))
	})
}

func TestReceive_PartialThenFull(t *testing.T) {
	env := apptest.New(t)
	itemID := id.New()
	po := approvedOrder(t, env, itemID, 50)
	lineID := po.Lines[0].ID

	first, err := env.Services.Orders.Receive(env.As("p1", security.RolePharmacist), po.ID, purchase_order.ReceiveRequest{
		Lines: []purchase_order.ReceiveLine{delivery(lineID, "LOT-A", 20)},
	})
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusPartiallyReceived, first.Order.Status)
	assert.Equal(t, types.Quantity(20), first.Order.Lines[0].ReceivedQuantity)
	require.Len(t, first.Batches, 1)
	assert.Equal(t, &lineID, first.Batches[0].PurchaseOrderLineID)
	assert.True(t, apptest.Money("1.25").Equal(first.Batches[0].UnitCost))

	cost := apptest.Money("1.10")
	second := delivery(lineID, "LOT-B", 30)
	second.UnitCost = &cost
	full, err := env.Services.Orders.Receive(env.As("p1", security.RolePharmacist), po.ID, purchase_order.ReceiveRequest{
		Lines: []purchase_order.ReceiveLine{second},
	})
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusReceived, full.Order.Status)
	assert.True(t, cost.Equal(full.Batches[0].UnitCost))

	batches, err := env.Services.Stock.ListBatches(env.Ctx, stock.BatchFilter{ItemID: &itemID})
	require.NoError(t, err)
	require.Len(t, batches.Items, 2)
	var total types.Quantity
	for _, b := range batches.Items {
		total += b.RemainingQuantity
		require.NotNil(t, b.PurchaseOrderLineID)
		assert.Equal(t, lineID, *b.PurchaseOrderLineID)
	}
	assert.Equal(t, types.Quantity(50), total)

	receipts, err := env.Services.Orders.ListReceipts(env.Ctx, po.ID)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.Equal(t, first.Receipt.ID, receipts[0].ID)
	assert.Equal(t, "LOT-A", receipts[0].Lines[0].BatchCode)

	receiptKind := stock.KindReceipt
	moves, err := env.Services.Stock.ListMovements(env.Ctx, stock.MovementFilter{ItemID: &itemID, Kind: &receiptKind})
	require.NoError(t, err)
	assert.Len(t, moves.Items, 2)

	_, err = env.Services.Orders.Receive(env.As("p1", security.RolePharmacist), po.ID, purchase_order.ReceiveRequest{
		Lines: []purchase_order.ReceiveLine{delivery(lineID, "LOT-C", 1)},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))
}

func TestReceive_OverReceipt(t *testing.T) {
	env := apptest.New(t)
	itemID := id.New()
	po := approvedOrder(t, env, itemID, 10)
	lineID := po.Lines[0].ID
	ctx := env.Manager("m1")

	_, err := env.Services.Orders.Receive(ctx, po.ID, purchase_order.ReceiveRequest{
		Lines: []purchase_order.ReceiveLine{delivery(lineID, "LOT", 12)},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))

	onHand, err := env.Services.Stock.OnHand(env.Ctx, itemID)
	require.NoError(t, err)
	assert.Zero(t, onHand)

	res, err := env.Services.Orders.Receive(ctx, po.ID, purchase_order.ReceiveRequest{
		Lines:            []purchase_order.ReceiveLine{delivery(lineID, "LOT", 12)},
		AllowOverReceipt: true,
	})
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusReceived, res.Order.Status)
	assert.Equal(t, types.Quantity(12), res.Order.Lines[0].ReceivedQuantity)
}

func TestReceive_Rejections(t *testing.T) {
	env := apptest.New(t)
	ctx := env.Manager("m1")

	t.Run("draft order", func(t *testing.T) {
		po := draftOrder(t, env, id.New(), 5)
		_, err := env.Services.Orders.Receive(ctx, po.ID, purchase_order.ReceiveRequest{
			Lines: []purchase_order.ReceiveLine{delivery(po.Lines[0].ID, "LOT", 5)},
		})
		assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))
	})

	t.Run("cancelled order", func(t *testing.T) {
		po := approvedOrder(t, env, id.New(), 5)
		cancelled, err := env.Services.Orders.Cancel(ctx, po.ID, "supplier out of stock")
		require.NoError(t, err)
		assert.Equal(t, purchase_order.StatusCancelled, cancelled.Status)
		assert.Equal(t, "supplier out of stock", cancelled.CancelReason)

		_, err = env.Services.Orders.Receive(ctx, po.ID, purchase_order.ReceiveRequest{
			Lines: []purchase_order.ReceiveLine{delivery(po.Lines[0].ID, "LOT", 5)},
		})
		assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))
	})

	t.Run("foreign line", func(t *testing.T) {
		po := approvedOrder(t, env, id.New(), 5)
		_, err := env.Services.Orders.Receive(ctx, po.ID, purchase_order.ReceiveRequest{
			Lines: []purchase_order.ReceiveLine{delivery(id.New(), "LOT", 5)},
		})
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("invalid batch rolls back the delivery", func(t *testing.T) {
		itemID := id.New()
		po := approvedOrder(t, env, itemID, 5)
		bad := delivery(po.Lines[0].ID, "", 2)
		_, err := env.Services.Orders.Receive(ctx, po.ID, purchase_order.ReceiveRequest{
			Lines: []purchase_order.ReceiveLine{delivery(po.Lines[0].ID, "OK", 3), bad},
		})
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

		onHand, err := env.Services.Stock.OnHand(env.Ctx, itemID)
		require.NoError(t, err)
		assert.Zero(t, onHand)

		got, err := env.Services.Orders.GetByID(env.Ctx, po.ID)
		require.NoError(t, err)
		assert.Equal(t, purchase_order.StatusApproved, got.Status)
		assert.Zero(t, got.Lines[0].ReceivedQuantity)
	})

	t.Run("partially received order cannot be cancelled", func(t *testing.T) {
		po := approvedOrder(t, env, id.New(), 5)
		_, err := env.Services.Orders.Receive(ctx, po.ID, purchase_order.ReceiveRequest{
			Lines: []purchase_order.ReceiveLine{delivery(po.Lines[0].ID, "LOT", 2)},
		})
		require.NoError(t, err)
		_, err = env.Services.Orders.Cancel(ctx, po.ID, "late")
		assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))
	})
}

func TestOpenOrderItems(t *testing.T) {
	env := apptest.New(t)
	open, closed, none := id.New(), id.New(), id.New()
	po := draftOrder(t, env, open, 3)
	cancelled := draftOrder(t, env, closed, 3)
	_, err := env.Services.Orders.Cancel(env.Manager("m1"), cancelled.ID, "")
	require.NoError(t, err)

	got, err := env.Services.Orders.OpenOrderItems(env.Ctx, []id.ID{open, closed, none})
	require.NoError(t, err)
	assert.Equal(t, map[id.ID]id.ID{open: po.ID}, got)
}
