package stock_adjustment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/app/apptest"
	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/security"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/documents/stock_adjustment"
	"pharmaledger/internal/domain/registers/stock"
)

func TestRequestAndApprove(t *testing.T) {
	env := apptest.New(t)
	itemID := id.New()
	b := env.Receive(itemID, apptest.BatchSpec{Code: "A", Quantity: 10, Expiry: apptest.Days(30)})

	adj, err := env.Services.Adjustments.Request(env.Cashier("c1"), stock_adjustment.RequestInput{
		BatchID:    b.ID,
		Delta:      -3,
		ReasonCode: stock_adjustment.ReasonDamaged,
		Note:       "crushed carton",
	})
	require.NoError(t, err)
	assert.Equal(t, stock_adjustment.StatusPending, adj.Status)
	assert.Equal(t, itemID, adj.ItemID)
	assert.Equal(t, "c1", adj.RequestedBy)
	assert.Equal(t, types.Quantity(10), env.Remaining(b.ID), "pending requests leave stock alone")

	_, err = env.Services.Adjustments.Approve(env.Cashier("c1"), adj.ID, security.Approver{}, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	approved, err := env.Services.Adjustments.Approve(env.Manager("m1"), adj.ID, security.Approver{}, "ok")
	require.NoError(t, err)
	assert.Equal(t, stock_adjustment.StatusApproved, approved.Status)
	assert.Equal(t, "m1", approved.DecidedBy)
	assert.NotNil(t, approved.DecidedAt)
	assert.Equal(t, types.Quantity(7), env.Remaining(b.ID))

	kind := stock.KindAdjustment
	moves, err := env.Services.Stock.ListMovements(env.Ctx, stock.MovementFilter{ReferenceID: &adj.ID, Kind: &kind})
	require.NoError(t, err)
	require.Len(t, moves.Items, 1)
	assert.Equal(t, types.Quantity(-3), moves.Items[0].Delta)
	assert.Equal(t, string(stock_adjustment.ReasonDamaged), moves.Items[0].Reason)

	_, err = env.Services.Adjustments.Approve(env.Manager("m1"), adj.ID, security.Approver{}, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))
	assert.Equal(t, types.Quantity(7), env.Remaining(b.ID))
}

func TestApprove_WithPINApprover(t *testing.T) {
	env := apptest.New(t)
	b := env.Receive(id.New(), apptest.BatchSpec{Code: "A", Quantity: 2, Expiry: apptest.Days(30)})
	env.AddStaff("m2", "1357", security.RoleManager)

	adj, err := env.Services.Adjustments.Request(env.Cashier("c1"), stock_adjustment.RequestInput{
		BatchID: b.ID, Delta: 4, ReasonCode: stock_adjustment.ReasonCountCorrection,
	})
	require.NoError(t, err)

	_, err = env.Services.Adjustments.Approve(env.Cashier("c1"), adj.ID, security.Approver{UserID: "m2", PIN: "0000"}, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	approved, err := env.Services.Adjustments.Approve(env.Cashier("c1"), adj.ID, security.Approver{UserID: "m2", PIN: "1357"}, "")
	require.NoError(t, err)
	assert.Equal(t, "m2", approved.DecidedBy)
	assert.Equal(t, types.Quantity(6), env.Remaining(b.ID))
}

func TestApprove_NeverDrivesStockNegative(t *testing.T) {
	env := apptest.New(t)
	b := env.Receive(id.New(), apptest.BatchSpec{Code: "A", Quantity: 5, Expiry: apptest.Days(30)})
	ctx := env.Manager("m1")

	adj, err := env.Services.Adjustments.Request(ctx, stock_adjustment.RequestInput{
		BatchID: b.ID, Delta: -6, ReasonCode: stock_adjustment.ReasonTheft,
	})
	require.NoError(t, err)

	_, err = env.Services.Adjustments.Approve(ctx, adj.ID, security.Approver{}, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	got, err := env.Services.Adjustments.GetByID(env.Ctx, adj.ID)
	require.NoError(t, err)
	assert.Equal(t, stock_adjustment.StatusPending, got.Status)
	assert.Equal(t, types.Quantity(5), env.Remaining(b.ID))
}

func TestReject(t *testing.T) {
	env := apptest.New(t)
	b := env.Receive(id.New(), apptest.BatchSpec{Code: "A", Quantity: 5, Expiry: apptest.Days(30)})
	ctx := env.Manager("m1")

	adj, err := env.Services.Adjustments.Request(ctx, stock_adjustment.RequestInput{
		BatchID: b.ID, Delta: -1, ReasonCode: stock_adjustment.ReasonExpired,
	})
	require.NoError(t, err)

	rejected, err := env.Services.Adjustments.Reject(ctx, adj.ID, security.Approver{}, "recount first")
	require.NoError(t, err)
	assert.Equal(t, stock_adjustment.StatusRejected, rejected.Status)
	assert.Equal(t, "recount first", rejected.DecisionNote)
	assert.Equal(t, types.Quantity(5), env.Remaining(b.ID))

	_, err = env.Services.Adjustments.Approve(ctx, adj.ID, security.Approver{}, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))
}

func TestRequest_Validation(t *testing.T) {
	env := apptest.New(t)
	b := env.Receive(id.New(), apptest.BatchSpec{Code: "A", Quantity: 5, Expiry: apptest.Days(30)})
	ctx := env.Manager("m1")

	tests := []struct {
		name string
		in   stock_adjustment.RequestInput
		code string
	}{
		{"zero delta", stock_adjustment.RequestInput{BatchID: b.ID, ReasonCode: stock_adjustment.ReasonOther}, apperror.CodeValidation},
		{"unknown reason", stock_adjustment.RequestInput{BatchID: b.ID, Delta: 1, ReasonCode: "lost"}, apperror.CodeValidation},
		{"missing batch", stock_adjustment.RequestInput{Delta: 1, ReasonCode: stock_adjustment.ReasonOther}, apperror.CodeValidation},
		{"unknown batch", stock_adjustment.RequestInput{BatchID: id.New(), Delta: 1, ReasonCode: stock_adjustment.ReasonOther}, apperror.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Services.Adjustments.Request(ctx, tt.in)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}
}
