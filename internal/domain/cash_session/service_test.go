package cash_session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/app/apptest"
	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/cash_session"
	"pharmaledger/internal/domain/documents/sale"
)

func TestClose_Reconciles(t *testing.T) {
	env := apptest.New(t)
	env.ConfigureTax("0")
	itemID := id.New()
	env.Receive(itemID, apptest.BatchSpec{Code: "A", Quantity: 20, Expiry: apptest.Days(90)})
	ctx := env.Cashier("c1")

	sess, err := env.Services.Sessions.Open(ctx, cash_session.OpenRequest{DrawerID: "D1", OpeningFloat: apptest.Money("100")})
	require.NoError(t, err)
	assert.Equal(t, cash_session.StatusOpen, sess.Status)
	assert.Equal(t, "c1", sess.CashierID)
	assert.NotEmpty(t, sess.Number)

	sell := func(qty types.Quantity, method sale.PaymentMethod, tendered string) {
		req := sale.CreateRequest{
			Lines:         []sale.LineRequest{{ItemID: itemID, Quantity: qty, UnitPrice: apptest.Money("5")}},
			PaymentMethod: method,
		}
		if tendered != "" {
			req.AmountTendered = apptest.Money(tendered)
		}
		doc, err := env.Services.Sales.Create(ctx, req)
		require.NoError(t, err)
		require.NotNil(t, doc.SessionID)
		assert.Equal(t, sess.ID, *doc.SessionID)
	}
	sell(5, sale.PaymentCash, "30")
	sell(2, sale.PaymentCard, "")

	voided := func() {
		doc, err := env.Services.Sales.Create(ctx, sale.CreateRequest{
			Lines:          []sale.LineRequest{{ItemID: itemID, Quantity: 1, UnitPrice: apptest.Money("5")}},
			PaymentMethod:  sale.PaymentCash,
			AmountTendered: apptest.Money("5"),
		})
		require.NoError(t, err)
		_, err = env.Services.Sales.Void(env.Manager("m1"), doc.ID, sale.VoidRequest{Reason: "rung twice"})
		require.NoError(t, err)
	}
	voided()

	_, err = env.Services.Sessions.RecordCashDrop(ctx, sess.ID, apptest.Money("30"), "safe")
	require.NoError(t, err)

	closed, err := env.Services.Sessions.Close(ctx, sess.ID, cash_session.CloseRequest{CountedAmount: apptest.Money("94")})
	require.NoError(t, err)
	assert.Equal(t, cash_session.StatusClosed, closed.Status)
	assert.Equal(t, "c1", closed.ClosedBy)
	require.NotNil(t, closed.Variance)
	assert.True(t, apptest.Money("25").Equal(*closed.CashSales))
	assert.True(t, apptest.Money("30").Equal(*closed.CashDrops))
	assert.True(t, apptest.Money("95").Equal(*closed.ExpectedAmount))
	assert.True(t, apptest.Money("-1").Equal(*closed.Variance))

	t.Run("close twice is rejected", func(t *testing.T) {
		_, err := env.Services.Sessions.Close(ctx, sess.ID, cash_session.CloseRequest{CountedAmount: apptest.Money("94")})
		assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))
	})

	t.Run("no drops after close", func(t *testing.T) {
		_, err := env.Services.Sessions.RecordCashDrop(ctx, sess.ID, apptest.Money("1"), "")
		assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))

		drops, err := env.Services.Sessions.ListDrops(env.Ctx, sess.ID)
		require.NoError(t, err)
		assert.Len(t, drops, 1)
	})

	t.Run("later sales are untagged", func(t *testing.T) {
		doc, err := env.Services.Sales.Create(ctx, sale.CreateRequest{
			Lines:         []sale.LineRequest{{ItemID: itemID, Quantity: 1, UnitPrice: apptest.Money("5")}},
			PaymentMethod: sale.PaymentCard,
		})
		require.NoError(t, err)
		assert.Nil(t, doc.SessionID)
	})
}

func TestOpen(t *testing.T) {
	env := apptest.New(t)
	ctx := env.Cashier("c1")

	first, err := env.Services.Sessions.Open(ctx, cash_session.OpenRequest{DrawerID: "D1", OpeningFloat: apptest.Money("50")})
	require.NoError(t, err)

	_, err = env.Services.Sessions.Open(ctx, cash_session.OpenRequest{DrawerID: "D1", OpeningFloat: apptest.Money("50")})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))

	_, err = env.Services.Sessions.Open(ctx, cash_session.OpenRequest{DrawerID: "D1", OpeningFloat: apptest.Money("-1")})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = env.Services.Sessions.Open(env.Ctx, cash_session.OpenRequest{DrawerID: "D1"})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))

	other, err := env.Services.Sessions.Open(env.Cashier("c2"), cash_session.OpenRequest{DrawerID: "D2"})
	require.NoError(t, err)

	second, err := env.Services.Sessions.Open(ctx, cash_session.OpenRequest{DrawerID: "D3"})
	require.NoError(t, err)

	current, err := env.Services.Sessions.Current(ctx)
	require.NoError(t, err)
	require.Len(t, current, 2)
	assert.Equal(t, first.ID, current[0].ID)
	assert.Equal(t, second.ID, current[1].ID)

	t.Run("resolve", func(t *testing.T) {
		_, err := env.Services.Sessions.ResolveOpenSession(env.Ctx, "c1", nil)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

		got, err := env.Services.Sessions.ResolveOpenSession(env.Ctx, "c1", &second.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, *got)

		_, err = env.Services.Sessions.ResolveOpenSession(env.Ctx, "c1", &other.ID)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))

		got, err = env.Services.Sessions.ResolveOpenSession(env.Ctx, "c2", nil)
		require.NoError(t, err)
		assert.Equal(t, other.ID, *got)

		got, err = env.Services.Sessions.ResolveOpenSession(env.Ctx, "nobody", nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name                         string
		float, sales, drops, counted string
		wantExpected, wantVariance   string
	}{
		{"balanced", "100", "250.50", "50", "300.50", "300.50", "0"},
		{"short", "100", "20", "0", "119.75", "120", "-0.25"},
		{"over", "0", "10", "0", "12", "10", "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := cash_session.Reconcile(apptest.Money(tt.float), apptest.Money(tt.sales), apptest.Money(tt.drops), apptest.Money(tt.counted))
			assert.True(t, apptest.Money(tt.wantExpected).Equal(rec.Expected), "expected %s", rec.Expected)
			assert.True(t, apptest.Money(tt.wantVariance).Equal(rec.Variance), "variance %s", rec.Variance)
		})
	}
}
