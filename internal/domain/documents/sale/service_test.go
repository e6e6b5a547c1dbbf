package sale_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/app"
	"pharmaledger/internal/app/apptest"
	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/security"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/audit"
	"pharmaledger/internal/domain/cash_session"
	"pharmaledger/internal/domain/documents/refund"
	"pharmaledger/internal/domain/documents/sale"
	"pharmaledger/internal/domain/registers/stock"
)

func cashSale(lines ...sale.LineRequest) sale.CreateRequest {
	return sale.CreateRequest{
		Lines:          lines,
		PaymentMethod:  sale.PaymentCash,
		AmountTendered: apptest.Money("1000"),
	}
}

func line(itemID id.ID, qty types.Quantity, price string) sale.LineRequest {
	return sale.LineRequest{ItemID: itemID, Quantity: qty, UnitPrice: apptest.Money(price)}
}

func TestCreate_AllocatesAndPrices(t *testing.T) {
	env := apptest.New(t)
	env.ConfigureTax("10")
	itemID := id.New()
	b := env.Receive(itemID, apptest.BatchSpec{Code: "B1", Quantity: 10, Expiry: apptest.Days(30)})

	req := cashSale(line(itemID, 4, "2.50"))
	req.AmountTendered = apptest.Money("20")
	doc, err := env.Services.Sales.Create(env.Cashier("c1"), req)
	require.NoError(t, err)

	assert.Equal(t, sale.StatusCompleted, doc.Status)
	assert.Equal(t, "c1", doc.CashierID)
	assert.Equal(t, "c1", doc.CreatedBy)
	assert.NotEmpty(t, doc.Number)
	assert.True(t, apptest.Money("10.00").Equal(doc.Subtotal))
	assert.True(t, apptest.Money("1.00").Equal(doc.Tax))
	assert.True(t, apptest.Money("11.00").Equal(doc.Total))
	assert.True(t, apptest.Money("9.00").Equal(doc.Change))
	assert.Nil(t, doc.SessionID)

	require.Len(t, doc.Lines, 1)
	require.Len(t, doc.Lines[0].Allocations, 1)
	assert.Equal(t, b.ID, doc.Lines[0].Allocations[0].BatchID)
	assert.Equal(t, types.Quantity(6), env.Remaining(b.ID))

	stored, err := env.Services.Sales.GetByID(env.Ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Number, stored.Number)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, doc.Lines[0].Allocations, stored.Lines[0].Allocations)

	moves, err := env.Services.Stock.ListMovements(env.Ctx, stock.MovementFilter{ReferenceID: &doc.ID})
	require.NoError(t, err)
	require.Len(t, moves.Items, 1)
	assert.Equal(t, types.Quantity(-4), moves.Items[0].Delta)
	assert.Equal(t, doc.Lines[0].ID, *moves.Items[0].ReferenceLineID)

	assert.Len(t, env.Storage.Recorder.Records(env.Ctx, audit.EntitySale, &doc.ID), 1)
}

func TestCreate_RollsBackWhenALineCannotBeFilled(t *testing.T) {
	env := apptest.New(t)
	env.ConfigureTax("0")
	plenty, scarce := id.New(), id.New()
	a := env.Receive(plenty, apptest.BatchSpec{Code: "A", Quantity: 10, Expiry: apptest.Days(30)})
	b := env.Receive(scarce, apptest.BatchSpec{Code: "B", Quantity: 1, Expiry: apptest.Days(30)})

	_, err := env.Services.Sales.Create(env.Cashier("c1"), cashSale(line(plenty, 5, "1"), line(scarce, 2, "1")))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 2, appErr.Details["line_no"])

	assert.Equal(t, types.Quantity(10), env.Remaining(a.ID))
	assert.Equal(t, types.Quantity(1), env.Remaining(b.ID))

	list, err := env.Services.Sales.List(env.Ctx, sale.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
}

func TestCreate_ConcurrentSalesNeverOversell(t *testing.T) {
	env := apptest.New(t)
	env.ConfigureTax("0")
	itemID := id.New()
	b := env.Receive(itemID, apptest.BatchSpec{Code: "B1", Quantity: 10, Expiry: apptest.Days(30)})

	const buyers = 8
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		completed    int
		insufficient int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Services.Sales.Create(env.Cashier("c1"), cashSale(line(itemID, 3, "2.00")))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				completed++
			case apperror.HasCode(err, apperror.CodeInsufficientStock):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, completed)
	assert.Equal(t, buyers-3, insufficient)
	assert.Equal(t, types.Quantity(1), env.Remaining(b.ID))

	rec, err := env.Services.Stock.Reconcile(env.Ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
}

func TestCreate_Rejections(t *testing.T) {
	env := apptest.New(t)
	env.ConfigureTax("0")
	itemID := id.New()
	env.Receive(itemID, apptest.BatchSpec{Code: "OLD", Quantity: 5, Expiry: apptest.Days(-3)})

	tests := []struct {
		name string
		ctx  context.Context
		req  sale.CreateRequest
		code string
	}{
		{
			name: "no actor",
			ctx:  env.Ctx,
			req:  cashSale(line(itemID, 1, "1")),
			code: apperror.CodeUnauthorized,
		},
		{
			name: "empty cart",
			ctx:  env.Cashier("c1"),
			req:  cashSale(),
			code: apperror.CodeValidation,
		},
		{
			name: "short tender",
			ctx:  env.Cashier("c1"),
			req: sale.CreateRequest{
				Lines:          []sale.LineRequest{line(itemID, 1, "5")},
				PaymentMethod:  sale.PaymentCash,
				AmountTendered: apptest.Money("4.99"),
			},
			code: apperror.CodeValidation,
		},
		{
			name: "expired stock only",
			ctx:  env.Cashier("c1"),
			req:  cashSale(line(itemID, 1, "1")),
			code: apperror.CodeInsufficientStock,
		},
		{
			name: "cashier may not sell expired",
			ctx:  env.Cashier("c1"),
			req: func() sale.CreateRequest {
				r := cashSale(line(itemID, 1, "1"))
				r.AllowExpired = true
				return r
			}(),
			code: apperror.CodeForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Services.Sales.Create(tt.ctx, tt.req)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}

	t.Run("manager may sell expired", func(t *testing.T) {
		r := cashSale(line(itemID, 1, "1"))
		r.AllowExpired = true
		_, err := env.Services.Sales.Create(env.Manager("m1"), r)
		assert.NoError(t, err)
	})
}

func TestCreate_TaxNotConfigured(t *testing.T) {
	env := apptest.New(t)
	itemID := id.New()
	env.Receive(itemID, apptest.BatchSpec{Code: "A", Quantity: 5, Expiry: apptest.Days(30)})

	_, err := env.Services.Sales.Create(env.Cashier("c1"), cashSale(line(itemID, 1, "1")))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))
}

func TestCreate_SessionTagging(t *testing.T) {
	opts := app.DefaultOptions()
	opts.RequireOpenSession = true
	env := apptest.NewWithOptions(t, opts)
	env.ConfigureTax("0")
	itemID := id.New()
	env.Receive(itemID, apptest.BatchSpec{Code: "A", Quantity: 5, Expiry: apptest.Days(30)})
	ctx := env.Cashier("c1")

	_, err := env.Services.Sales.Create(ctx, cashSale(line(itemID, 1, "1")))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))

	sess, err := env.Services.Sessions.Open(ctx, cash_session.OpenRequest{DrawerID: "D1", OpeningFloat: apptest.Money("50")})
	require.NoError(t, err)

	doc, err := env.Services.Sales.Create(ctx, cashSale(line(itemID, 1, "1")))
	require.NoError(t, err)
	require.NotNil(t, doc.SessionID)
	assert.Equal(t, sess.ID, *doc.SessionID)

	_, err = env.Services.Sessions.Close(ctx, sess.ID, cash_session.CloseRequest{CountedAmount: apptest.Money("51")})
	require.NoError(t, err)

	req := cashSale(line(itemID, 1, "1"))
	req.SessionID = &sess.ID
	_, err = env.Services.Sales.Create(ctx, req)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))
}

func TestVoid(t *testing.T) {
	newSale := func(t *testing.T) (*apptest.Env, *sale.Sale, *stock.Batch) {
		env := apptest.New(t)
		env.ConfigureTax("0")
		itemID := id.New()
		b := env.Receive(itemID, apptest.BatchSpec{Code: "A", Quantity: 10, Expiry: apptest.Days(30)})
		doc, err := env.Services.Sales.Create(env.Cashier("c1"), cashSale(line(itemID, 4, "3")))
		require.NoError(t, err)
		return env, doc, b
	}

	t.Run("manager restores stock", func(t *testing.T) {
		env, doc, b := newSale(t)
		voided, err := env.Services.Sales.Void(env.Manager("m1"), doc.ID, sale.VoidRequest{Reason: "wrong item"})
		require.NoError(t, err)
		assert.Equal(t, sale.StatusVoided, voided.Status)
		assert.Equal(t, "m1", voided.VoidedBy)
		assert.True(t, voided.StockRestored)
		assert.Equal(t, types.Quantity(10), env.Remaining(b.ID))

		rec, err := env.Services.Stock.Reconcile(env.Ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, rec.Consistent)
	})

	t.Run("without restock", func(t *testing.T) {
		env, doc, b := newSale(t)
		no := false
		voided, err := env.Services.Sales.Void(env.Manager("m1"), doc.ID, sale.VoidRequest{Reason: "left store", RestoreStock: &no})
		require.NoError(t, err)
		assert.False(t, voided.StockRestored)
		assert.Equal(t, types.Quantity(6), env.Remaining(b.ID))
	})

	t.Run("twice is rejected", func(t *testing.T) {
		env, doc, b := newSale(t)
		ctx := env.Manager("m1")
		_, err := env.Services.Sales.Void(ctx, doc.ID, sale.VoidRequest{Reason: "x"})
		require.NoError(t, err)
		_, err = env.Services.Sales.Void(ctx, doc.ID, sale.VoidRequest{Reason: "x"})
		assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))
		assert.Equal(t, types.Quantity(10), env.Remaining(b.ID))
	})

	t.Run("cashier needs approver", func(t *testing.T) {
		env, doc, _ := newSale(t)
		_, err := env.Services.Sales.Void(env.Cashier("c1"), doc.ID, sale.VoidRequest{Reason: "x"})
		assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

		env.AddStaff("m2", "2468", security.RoleManager)
		voided, err := env.Services.Sales.Void(env.Cashier("c1"), doc.ID, sale.VoidRequest{
			Reason:   "x",
			Approver: security.Approver{UserID: "m2", PIN: "2468"},
		})
		require.NoError(t, err)
		assert.Equal(t, "m2", voided.VoidedBy)
	})

	t.Run("reason required", func(t *testing.T) {
		env, doc, _ := newSale(t)
		_, err := env.Services.Sales.Void(env.Manager("m1"), doc.ID, sale.VoidRequest{Reason: "  "})
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("refunded sale cannot be voided", func(t *testing.T) {
		env, doc, _ := newSale(t)
		_, err := env.Services.Refunds.Create(env.Cashier("c1"), refund.CreateRequest{
			SaleID: doc.ID,
			Lines:  []refund.LineRequest{{SaleLineID: doc.Lines[0].ID, Quantity: 1}},
			Reason: "unopened",
		})
		require.NoError(t, err)

		_, err = env.Services.Sales.Void(env.Manager("m1"), doc.ID, sale.VoidRequest{Reason: "x"})
		assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))
	})
}
