package app_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/app"
	"pharmaledger/internal/core/apperror"
	appctx "pharmaledger/internal/core/context"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/security"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/catalogs/organization"
	"pharmaledger/internal/domain/documents/sale"
	"pharmaledger/internal/domain/registers/stock"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

// postgresEnv connects to PHARMALEDGER_TEST_DATABASE_URL and migrates it.
func postgresEnv(t *testing.T) (*app.PostgresStorage, *app.Services) {
	t.Helper()
	dsn := os.Getenv("PHARMALEDGER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PHARMALEDGER_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	st, err := app.NewPostgresStorage(ctx, app.PostgresOptions{
		Pool:           postgres.DefaultPoolConfig(dsn),
		IdempotencyTTL: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(st.Close)

	_, err = postgres.NewMigrator(st.Pool.Unwrap()).Up(ctx)
	require.NoError(t, err)

	return st, app.NewServices(st.Storage, app.DefaultOptions())
}

func TestPostgres_ConcurrentSalesNeverOversell(t *testing.T) {
	_, svc := postgresEnv(t)

	admin := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "admin", Roles: []string{security.RoleAdmin}})
	_, err := svc.Organization.Update(admin, organization.UpdateInput{
		Name:     "Integration Pharmacy",
		TaxRate:  decimal.RequireFromString("5"),
		Currency: "USD",
	})
	require.NoError(t, err)

	itemID := id.New()
	batch, err := svc.Stock.Receive(admin, stock.ReceiveInput{
		ItemID:     itemID,
		BatchCode:  "INT-" + itemID.String()[:8],
		ExpiryDate: time.Now().UTC().AddDate(1, 0, 0),
		Quantity:   10,
		UnitCost:   types.MustMoney("1.00"),
		UnitPrice:  types.MustMoney("2.00"),
		Ref:        stock.Reference{Type: stock.RefPurchaseReceipt, ID: id.New()},
	})
	require.NoError(t, err)

	const buyers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
		rejected  int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "cashier", Roles: []string{security.RoleCashier}})
			_, err := svc.Sales.Create(ctx, sale.CreateRequest{
				Lines:          []sale.LineRequest{{ItemID: itemID, Quantity: 1, UnitPrice: types.MustMoney("2.00")}},
				PaymentMethod:  sale.PaymentCard,
				AmountTendered: types.MustMoney("2.10"),
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				completed++
			case apperror.IsInsufficientStock(err), apperror.IsConcurrencyConflict(err):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, completed)
	assert.Equal(t, buyers-10, rejected)

	got, err := svc.Stock.GetBatch(admin, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(0), got.RemainingQuantity)

	rec, err := svc.Stock.Reconcile(admin, batch.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent, "remaining quantity equals the sum of movement deltas")
}
