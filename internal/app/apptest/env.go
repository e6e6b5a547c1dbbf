// Package apptest builds a fully wired in-memory ledger for tests.
package apptest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/app"
	appctx "pharmaledger/internal/core/context"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/security"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/auth"
	"pharmaledger/internal/domain/catalogs/organization"
	"pharmaledger/internal/domain/registers/stock"
	"pharmaledger/pkg/logger"
)

// Env is one isolated ledger.
type Env struct {
	T        testing.TB
	Storage  *app.MemoryStorage
	Services *app.Services
	Ctx      context.Context
}

// New creates an empty ledger with default options. The returned Ctx logs
// through the test and carries no actor.
func New(t testing.TB) *Env {
	return NewWithOptions(t, app.DefaultOptions())
}

// NewWithOptions creates an empty ledger with opts. Low bcrypt cost keeps PIN
// tests fast.
func NewWithOptions(t testing.TB, opts app.Options) *Env {
	t.Helper()
	opts.Auth.BcryptCost = 4
	st := app.NewMemoryStorage()
	ctx := logger.WithLogger(context.Background(), logger.NewTest(t))
	return &Env{
		T:        t,
		Storage:  st,
		Services: app.NewServices(st.Storage, opts),
		Ctx:      ctx,
	}
}

// As returns Ctx authenticated as userID with roles.
func (e *Env) As(userID string, roles ...string) context.Context {
	return appctx.WithUser(e.Ctx, &appctx.UserContext{UserID: userID, Roles: roles})
}

// Admin returns Ctx authenticated as the admin user.
func (e *Env) Admin() context.Context {
	return e.As("admin", security.RoleAdmin)
}

// Cashier returns Ctx authenticated as a cashier.
func (e *Env) Cashier(userID string) context.Context {
	return e.As(userID, security.RoleCashier)
}

// Manager returns Ctx authenticated as a manager.
func (e *Env) Manager(userID string) context.Context {
	return e.As(userID, security.RoleManager)
}

// ConfigureTax stores organization settings with the given tax rate.
func (e *Env) ConfigureTax(rate string) {
	e.T.Helper()
	_, err := e.Services.Organization.Update(e.Admin(), organization.UpdateInput{
		Name:     "Corner Pharmacy",
		TaxRate:  decimal.RequireFromString(rate),
		Currency: "USD",
	})
	require.NoError(e.T, err)
}

// AddStaff stores a staff member with an override PIN.
func (e *Env) AddStaff(userID, pin string, roles ...string) {
	e.T.Helper()
	ctx := e.Admin()
	_, err := e.Services.Auth.SaveStaff(ctx, auth.StaffInput{ID: userID, Name: userID, Roles: roles})
	require.NoError(e.T, err)
	if pin != "" {
		require.NoError(e.T, e.Services.Auth.SetPIN(ctx, userID, pin))
	}
}

// BatchSpec describes a batch to seed.
type BatchSpec struct {
	Code      string
	Quantity  types.Quantity
	Expiry    time.Time
	UnitCost  string
	UnitPrice string
}

// Receive seeds a batch of itemID directly through the ledger.
func (e *Env) Receive(itemID id.ID, spec BatchSpec) *stock.Batch {
	e.T.Helper()
	if spec.UnitCost == "" {
		spec.UnitCost = "1.00"
	}
	if spec.UnitPrice == "" {
		spec.UnitPrice = "2.00"
	}
	b, err := e.Services.Stock.Receive(e.Admin(), stock.ReceiveInput{
		ItemID:     itemID,
		BatchCode:  spec.Code,
		ExpiryDate: spec.Expiry,
		Quantity:   spec.Quantity,
		UnitCost:   types.MustMoney(spec.UnitCost),
		UnitPrice:  types.MustMoney(spec.UnitPrice),
		Ref:        stock.Reference{Type: stock.RefPurchaseReceipt, ID: id.New()},
	})
	require.NoError(e.T, err)
	return b
}

// Remaining returns the batch's current remaining quantity.
func (e *Env) Remaining(batchID id.ID) types.Quantity {
	e.T.Helper()
	b, err := e.Services.Stock.GetBatch(e.Ctx, batchID)
	require.NoError(e.T, err)
	return b.RemainingQuantity
}

// Days returns midnight UTC n days from today.
func Days(n int) time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// Money parses a decimal literal.
func Money(s string) types.Money {
	return types.MustMoney(s)
}
