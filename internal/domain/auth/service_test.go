package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/app"
	"pharmaledger/internal/app/apptest"
	"pharmaledger/internal/core/apperror"
	appctx "pharmaledger/internal/core/context"
	"pharmaledger/internal/core/security"
	"pharmaledger/internal/domain/auth"
)

func TestAuthorize_OwnToken(t *testing.T) {
	env := apptest.New(t)

	by, err := env.Services.Auth.Authorize(env.Manager("m1"), security.PrivilegeVoidSale, security.Approver{})
	require.NoError(t, err)
	assert.Equal(t, "m1", by)

	_, err = env.Services.Auth.Authorize(env.Cashier("c1"), security.PrivilegeVoidSale, security.Approver{})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	_, err = env.Services.Auth.Authorize(env.Ctx, security.PrivilegeVoidSale, security.Approver{})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestAuthorize_PINOverride(t *testing.T) {
	env := apptest.New(t)
	env.AddStaff("m1", "2468", security.RoleManager)
	env.AddStaff("p1", "1111", security.RolePharmacist)
	env.AddStaff("m2", "", security.RoleManager)
	ctx := env.Cashier("c1")

	tests := []struct {
		name     string
		approver security.Approver
		code     string
	}{
		{"missing pin", security.Approver{UserID: "m1"}, apperror.CodeValidation},
		{"unknown approver", security.Approver{UserID: "ghost", PIN: "2468"}, apperror.CodeForbidden},
		{"approver without pin", security.Approver{UserID: "m2", PIN: "2468"}, apperror.CodeForbidden},
		{"approver lacks privilege", security.Approver{UserID: "p1", PIN: "1111"}, apperror.CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Services.Auth.Authorize(ctx, security.PrivilegeVoidSale, tt.approver)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}

	t.Run("pharmacist approves orders", func(t *testing.T) {
		by, err := env.Services.Auth.Authorize(ctx, security.PrivilegeApprovePurchaseOrder, security.Approver{UserID: "p1", PIN: "1111"})
		require.NoError(t, err)
		assert.Equal(t, "p1", by)
	})

	t.Run("manager approves", func(t *testing.T) {
		by, err := env.Services.Auth.Authorize(ctx, security.PrivilegeVoidSale, security.Approver{UserID: "m1", PIN: "2468"})
		require.NoError(t, err)
		assert.Equal(t, "m1", by)
	})
}

func TestAuthorize_LocksAfterRepeatedWrongPIN(t *testing.T) {
	opts := app.DefaultOptions()
	opts.Auth.MaxPINAttempts = 3
	opts.Auth.LockDuration = time.Hour
	env := apptest.NewWithOptions(t, opts)
	env.AddStaff("m1", "2468", security.RoleManager)
	ctx := env.Cashier("c1")
	wrong := security.Approver{UserID: "m1", PIN: "0000"}
	right := security.Approver{UserID: "m1", PIN: "2468"}

	for i := 0; i < 2; i++ {
		_, err := env.Services.Auth.Authorize(ctx, security.PrivilegeVoidSale, wrong)
		require.True(t, apperror.HasCode(err, apperror.CodeForbidden))
	}
	staff, err := env.Services.Auth.GetStaff(env.Ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, staff.FailedPINAttempts)
	assert.False(t, staff.IsLocked())

	// A correct PIN before the limit resets the counter.
	_, err = env.Services.Auth.Authorize(ctx, security.PrivilegeVoidSale, right)
	require.NoError(t, err)
	staff, err = env.Services.Auth.GetStaff(env.Ctx, "m1")
	require.NoError(t, err)
	assert.Zero(t, staff.FailedPINAttempts)

	for i := 0; i < 3; i++ {
		_, _ = env.Services.Auth.Authorize(ctx, security.PrivilegeVoidSale, wrong)
	}
	_, err = env.Services.Auth.Authorize(ctx, security.PrivilegeVoidSale, right)
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	staff, err = env.Services.Auth.GetStaff(env.Ctx, "m1")
	require.NoError(t, err)
	assert.True(t, staff.IsLocked())

	// Resetting the PIN clears the lock.
	require.NoError(t, env.Services.Auth.SetPIN(env.Admin(), "m1", "9753"))
	_, err = env.Services.Auth.Authorize(ctx, security.PrivilegeVoidSale, security.Approver{UserID: "m1", PIN: "9753"})
	assert.NoError(t, err)
}

func TestSetPIN(t *testing.T) {
	env := apptest.New(t)
	env.AddStaff("c1", "", security.RoleCashier)
	env.AddStaff("c2", "", security.RoleCashier)

	tests := []struct {
		name string
		as   string
		user string
		pin  string
		code string
	}{
		{"too short", "c1", "c1", "12", apperror.CodeValidation},
		{"not digits", "c1", "c1", "12ab", apperror.CodeValidation},
		{"someone else", "c1", "c2", "1234", apperror.CodeForbidden},
		{"own pin", "c1", "c1", "1234", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.Services.Auth.SetPIN(env.Cashier(tt.as), tt.user, tt.pin)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestSaveStaff(t *testing.T) {
	env := apptest.New(t)

	_, err := env.Services.Auth.SaveStaff(env.Manager("m1"), auth.StaffInput{ID: "x", Name: "X"})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	_, err = env.Services.Auth.SaveStaff(env.Admin(), auth.StaffInput{ID: "x", Name: "X", Roles: []string{"janitor"}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	created, err := env.Services.Auth.SaveStaff(env.Admin(), auth.StaffInput{ID: "x", Name: " Xena ", Roles: []string{security.RoleCashier}})
	require.NoError(t, err)
	assert.Equal(t, "Xena", created.Name)
	assert.True(t, created.IsActive)

	inactive := false
	updated, err := env.Services.Auth.SaveStaff(env.Admin(), auth.StaffInput{
		ID: "x", Name: "Xena", Roles: []string{security.RolePharmacist}, IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, []string{security.RolePharmacist}, updated.Roles)
	assert.Greater(t, updated.Version, created.Version)

	list, err := env.Services.Auth.ListStaff(env.Ctx, auth.StaffFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestJWT_RoundTrip(t *testing.T) {
	svc := auth.NewJWTService(auth.DefaultJWTConfig("test-secret"))
	u := &appctx.UserContext{UserID: "m1", Name: "Mia", Roles: []string{security.RoleManager}}

	token, expiresAt, err := svc.GenerateAccessToken(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)
	assert.Equal(t, u.Roles, got.Roles)

	t.Run("wrong secret", func(t *testing.T) {
		other := auth.NewJWTService(auth.DefaultJWTConfig("other"))
		_, err := other.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		cfg := auth.DefaultJWTConfig("test-secret")
		cfg.AccessTokenTTL = -time.Minute
		stale, _, err := auth.NewJWTService(cfg).GenerateAccessToken(u)
		require.NoError(t, err)
		_, err = svc.ValidateToken(stale)
		assert.Error(t, err)
	})
}
