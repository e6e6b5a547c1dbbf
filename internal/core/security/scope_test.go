package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/core/apperror"
	appctx "pharmaledger/internal/core/context"
)

func TestGrants(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		p     Privilege
		want  bool
	}{
		{"manager voids", []string{RoleManager}, PrivilegeVoidSale, true},
		{"cashier cannot void", []string{RoleCashier}, PrivilegeVoidSale, false},
		{"pharmacist approves orders", []string{RolePharmacist}, PrivilegeApprovePurchaseOrder, true},
		{"pharmacist cannot adjust", []string{RolePharmacist}, PrivilegeApproveAdjustment, false},
		{"admin holds everything", []string{RoleAdmin}, PrivilegeApproveAdjustment, true},
		{"no roles", nil, PrivilegeVoidSale, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Grants(tt.roles, tt.p))
		})
	}
}

func TestActorHolds_PermissionFlag(t *testing.T) {
	u := &appctx.UserContext{UserID: "u1", Roles: []string{RoleCashier}, Permissions: []string{"sale:void"}}
	assert.True(t, ActorHolds(u, PrivilegeVoidSale))
	assert.False(t, ActorHolds(u, PrivilegeApproveAdjustment))
	assert.False(t, ActorHolds(nil, PrivilegeVoidSale))
}

func TestActorAuthorizer(t *testing.T) {
	var a ActorAuthorizer

	_, err := a.Authorize(context.Background(), PrivilegeVoidSale, Approver{})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))

	mgr := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "m1", Roles: []string{RoleManager}})
	who, err := a.Authorize(mgr, PrivilegeVoidSale, Approver{})
	require.NoError(t, err)
	assert.Equal(t, "m1", who)

	_, err = a.Authorize(mgr, PrivilegeVoidSale, Approver{UserID: "someone-else"})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	cashier := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "c1", Roles: []string{RoleCashier}})
	_, err = a.Authorize(cashier, PrivilegeVoidSale, Approver{})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
}

func TestAllows(t *testing.T) {
	tests := []struct {
		name string
		user *appctx.UserContext
		p    Permission
		want bool
	}{
		{"cashier sells", &appctx.UserContext{Roles: []string{RoleCashier}}, PermSaleWrite, true},
		{"cashier cannot order", &appctx.UserContext{Roles: []string{RoleCashier}}, PermPurchaseOrderWrite, false},
		{"pharmacist orders", &appctx.UserContext{Roles: []string{RolePharmacist}}, PermPurchaseOrderWrite, true},
		{"manager edits organization", &appctx.UserContext{Roles: []string{RoleManager}}, PermOrganizationWrite, true},
		{"manager cannot edit staff", &appctx.UserContext{Roles: []string{RoleManager}}, PermStaffWrite, false},
		{"admin role", &appctx.UserContext{Roles: []string{RoleAdmin}}, PermStaffWrite, true},
		{"admin flag", &appctx.UserContext{IsAdmin: true}, PermStaffWrite, true},
		{"explicit flag", &appctx.UserContext{Permissions: []string{"reorder:read"}}, PermReorderRead, true},
		{"nil actor", nil, PermSaleRead, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allows(tt.user, tt.p))
		})
	}
}
