// Package security defines roles, privileges and the approver model used by
// ledger operations that need elevated rights (void, approve, adjust).
package security

import (
	"slices"

	appctx "pharmaledger/internal/core/context"
)

// Privilege is an elevated right checked by the domain layer itself,
// independent of the route-level permission flags.
type Privilege string

const (
	PrivilegeVoidSale             Privilege = "sale:void"
	PrivilegeCancelRefund         Privilege = "refund:cancel"
	PrivilegeApprovePurchaseOrder Privilege = "purchase_order:approve"
	PrivilegeApproveAdjustment    Privilege = "stock:adjust"
	PrivilegeSellExpired          Privilege = "stock:sell_expired"
)

// Role names carried in access tokens.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RolePharmacist = "pharmacist"
	RoleCashier    = "cashier"
)

var rolePrivileges = map[string][]Privilege{
	RoleManager: {
		PrivilegeVoidSale,
		PrivilegeCancelRefund,
		PrivilegeApprovePurchaseOrder,
		PrivilegeApproveAdjustment,
		PrivilegeSellExpired,
	},
	RolePharmacist: {
		PrivilegeApprovePurchaseOrder,
	},
}

// Grants reports whether any of roles holds p. Admins hold every privilege.
func Grants(roles []string, p Privilege) bool {
	for _, r := range roles {
		if r == RoleAdmin {
			return true
		}
		if slices.Contains(rolePrivileges[r], p) {
			return true
		}
	}
	return false
}

// ActorHolds reports whether the authenticated actor holds p, either through
// a role or through an explicit permission flag with the same name.
func ActorHolds(u *appctx.UserContext, p Privilege) bool {
	if u == nil {
		return false
	}
	if u.IsAdmin || Grants(u.Roles, p) {
		return true
	}
	return slices.Contains(u.Permissions, string(p))
}
