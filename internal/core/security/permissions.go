package security

import (
	"slices"

	appctx "pharmaledger/internal/core/context"
)

// Permission is a route-level access flag. Unlike a Privilege it only
// decides whether an actor may call an endpoint; elevated operations behind
// the endpoint still check their Privilege with an Approver.
type Permission string

const (
	PermSaleRead           Permission = "sale:read"
	PermSaleWrite          Permission = "sale:write"
	PermRefundRead         Permission = "refund:read"
	PermRefundWrite        Permission = "refund:write"
	PermPurchaseOrderRead  Permission = "purchase_order:read"
	PermPurchaseOrderWrite Permission = "purchase_order:write"
	PermStockRead          Permission = "stock:read"
	PermStockWrite         Permission = "stock:write"
	PermReorderRead        Permission = "reorder:read"
	PermReorderWrite       Permission = "reorder:write"
	PermCashSessionRead    Permission = "cash_session:read"
	PermCashSessionWrite   Permission = "cash_session:write"
	PermOrganizationRead   Permission = "organization:read"
	PermOrganizationWrite  Permission = "organization:write"
	PermStaffRead          Permission = "staff:read"
	PermStaffWrite         Permission = "staff:write"
)

var cashierPermissions = []Permission{
	PermSaleRead, PermSaleWrite,
	PermRefundRead, PermRefundWrite,
	PermCashSessionRead, PermCashSessionWrite,
	PermStockRead, PermOrganizationRead,
}

var rolePermissions = map[string][]Permission{
	RoleCashier: cashierPermissions,
	RolePharmacist: append(slices.Clone(cashierPermissions),
		PermPurchaseOrderRead, PermPurchaseOrderWrite,
		PermStockWrite,
		PermReorderRead, PermReorderWrite,
	),
	RoleManager: append(slices.Clone(cashierPermissions),
		PermPurchaseOrderRead, PermPurchaseOrderWrite,
		PermStockWrite,
		PermReorderRead, PermReorderWrite,
		PermOrganizationWrite,
		PermStaffRead,
	),
}

// Allows reports whether the actor may use an endpoint guarded by p, through
// admin status, a role default, or an explicit permission flag.
func Allows(u *appctx.UserContext, p Permission) bool {
	if u == nil {
		return false
	}
	if u.IsAdmin || u.HasPermission(string(p)) {
		return true
	}
	for _, r := range u.Roles {
		if r == RoleAdmin || slices.Contains(rolePermissions[r], p) {
			return true
		}
	}
	return false
}
