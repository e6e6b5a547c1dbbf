// Package audit defines the audit-log port used by every mutating ledger operation.
//
// Entries are appended inside the caller's transaction, so an audit row exists
// exactly when the change it describes was committed.
package audit

import (
	"context"

	"pharmaledger/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Entity type names recorded in the audit log.
const (
	EntitySale            = "sale"
	EntityRefund          = "refund"
	EntityPurchaseOrder   = "purchase_order"
	EntityReceipt         = "purchase_receipt"
	EntityBatch           = "stock_batch"
	EntityStockAdjustment = "stock_adjustment"
	EntityReorderLevel    = "reorder_level"
	EntityCashSession     = "cash_session"
	EntityCashDrop        = "cash_drop"
	EntityOrganization    = "organization"
	EntityStaff           = "staff"
)

// Logger appends audit records with actor, entity and before/after snapshots.
type Logger interface {
	LogCreate(ctx context.Context, entityType string, entityID id.ID, after any) error
	LogUpdate(ctx context.Context, entityType string, entityID id.ID, before, after any) error
	LogDelete(ctx context.Context, entityType string, entityID id.ID, before any) error
}

// Nop discards every record.
type Nop struct{}

func (Nop) LogCreate(context.Context, string, id.ID, any) error      { return nil }
func (Nop) LogUpdate(context.Context, string, id.ID, any, any) error { return nil }
func (Nop) LogDelete(context.Context, string, id.ID, any) error      { return nil }
