// Package stock is the stock ledger: per-batch quantity state and the
// append-only movement log that mirrors every quantity change.
package stock

import (
	"time"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
)

// MovementKind classifies a ledger movement.
type MovementKind string

const (
	KindReceipt         MovementKind = "receipt"
	KindSale            MovementKind = "sale"
	KindRefund          MovementKind = "refund"
	KindRefundNoRestock MovementKind = "refund_no_restock"
	KindRefundReversal  MovementKind = "refund_reversal"
	KindVoidRestore     MovementKind = "void_restore"
	KindAdjustment      MovementKind = "adjustment"
)

// IsValid reports whether k is a known movement kind.
func (k MovementKind) IsValid() bool {
	switch k {
	case KindReceipt, KindSale, KindRefund, KindRefundNoRestock,
		KindRefundReversal, KindVoidRestore, KindAdjustment:
		return true
	}
	return false
}

// Reference types recorded on movements.
const (
	RefSale            = "sale"
	RefRefund          = "refund"
	RefPurchaseReceipt = "purchase_receipt"
	RefAdjustment      = "stock_adjustment"
)

// Batch is one receipt of an item, tracked separately for expiry and cost.
// Batches are never deleted, only drained to zero.
type Batch struct {
	ID                  id.ID          `db:"id" json:"id"`
	ItemID              id.ID          `db:"item_id" json:"itemId"`
	BatchCode           string         `db:"batch_code" json:"batchCode"`
	ExpiryDate          time.Time      `db:"expiry_date" json:"expiryDate"`
	ManufactureDate     *time.Time     `db:"manufacture_date" json:"manufactureDate,omitempty"`
	InitialQuantity     types.Quantity `db:"initial_quantity" json:"initialQuantity"`
	RemainingQuantity   types.Quantity `db:"remaining_quantity" json:"remainingQuantity"`
	UnitCost            types.Money    `db:"unit_cost" json:"unitCost"`
	UnitPrice           types.Money    `db:"unit_price" json:"unitPrice"`
	Location            string         `db:"location" json:"location,omitempty"`
	PurchaseOrderLineID *id.ID         `db:"purchase_order_line_id" json:"purchaseOrderLineId,omitempty"`
	ReceivedAt          time.Time      `db:"received_at" json:"receivedAt"`
	Version             int            `db:"version" json:"version"`
}

// IsExpired reports whether the batch may no longer be sold on asOf.
// A batch expires at the start of its expiry date.
func (b *Batch) IsExpired(asOf time.Time) bool {
	return !b.ExpiryDate.After(startOfDay(asOf))
}

// Movement is an immutable record of one quantity change.
//
// Quantity is the number of units involved. Delta is the signed effect on the
// batch's remaining quantity; it is zero for refund_no_restock. For every batch
// the sum of Delta over its movements, receipt included, equals RemainingQuantity.
type Movement struct {
	ID              id.ID          `db:"id" json:"id"`
	ItemID          id.ID          `db:"item_id" json:"itemId"`
	BatchID         id.ID          `db:"batch_id" json:"batchId"`
	Kind            MovementKind   `db:"kind" json:"kind"`
	Quantity        types.Quantity `db:"quantity" json:"quantity"`
	Delta           types.Quantity `db:"delta" json:"delta"`
	ReferenceType   string         `db:"reference_type" json:"referenceType"`
	ReferenceID     id.ID          `db:"reference_id" json:"referenceId"`
	ReferenceLineID *id.ID         `db:"reference_line_id" json:"referenceLineId,omitempty"`
	ActorID         string         `db:"actor_id" json:"actorId"`
	Reason          string         `db:"reason" json:"reason,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
}

// Reference identifies the transaction causing a ledger mutation.
type Reference struct {
	Type   string
	ID     id.ID
	LineID *id.ID
	Reason string
}

// Allocation is the part of a sale line drawn from one batch.
type Allocation struct {
	BatchID    id.ID          `db:"batch_id" json:"batchId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	UnitCost   types.Money    `db:"unit_cost" json:"unitCost"`
	ExpiryDate time.Time      `db:"expiry_date" json:"expiryDate"`
}

// Reconciliation compares a batch's remaining quantity with its movement log.
type Reconciliation struct {
	BatchID           id.ID          `json:"batchId"`
	RemainingQuantity types.Quantity `json:"remainingQuantity"`
	MovementTotal     types.Quantity `json:"movementTotal"`
	Consistent        bool           `json:"consistent"`
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
