// Package purchase_order provides supplier orders and their receiving.
// Each delivery against an order is recorded as a Receipt and creates stock batches.
package purchase_order

import (
	"context"
	"fmt"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/entity"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
)

// Status of a purchase order.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusApproved          Status = "approved"
	StatusPartiallyReceived Status = "partially_received"
	StatusReceived          Status = "received"
	StatusCancelled         Status = "cancelled"
)

// IsOpen reports whether goods are still expected on the order.
func (s Status) IsOpen() bool {
	return s == StatusDraft || s == StatusApproved || s == StatusPartiallyReceived
}

// Source tells how an order was created.
type Source string

const (
	SourceManual  Source = "manual"
	SourceReorder Source = "reorder"
)

// PurchaseOrder is an order of items from one supplier.
type PurchaseOrder struct {
	entity.Document

	SupplierID   id.ID       `db:"supplier_id" json:"supplierId"`
	Status       Status      `db:"status" json:"status"`
	Source       Source      `db:"source" json:"source"`
	ExpectedDate *time.Time  `db:"expected_date" json:"expectedDate,omitempty"`
	TotalAmount  types.Money `db:"total_amount" json:"totalAmount"`

	ApprovedBy   string     `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt   *time.Time `db:"approved_at" json:"approvedAt,omitempty"`
	CancelledBy  string     `db:"cancelled_by" json:"cancelledBy,omitempty"`
	CancelledAt  *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CancelReason string     `db:"cancel_reason" json:"cancelReason,omitempty"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one ordered item.
type Line struct {
	ID               id.ID          `db:"id" json:"id"`
	PurchaseOrderID  id.ID          `db:"purchase_order_id" json:"purchaseOrderId"`
	LineNo           int            `db:"line_no" json:"lineNo"`
	ItemID           id.ID          `db:"item_id" json:"itemId"`
	OrderedQuantity  types.Quantity `db:"ordered_quantity" json:"orderedQuantity"`
	ReceivedQuantity types.Quantity `db:"received_quantity" json:"receivedQuantity"`
	UnitCost         types.Money    `db:"unit_cost" json:"unitCost"`
	Amount           types.Money    `db:"amount" json:"amount"`
}

// Outstanding is the quantity still expected on the line.
func (l *Line) Outstanding() types.Quantity {
	return max(l.OrderedQuantity-l.ReceivedQuantity, 0)
}

// NewPurchaseOrder creates a draft order for a supplier.
func NewPurchaseOrder(supplierID id.ID, source Source) *PurchaseOrder {
	return &PurchaseOrder{
		Document:    entity.NewDocument(),
		SupplierID:  supplierID,
		Status:      StatusDraft,
		Source:      source,
		TotalAmount: types.Zero(),
		Lines:       make([]Line, 0),
	}
}

// AddLine appends a line and recalculates the order total.
func (po *PurchaseOrder) AddLine(itemID id.ID, quantity types.Quantity, unitCost types.Money) {
	line := Line{
		ID:              id.New(),
		PurchaseOrderID: po.ID,
		LineNo:          len(po.Lines) + 1,
		ItemID:          itemID,
		OrderedQuantity: quantity,
		UnitCost:        types.RoundMoney(unitCost),
		Amount:          types.LineAmount(quantity, unitCost),
	}
	po.Lines = append(po.Lines, line)
	po.TotalAmount = po.TotalAmount.Add(line.Amount)
}

// FindLine returns the line with the given id.
func (po *PurchaseOrder) FindLine(lineID id.ID) (*Line, bool) {
	for i := range po.Lines {
		if po.Lines[i].ID == lineID {
			return &po.Lines[i], true
		}
	}
	return nil, false
}

// IsFullyReceived reports whether every line has been received in full.
func (po *PurchaseOrder) IsFullyReceived() bool {
	for i := range po.Lines {
		if po.Lines[i].Outstanding() > 0 {
			return false
		}
	}
	return len(po.Lines) > 0
}

// CanReceive checks that deliveries may be booked against the order.
func (po *PurchaseOrder) CanReceive() error {
	if po.Status == StatusApproved || po.Status == StatusPartiallyReceived {
		return nil
	}
	return apperror.NewInvariantViolation(fmt.Sprintf("cannot receive against a %s purchase order", po.Status)).
		WithDetail("purchase_order_id", po.ID.String()).
		WithDetail("status", string(po.Status))
}

// CanCancel checks that the order has not received any goods and is not terminal.
func (po *PurchaseOrder) CanCancel() error {
	if po.Status == StatusDraft || po.Status == StatusApproved {
		return nil
	}
	return apperror.NewInvariantViolation(fmt.Sprintf("cannot cancel a %s purchase order", po.Status)).
		WithDetail("purchase_order_id", po.ID.String()).
		WithDetail("status", string(po.Status))
}

// Validate implements entity.Validatable.
func (po *PurchaseOrder) Validate(ctx context.Context) error {
	if err := po.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(po.SupplierID) {
		return apperror.NewValidation("supplier is required").WithDetail("field", "supplierId")
	}
	if len(po.Lines) == 0 {
		return apperror.NewValidation("purchase order must have at least one line").WithDetail("field", "lines")
	}
	for _, l := range po.Lines {
		if id.IsNil(l.ItemID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: item is required", l.LineNo)).WithDetail("line", l.LineNo)
		}
		if !l.OrderedQuantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("line %d: quantity must be positive", l.LineNo)).WithDetail("line", l.LineNo)
		}
		if l.UnitCost.IsNegative() {
			return apperror.NewValidation(fmt.Sprintf("line %d: unit cost cannot be negative", l.LineNo)).WithDetail("line", l.LineNo)
		}
	}
	return nil
}

// Receipt is one delivery booked against a purchase order (goods received note).
type Receipt struct {
	entity.Document

	PurchaseOrderID id.ID  `db:"purchase_order_id" json:"purchaseOrderId"`
	ReceivedBy      string `db:"received_by" json:"receivedBy"`

	Lines []ReceiptLine `db:"-" json:"lines"`
}

// ReceiptLine links a received quantity to the batch it created.
type ReceiptLine struct {
	ID                  id.ID          `db:"id" json:"id"`
	ReceiptID           id.ID          `db:"receipt_id" json:"receiptId"`
	LineNo              int            `db:"line_no" json:"lineNo"`
	PurchaseOrderLineID id.ID          `db:"purchase_order_line_id" json:"purchaseOrderLineId"`
	ItemID              id.ID          `db:"item_id" json:"itemId"`
	BatchID             id.ID          `db:"batch_id" json:"batchId"`
	BatchCode           string         `db:"batch_code" json:"batchCode"`
	ExpiryDate          time.Time      `db:"expiry_date" json:"expiryDate"`
	Quantity            types.Quantity `db:"quantity" json:"quantity"`
	UnitCost            types.Money    `db:"unit_cost" json:"unitCost"`
}
