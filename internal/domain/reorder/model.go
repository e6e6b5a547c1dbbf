// Package reorder compares on-hand stock with configured minimums, raises
// low-stock alerts and drafts purchase orders for auto-reorder items.
package reorder

import (
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
)

// Level is the reorder configuration of one item.
type Level struct {
	ItemID              id.ID          `db:"item_id" json:"itemId"`
	MinimumStock        types.Quantity `db:"minimum_stock" json:"minimumStock"`
	ReorderQuantity     types.Quantity `db:"reorder_quantity" json:"reorderQuantity"`
	AutoReorder         bool           `db:"auto_reorder" json:"autoReorder"`
	PreferredSupplierID *id.ID         `db:"preferred_supplier_id" json:"preferredSupplierId,omitempty"`
	// UnitCost is the expected cost used on generated order lines.
	UnitCost  types.Money `db:"unit_cost" json:"unitCost"`
	Version   int         `db:"version" json:"version"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`
	UpdatedBy string      `db:"updated_by" json:"updatedBy,omitempty"`
}

// Validate checks the configuration.
func (l *Level) Validate() error {
	switch {
	case id.IsNil(l.ItemID):
		return apperror.NewValidation("item is required").WithDetail("field", "itemId")
	case l.MinimumStock.IsNegative():
		return apperror.NewValidation("minimum stock cannot be negative").WithDetail("field", "minimumStock")
	case l.ReorderQuantity.IsNegative():
		return apperror.NewValidation("reorder quantity cannot be negative").WithDetail("field", "reorderQuantity")
	case l.AutoReorder && !l.ReorderQuantity.IsPositive():
		return apperror.NewValidation("auto-reorder needs a positive reorder quantity").WithDetail("field", "reorderQuantity")
	case l.UnitCost.IsNegative():
		return apperror.NewValidation("unit cost cannot be negative").WithDetail("field", "unitCost")
	}
	return nil
}

// IsLow reports whether onHand is at or below the minimum.
func (l *Level) IsLow(onHand types.Quantity) bool {
	return onHand <= l.MinimumStock
}

// LowStockAlert flags an item at or below its minimum.
type LowStockAlert struct {
	ItemID              id.ID          `json:"itemId"`
	OnHand              types.Quantity `json:"onHand"`
	MinimumStock        types.Quantity `json:"minimumStock"`
	ReorderQuantity     types.Quantity `json:"reorderQuantity"`
	AutoReorder         bool           `json:"autoReorder"`
	PreferredSupplierID *id.ID         `json:"preferredSupplierId,omitempty"`
	// OpenOrderID is an open purchase order already carrying the item.
	OpenOrderID *id.ID    `json:"openOrderId,omitempty"`
	DetectedAt  time.Time `json:"detectedAt"`
}

// Skip reasons reported by GeneratePurchaseOrders.
const (
	SkipNotAutoReorder = "auto_reorder_disabled"
	SkipNoSupplier     = "no_preferred_supplier"
	SkipOpenOrder      = "open_order_exists"
)

// SkippedItem is a flagged item no order was drafted for.
type SkippedItem struct {
	ItemID id.ID  `json:"itemId"`
	Reason string `json:"reason"`
}

// GenerateResult lists the drafted orders and the items left out.
type GenerateResult struct {
	OrderIDs []id.ID       `json:"orderIds"`
	Skipped  []SkippedItem `json:"skipped"`
}

// Event types published through the outbox.
const (
	AggregateType         = "StockItem"
	EventLowStockDetected = "LowStockDetected"
)

// Event is a domain event raised by the advisor.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}
