// Package refund provides the Refund document: partial or full reversal of a
// completed sale's lines, with optional return of units to stock.
package refund

import (
	"context"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/entity"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
)

// Type of a refund relative to its sale.
type Type string

const (
	TypePartial Type = "partial"
	TypeFull    Type = "full"
)

// Status of a refund.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Refund reverses some or all units of a sale.
// Only non-cancelled refunds count toward the sale's refunded totals.
type Refund struct {
	entity.Document

	SaleID  id.ID       `db:"sale_id" json:"saleId"`
	Type    Type        `db:"type" json:"type"`
	Status  Status      `db:"status" json:"status"`
	Amount  types.Money `db:"amount" json:"amount"`
	Reason  string      `db:"reason" json:"reason"`
	Restock bool        `db:"restock" json:"restock"`

	ProcessedBy  string     `db:"processed_by" json:"processedBy"`
	CancelledBy  string     `db:"cancelled_by" json:"cancelledBy,omitempty"`
	CancelledAt  *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CancelReason string     `db:"cancel_reason" json:"cancelReason,omitempty"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is the refunded part of one sale line.
type Line struct {
	ID         id.ID          `db:"id" json:"id"`
	RefundID   id.ID          `db:"refund_id" json:"refundId"`
	LineNo     int            `db:"line_no" json:"lineNo"`
	SaleLineID id.ID          `db:"sale_line_id" json:"saleLineId"`
	ItemID     id.ID          `db:"item_id" json:"itemId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	Amount     types.Money    `db:"amount" json:"amount"`

	// Allocations attribute the refunded units to the batches the sale drew from.
	Allocations []Allocation `db:"-" json:"allocations"`
}

// Allocation is the part of a refund line attributed to one batch.
type Allocation struct {
	BatchID  id.ID          `db:"batch_id" json:"batchId"`
	Quantity types.Quantity `db:"quantity" json:"quantity"`
}

// IsActive reports whether the refund counts toward refunded totals.
func (r *Refund) IsActive() bool {
	return r.Status != StatusCancelled
}

// Validate implements entity.Validatable.
func (r *Refund) Validate(ctx context.Context) error {
	if err := r.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(r.SaleID) {
		return apperror.NewValidation("sale is required").WithDetail("field", "saleId")
	}
	if len(r.Lines) == 0 {
		return apperror.NewValidation("refund must have at least one line").WithDetail("field", "lines")
	}
	sum := types.Zero()
	for i := range r.Lines {
		l := &r.Lines[i]
		var attributed types.Quantity
		for _, a := range l.Allocations {
			attributed += a.Quantity
		}
		if attributed != l.Quantity {
			return apperror.NewInvariantViolation("refund line attribution does not match quantity").
				WithDetail("line_no", l.LineNo)
		}
		sum = sum.Add(l.Amount)
	}
	if !sum.Equal(r.Amount) {
		return apperror.NewInvariantViolation("refund amount does not match its lines")
	}
	return nil
}

// LineRemaining is the refundable state of one sale line after a refund.
type LineRemaining struct {
	SaleLineID id.ID          `json:"saleLineId"`
	ItemID     id.ID          `json:"itemId"`
	Sold       types.Quantity `json:"sold"`
	Refunded   types.Quantity `json:"refunded"`
	Remaining  types.Quantity `json:"remaining"`
}

// Result is returned by Create: the refund plus what is still refundable.
type Result struct {
	Refund              *Refund         `json:"refund"`
	RefundedTotal       types.Money     `json:"refundedTotal"`
	RemainingRefundable types.Money     `json:"remainingRefundable"`
	Lines               []LineRemaining `json:"lines"`
}
