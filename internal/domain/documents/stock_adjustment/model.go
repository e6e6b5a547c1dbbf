// Package stock_adjustment provides the StockAdjustment document: a requested
// correction of one batch's quantity that takes effect only once approved.
package stock_adjustment

import (
	"context"
	"fmt"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/entity"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
)

// Status of an adjustment.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ReasonCode classifies why stock is corrected.
type ReasonCode string

const (
	ReasonDamaged         ReasonCode = "damaged"
	ReasonExpired         ReasonCode = "expired"
	ReasonCountCorrection ReasonCode = "count_correction"
	ReasonTheft           ReasonCode = "theft"
	ReasonOther           ReasonCode = "other"
)

// IsValid reports whether r is a known reason code.
func (r ReasonCode) IsValid() bool {
	switch r {
	case ReasonDamaged, ReasonExpired, ReasonCountCorrection, ReasonTheft, ReasonOther:
		return true
	}
	return false
}

// StockAdjustment is a signed correction of one batch.
type StockAdjustment struct {
	entity.Document

	BatchID    id.ID          `db:"batch_id" json:"batchId"`
	ItemID     id.ID          `db:"item_id" json:"itemId"`
	Delta      types.Quantity `db:"delta" json:"delta"`
	ReasonCode ReasonCode     `db:"reason_code" json:"reasonCode"`
	Status     Status         `db:"status" json:"status"`

	RequestedBy  string     `db:"requested_by" json:"requestedBy"`
	DecidedBy    string     `db:"decided_by" json:"decidedBy,omitempty"`
	DecidedAt    *time.Time `db:"decided_at" json:"decidedAt,omitempty"`
	DecisionNote string     `db:"decision_note" json:"decisionNote,omitempty"`
}

// Validate implements entity.Validatable.
func (a *StockAdjustment) Validate(ctx context.Context) error {
	if err := a.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(a.BatchID) {
		return apperror.NewValidation("batch is required").WithDetail("field", "batchId")
	}
	if a.Delta.IsZero() {
		return apperror.NewValidation("adjustment delta must not be zero").WithDetail("field", "delta")
	}
	if !a.ReasonCode.IsValid() {
		return apperror.NewValidation(fmt.Sprintf("unknown reason code %q", a.ReasonCode)).WithDetail("field", "reasonCode")
	}
	return nil
}

func (a *StockAdjustment) decide(status Status, by, note string) error {
	if a.Status != StatusPending {
		return apperror.NewInvariantViolation(fmt.Sprintf("adjustment is already %s", a.Status)).
			WithDetail("adjustment_id", a.ID.String())
	}
	now := time.Now().UTC()
	a.Status = status
	a.DecidedBy = by
	a.DecidedAt = &now
	a.DecisionNote = note
	return nil
}

// Approve marks a pending adjustment approved.
func (a *StockAdjustment) Approve(by, note string) error {
	return a.decide(StatusApproved, by, note)
}

// Reject marks a pending adjustment rejected.
func (a *StockAdjustment) Reject(by, note string) error {
	return a.decide(StatusRejected, by, note)
}
