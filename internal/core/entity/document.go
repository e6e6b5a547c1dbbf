package entity

import (
	"context"
	"time"

	"pharmaledger/internal/core/apperror"
)

// Document is the base type for numbered ledger documents:
// sales, refunds, purchase orders, receipts, adjustments.
type Document struct {
	BaseDocument

	// Number is the document number (auto-generated, unique within type+period)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document with generated ID dated now.
func NewDocument() Document {
	base := NewBaseDocument()
	return Document{
		BaseDocument: base,
		Date:         base.CreatedAt,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	return nil
}
