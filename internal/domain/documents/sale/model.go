// Package sale provides the Sale document: checkout with FEFO stock allocation
// and the manager-authorized void.
package sale

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/entity"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/registers/stock"
)

// Status of a sale.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusVoided    Status = "voided"
)

// PaymentMethod used to settle a sale.
type PaymentMethod string

const (
	PaymentCash      PaymentMethod = "cash"
	PaymentCard      PaymentMethod = "card"
	PaymentInsurance PaymentMethod = "insurance"
	PaymentMobile    PaymentMethod = "mobile"
)

// IsValid reports whether m is a supported payment method.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentInsurance, PaymentMobile:
		return true
	}
	return false
}

// Sale is a committed checkout. It is created atomically with its lines and
// their batch allocations; afterwards only the void fields change.
type Sale struct {
	entity.Document

	// CustomerID is nil for walk-in customers
	CustomerID *id.ID `db:"customer_id" json:"customerId,omitempty"`
	CashierID  string `db:"cashier_id" json:"cashierId"`
	SessionID  *id.ID `db:"session_id" json:"sessionId,omitempty"`

	Subtotal       types.Money     `db:"subtotal" json:"subtotal"`
	Discount       types.Money     `db:"discount" json:"discount"`
	TaxRate        decimal.Decimal `db:"tax_rate" json:"taxRate"`
	Tax            types.Money     `db:"tax" json:"tax"`
	Total          types.Money     `db:"total" json:"total"`
	PaymentMethod  PaymentMethod   `db:"payment_method" json:"paymentMethod"`
	AmountTendered types.Money     `db:"amount_tendered" json:"amountTendered"`
	Change         types.Money     `db:"change_due" json:"change"`

	Status        Status     `db:"status" json:"status"`
	VoidReason    string     `db:"void_reason" json:"voidReason,omitempty"`
	VoidedBy      string     `db:"voided_by" json:"voidedBy,omitempty"`
	VoidedAt      *time.Time `db:"voided_at" json:"voidedAt,omitempty"`
	StockRestored bool       `db:"stock_restored" json:"stockRestored"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one item of a sale with the batches it drew from.
type Line struct {
	ID        id.ID          `db:"id" json:"id"`
	SaleID    id.ID          `db:"sale_id" json:"saleId"`
	LineNo    int            `db:"line_no" json:"lineNo"`
	ItemID    id.ID          `db:"item_id" json:"itemId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	Subtotal  types.Money    `db:"subtotal" json:"subtotal"`

	Allocations []stock.Allocation `db:"-" json:"allocations"`
}

// AllocatedQuantity sums the line's allocations.
func (l *Line) AllocatedQuantity() types.Quantity {
	var total types.Quantity
	for _, a := range l.Allocations {
		total += a.Quantity
	}
	return total
}

// FindLine returns the line with the given id.
func (s *Sale) FindLine(lineID id.ID) (*Line, bool) {
	for i := range s.Lines {
		if s.Lines[i].ID == lineID {
			return &s.Lines[i], true
		}
	}
	return nil, false
}

// Validate implements entity.Validatable.
func (s *Sale) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}
	if s.CashierID == "" {
		return apperror.NewValidation("cashier is required").WithDetail("field", "cashierId")
	}
	if len(s.Lines) == 0 {
		return apperror.NewValidation("sale must have at least one line").WithDetail("field", "lines")
	}
	for i := range s.Lines {
		l := &s.Lines[i]
		if l.AllocatedQuantity() != l.Quantity {
			return apperror.NewInvariantViolation("line allocations do not match quantity sold").
				WithDetail("line_no", l.LineNo)
		}
	}
	return nil
}
