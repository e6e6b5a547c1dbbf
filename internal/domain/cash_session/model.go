// Package cash_session brackets a cashier's sales between opening and closing
// a drawer and reconciles expected against counted cash at close.
package cash_session

import (
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/entity"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/numerator"
	"pharmaledger/internal/core/types"
)

// NumeratorStrategy defines the numbering strategy for cash sessions.
const NumeratorStrategy = numerator.StrategyStrict

// Status of a cash session. Closed is terminal.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Session is one cashier shift on a drawer.
type Session struct {
	entity.Document

	CashierID    string      `db:"cashier_id" json:"cashierId"`
	DrawerID     string      `db:"drawer_id" json:"drawerId,omitempty"`
	OpeningFloat types.Money `db:"opening_float" json:"openingFloat"`
	Status       Status      `db:"status" json:"status"`
	OpenedAt     time.Time   `db:"opened_at" json:"openedAt"`

	// Set at close only.
	ClosedAt       *time.Time   `db:"closed_at" json:"closedAt,omitempty"`
	ClosedBy       string       `db:"closed_by" json:"closedBy,omitempty"`
	CashSales      *types.Money `db:"cash_sales" json:"cashSales,omitempty"`
	CashDrops      *types.Money `db:"cash_drops" json:"cashDrops,omitempty"`
	ExpectedAmount *types.Money `db:"expected_amount" json:"expectedAmount,omitempty"`
	CountedAmount  *types.Money `db:"counted_amount" json:"countedAmount,omitempty"`
	Variance       *types.Money `db:"variance" json:"variance,omitempty"`
}

// IsOpen reports whether sales can still be tagged with the session.
func (s *Session) IsOpen() bool {
	return s.Status == StatusOpen
}

func (s *Session) requireOpen() error {
	if s.IsOpen() {
		return nil
	}
	return apperror.NewInvariantViolation("cash session is closed").
		WithDetail("session_id", s.ID.String())
}

// CashDrop is cash removed from an open drawer (to the safe, for a bank run).
type CashDrop struct {
	ID        id.ID       `db:"id" json:"id"`
	SessionID id.ID       `db:"session_id" json:"sessionId"`
	Amount    types.Money `db:"amount" json:"amount"`
	Reason    string      `db:"reason" json:"reason,omitempty"`
	ActorID   string      `db:"actor_id" json:"actorId"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// Reconciliation is the close-time cash computation:
//
//	expected = opening float + cash sales − cash drops
//	variance = counted − expected
type Reconciliation struct {
	OpeningFloat types.Money
	CashSales    types.Money
	CashDrops    types.Money
	Expected     types.Money
	Counted      types.Money
	Variance     types.Money
}

// Reconcile computes the close-time figures.
func Reconcile(openingFloat, cashSales, cashDrops, counted types.Money) Reconciliation {
	expected := openingFloat.Add(cashSales).Sub(cashDrops)
	return Reconciliation{
		OpeningFloat: openingFloat,
		CashSales:    cashSales,
		CashDrops:    cashDrops,
		Expected:     expected,
		Counted:      counted,
		Variance:     counted.Sub(expected),
	}
}
