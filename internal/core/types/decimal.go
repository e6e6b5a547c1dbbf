// Package types provides money and quantity value types shared by the ledger.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// MoneyScale is the number of fractional digits kept for stored amounts.
const MoneyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds half-up (away from zero) to MoneyScale digits.
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}

// Percent returns pct percent of amount, rounded half-up to MoneyScale digits.
func Percent(amount Money, pct decimal.Decimal) Money {
	return RoundMoney(amount.Mul(pct).Div(hundred))
}

// LineAmount is quantity × unit price rounded to MoneyScale digits.
func LineAmount(q Quantity, unitPrice Money) Money {
	return RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(q))))
}

// Quantity is a whole number of dispensable units (tablets, vials, packs).
//
// JSON form is a plain integer. Fractional input is rejected rather than rounded.
type Quantity int64

func (q Quantity) Int64() int64 { return int64(q) }

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) Neg() Quantity { return -q }

func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

func (q Quantity) String() string {
	return strconv.FormatInt(int64(q), 10)
}

// MarshalJSON encodes Quantity as a JSON integer.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts either a JSON number or string holding an integer.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	parsed, err := ParseQuantity(string(data))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// ParseQuantity parses a whole-unit quantity. "5" and "5.0" are accepted, "5.5" is not.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Quantity(v), nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse quantity: %w", err)
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("quantity must be a whole number of units: %s", s)
	}
	return Quantity(d.IntPart()), nil
}
