package sale

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/types"
)

// Discount is either a fixed amount or a percentage of the subtotal.
type Discount struct {
	Amount  *types.Money
	Percent *decimal.Decimal
}

// Totals of a priced cart.
type Totals struct {
	Subtotal types.Money
	Discount types.Money
	Tax      types.Money
	Total    types.Money
}

// Payment is the settled payment of a sale.
type Payment struct {
	Method   PaymentMethod
	Tendered types.Money
	Change   types.Money
}

var hundred = decimal.NewFromInt(100)

// ComputeTotals prices the cart:
//
//	subtotal = Σ round(quantity × unit price)
//	tax      = round((subtotal − discount) × rate / 100)
//	total    = subtotal − discount + tax
func ComputeTotals(lines []LineRequest, d Discount, taxRate decimal.Decimal) (Totals, error) {
	if taxRate.IsNegative() {
		return Totals{}, apperror.NewValidation("tax rate cannot be negative")
	}

	subtotal := types.Zero()
	for _, l := range lines {
		subtotal = subtotal.Add(types.LineAmount(l.Quantity, l.UnitPrice))
	}

	discount := types.Zero()
	switch {
	case d.Amount != nil && d.Percent != nil:
		return Totals{}, apperror.NewValidation("discount must be an amount or a percentage, not both").
			WithDetail("field", "discount")
	case d.Amount != nil:
		if d.Amount.IsNegative() {
			return Totals{}, apperror.NewValidation("discount cannot be negative").WithDetail("field", "discountAmount")
		}
		discount = types.RoundMoney(*d.Amount)
	case d.Percent != nil:
		if d.Percent.IsNegative() || d.Percent.GreaterThan(hundred) {
			return Totals{}, apperror.NewValidation("discount percent must be between 0 and 100").
				WithDetail("field", "discountPercent")
		}
		discount = types.Percent(subtotal, *d.Percent)
	}
	if discount.GreaterThan(subtotal) {
		return Totals{}, apperror.NewValidation(fmt.Sprintf("discount %s exceeds subtotal %s", discount.StringFixed(2), subtotal.StringFixed(2))).
			WithDetail("field", "discount")
	}

	taxable := subtotal.Sub(discount)
	tax := types.Percent(taxable, taxRate)

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    taxable.Add(tax),
	}, nil
}

// SettlePayment checks the tendered amount. Cash must cover the total and
// yields change; other methods are settled for exactly the total.
func SettlePayment(method PaymentMethod, tendered, total types.Money) (Payment, error) {
	if !method.IsValid() {
		return Payment{}, apperror.NewValidation(fmt.Sprintf("unsupported payment method %q", method)).
			WithDetail("field", "paymentMethod")
	}
	if method != PaymentCash {
		return Payment{Method: method, Tendered: total, Change: types.Zero()}, nil
	}
	tendered = types.RoundMoney(tendered)
	if tendered.LessThan(total) {
		return Payment{}, apperror.NewValidation("amount tendered is less than total").
			WithDetail("field", "amountTendered").
			WithDetail("total", total.StringFixed(2)).
			WithDetail("tendered", tendered.StringFixed(2))
	}
	return Payment{Method: method, Tendered: tendered, Change: tendered.Sub(total)}, nil
}
