package refund

import (
	"sort"

	"github.com/shopspring/decimal"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/documents/sale"
)

// lineShares splits the sale total (discount and tax included) across its
// lines in proportion to line subtotals. The last line absorbs rounding so the
// shares add up to the total exactly.
func lineShares(doc *sale.Sale) map[id.ID]types.Money {
	shares := make(map[id.ID]types.Money, len(doc.Lines))
	if len(doc.Lines) == 0 {
		return shares
	}
	allocated := types.Zero()
	for i, l := range doc.Lines {
		if i == len(doc.Lines)-1 {
			shares[l.ID] = doc.Total.Sub(allocated)
			break
		}
		share := types.Zero()
		if doc.Subtotal.IsPositive() {
			share = types.RoundMoney(doc.Total.Mul(l.Subtotal).Div(doc.Subtotal))
		}
		shares[l.ID] = share
		allocated = allocated.Add(share)
	}
	return shares
}

// proratedAmount prices quantity more units of a line whose share of the sale
// total is share, given refunded units already counted against it. Computing
// the cumulative value and subtracting the previous one makes the last unit
// absorb rounding.
func proratedAmount(share types.Money, sold, refunded, quantity types.Quantity) types.Money {
	if sold <= 0 {
		return types.Zero()
	}
	soldD := decimal.NewFromInt(sold.Int64())
	upTo := func(q types.Quantity) types.Money {
		if q >= sold {
			return share
		}
		return types.RoundMoney(share.Mul(decimal.NewFromInt(q.Int64())).Div(soldD))
	}
	return upTo(refunded + quantity).Sub(upTo(refunded))
}

// capacity is how many units of a sale line are still attributable to a batch.
type capacity struct {
	BatchID id.ID
	Units   types.Quantity
}

// batchCapacities returns, in allocation order, what each batch of the sale
// line can still take back given prior active refund attributions.
func batchCapacities(line *sale.Line, prior []Line) []capacity {
	used := make(map[id.ID]types.Quantity)
	for _, pl := range prior {
		if pl.SaleLineID != line.ID {
			continue
		}
		for _, a := range pl.Allocations {
			used[a.BatchID] += a.Quantity
		}
	}
	out := make([]capacity, 0, len(line.Allocations))
	for _, a := range line.Allocations {
		left := a.Quantity - used[a.BatchID]
		if left > 0 {
			out = append(out, capacity{BatchID: a.BatchID, Units: left})
		}
	}
	return out
}

// spread attributes quantity units across caps proportionally to their size
// using the largest remainder method. Ties go to the earlier batch.
// The caller guarantees quantity ≤ Σ caps.
func spread(quantity types.Quantity, caps []capacity) []Allocation {
	var total types.Quantity
	for _, c := range caps {
		total += c.Units
	}
	if total <= 0 || quantity <= 0 {
		return nil
	}

	type part struct {
		idx   int
		units types.Quantity
		rem   int64
	}
	parts := make([]part, len(caps))
	var assigned types.Quantity
	for i, c := range caps {
		num := quantity.Int64() * c.Units.Int64()
		parts[i] = part{idx: i, units: types.Quantity(num / total.Int64()), rem: num % total.Int64()}
		assigned += parts[i].units
	}

	order := make([]int, len(parts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return parts[order[a]].rem > parts[order[b]].rem
	})
	for _, i := range order {
		if assigned == quantity {
			break
		}
		if parts[i].units < caps[i].Units {
			parts[i].units++
			assigned++
		}
	}

	out := make([]Allocation, 0, len(parts))
	for _, p := range parts {
		if p.units > 0 {
			out = append(out, Allocation{BatchID: caps[p.idx].BatchID, Quantity: p.units})
		}
	}
	return out
}
