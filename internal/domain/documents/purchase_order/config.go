package purchase_order

import "pharmaledger/internal/core/numerator"

const (
	// NumeratorStrategy defines the numbering strategy for purchase orders and receipts.
	// Numbers may have gaps.
	NumeratorStrategy = numerator.StrategyCached
)
