package sale

import "pharmaledger/internal/core/numerator"

const (
	// NumeratorStrategy defines the numbering strategy for sales.
	// Sale numbers are drawn inside the sale transaction and never skip.
	NumeratorStrategy = numerator.StrategyStrict
)
