package stock_adjustment

import "pharmaledger/internal/core/numerator"

const (
	// NumeratorStrategy defines the numbering strategy for stock adjustments.
	NumeratorStrategy = numerator.StrategyStrict
)
