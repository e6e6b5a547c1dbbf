package refund

import "pharmaledger/internal/core/numerator"

const (
	// NumeratorStrategy defines the numbering strategy for refunds.
	NumeratorStrategy = numerator.StrategyStrict
)
