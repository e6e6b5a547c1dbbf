package apptest

import (
	"context"
	"errors"

	"pharmaledger/internal/core/tx"
)

var errSerialization = errors.New("could not serialize access")

// RetryingTx fails the first committed attempt of every transaction after fn
// succeeds, rolls it back and runs fn again, the way the Postgres manager
// retries serialization failures.
type RetryingTx struct {
	inner    tx.Manager
	Attempts int
}

// NewRetryingTx wraps inner.
func NewRetryingTx(inner tx.Manager) *RetryingTx {
	return &RetryingTx{inner: inner}
}

// RunInTransaction implements tx.Manager.
func (r *RetryingTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	first := true
	for {
		r.Attempts++
		err := r.inner.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := fn(ctx); err != nil {
				return err
			}
			if first {
				return errSerialization
			}
			return nil
		})
		if first && errors.Is(err, errSerialization) {
			first = false
			continue
		}
		return err
	}
}

var _ tx.Manager = (*RetryingTx)(nil)
