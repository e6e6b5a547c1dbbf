package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/registers/stock"
	"pharmaledger/internal/infrastructure/storage/memory"
)

func TestTxManager_RollsBackOnError(t *testing.T) {
	db := memory.NewDB()
	txm := memory.NewTxManager(db)
	repo := memory.NewStockRepo(db)
	ctx := context.Background()

	kept := &stock.Batch{ID: id.New(), ItemID: id.New(), BatchCode: "K", InitialQuantity: 3, RemainingQuantity: 3, Version: 1}
	require.NoError(t, repo.CreateBatch(ctx, kept))

	boom := errors.New("boom")
	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		dropped := &stock.Batch{ID: id.New(), ItemID: kept.ItemID, BatchCode: "D", InitialQuantity: 1, RemainingQuantity: 1, Version: 1}
		if err := repo.CreateBatch(ctx, dropped); err != nil {
			return err
		}
		drained := *kept
		drained.RemainingQuantity = 0
		if err := repo.UpdateRemaining(ctx, &drained); err != nil {
			return err
		}
		// Nested calls join the outer transaction.
		return txm.RunInTransaction(ctx, func(context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.GetBatch(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(3), got.RemainingQuantity)
	assert.Equal(t, 1, got.Version)

	onHand, err := repo.OnHand(ctx, []id.ID{kept.ItemID})
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(3), onHand[kept.ItemID])
}
