package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/reorder"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

const reorderLevelTable = "cat_reorder_levels"

// reorderGenerationLockKey is the advisory lock taken while drafting orders.
const reorderGenerationLockKey int64 = 0x5245_4f52_4445_52

var (
	reorderLevelCols = postgres.ExtractDBColumns[reorder.Level]()

	reorderListSpec = postgres.ListSpec{
		IDColumn:     "item_id",
		Sortable:     []string{"minimum_stock", "reorder_quantity", "updated_at"},
		DefaultOrder: "item_id",
	}
)

// ReorderLevelRepo implements reorder.Repository.
type ReorderLevelRepo struct {
	txManager *postgres.TxManager
}

var _ reorder.Repository = (*ReorderLevelRepo)(nil)

// NewReorderLevelRepo creates a new reorder level repository.
func NewReorderLevelRepo(txManager *postgres.TxManager) *ReorderLevelRepo {
	return &ReorderLevelRepo{txManager: txManager}
}

// Upsert updates the level when the version matches or inserts a new one.
func (r *ReorderLevelRepo) Upsert(ctx context.Context, level *reorder.Level) error {
	querier := r.txManager.GetQuerier(ctx)
	data := postgres.StructToMap(level)

	update := postgres.Builder().
		Update(reorderLevelTable).
		SetMap(postgres.PickColumns(data, postgres.ColumnsExcept(reorderLevelCols, "item_id", "version"))).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"item_id": level.ItemID, "version": level.Version})

	affected, err := postgres.Exec(ctx, querier, update)
	if err != nil {
		return fmt.Errorf("update reorder level: %w", err)
	}
	if affected == 1 {
		level.Version++
		return nil
	}

	data["version"] = 1
	insert := postgres.Builder().
		Insert(reorderLevelTable).
		SetMap(postgres.PickColumns(data, reorderLevelCols)).
		Suffix("ON CONFLICT (item_id) DO NOTHING")
	affected, err = postgres.Exec(ctx, querier, insert)
	if err != nil {
		return fmt.Errorf("insert reorder level: %w", err)
	}
	if affected == 0 {
		return apperror.NewConcurrencyConflict("reorder_level", level.ItemID.String())
	}
	level.Version = 1
	return nil
}

func (r *ReorderLevelRepo) Get(ctx context.Context, itemID id.ID) (*reorder.Level, error) {
	level := &reorder.Level{}
	q := postgres.Builder().
		Select(reorderLevelCols...).
		From(reorderLevelTable).
		Where(squirrel.Eq{"item_id": itemID})
	if err := postgres.GetOne(ctx, r.txManager.GetQuerier(ctx), level, q, "reorder_level", itemID.String()); err != nil {
		return nil, err
	}
	return level, nil
}

func (r *ReorderLevelRepo) Delete(ctx context.Context, itemID id.ID) error {
	affected, err := postgres.Exec(ctx, r.txManager.GetQuerier(ctx), postgres.Builder().
		Delete(reorderLevelTable).
		Where(squirrel.Eq{"item_id": itemID}))
	if err != nil {
		return fmt.Errorf("delete reorder level: %w", err)
	}
	if affected == 0 {
		return apperror.NewNotFound("reorder_level", itemID.String())
	}
	return nil
}

func (r *ReorderLevelRepo) List(ctx context.Context, f reorder.ListFilter) (domain.ListResult[*reorder.Level], error) {
	q := postgres.ApplyListFilter(
		postgres.Builder().Select(reorderLevelCols...).From(reorderLevelTable),
		f.ListFilter, reorderListSpec)
	if f.AutoReorder != nil {
		q = q.Where(squirrel.Eq{"auto_reorder": *f.AutoReorder})
	}
	if f.SupplierID != nil {
		q = q.Where(squirrel.Eq{"preferred_supplier_id": *f.SupplierID})
	}
	return postgres.SelectPage[*reorder.Level](ctx, r.txManager.GetQuerier(ctx), q, f.ListFilter, reorderListSpec)
}

func (r *ReorderLevelRepo) All(ctx context.Context) ([]*reorder.Level, error) {
	var out []*reorder.Level
	err := postgres.SelectAll(ctx, r.txManager.GetQuerier(ctx), &out, postgres.Builder().
		Select(reorderLevelCols...).
		From(reorderLevelTable).
		OrderBy("item_id"))
	if err != nil {
		return nil, fmt.Errorf("reorder levels: %w", err)
	}
	return out, nil
}

// LockGeneration takes a transaction-scoped advisory lock.
func (r *ReorderLevelRepo) LockGeneration(ctx context.Context) error {
	if r.txManager.GetTx(ctx) == nil {
		return fmt.Errorf("lock reorder generation: no transaction in context")
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, "SELECT pg_advisory_xact_lock($1)", reorderGenerationLockKey); err != nil {
		return fmt.Errorf("lock reorder generation: %w", err)
	}
	return nil
}
