// Package register_repo provides the PostgreSQL implementation of the stock ledger.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/registers/stock"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

const (
	stockBatchesTable   = "reg_stock_batches"
	stockMovementsTable = "reg_stock_movements"
)

var (
	batchCols    = postgres.ExtractDBColumns[stock.Batch]()
	movementCols = postgres.ExtractDBColumns[stock.Movement]()

	// fefoOrder is the allocation and lock order. Locking in one global order
	// keeps concurrent sales of the same item from deadlocking.
	fefoOrder = []string{"expiry_date", "received_at", "id"}

	batchListSpec = postgres.ListSpec{
		SearchColumn: "batch_code",
		Sortable:     []string{"expiry_date", "received_at", "batch_code", "remaining_quantity"},
		DefaultOrder: "expiry_date ASC, received_at ASC",
		TieBreaker:   "id",
	}
	movementListSpec = postgres.ListSpec{
		DateColumn:   "created_at",
		Sortable:     []string{"created_at"},
		DefaultOrder: "created_at DESC",
		TieBreaker:   "id DESC",
	}
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	inserter  *postgres.BatchInserter
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   postgres.Builder(),
		inserter:  postgres.NewBatchInserter(txManager),
	}
}

func (r *StockRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// --- Batches ---

func (r *StockRepo) CreateBatch(ctx context.Context, batch *stock.Batch) error {
	q := r.builder.
		Insert(stockBatchesTable).
		SetMap(postgres.PickColumns(postgres.StructToMap(batch), batchCols))

	if _, err := postgres.Exec(ctx, r.querier(ctx), q); err != nil {
		if postgres.IsUniqueViolation(err, stockBatchesTable+"_pkey") {
			return apperror.NewInvariantViolation("batch already exists").WithDetail("batch_id", batch.ID.String())
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *StockRepo) batchSelect() squirrel.SelectBuilder {
	return r.builder.Select(batchCols...).From(stockBatchesTable)
}

func (r *StockRepo) GetBatch(ctx context.Context, batchID id.ID) (*stock.Batch, error) {
	b := &stock.Batch{}
	err := postgres.GetOne(ctx, r.querier(ctx), b,
		r.batchSelect().Where(squirrel.Eq{"id": batchID}),
		"stock_batch", batchID.String())
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *StockRepo) GetBatchForUpdate(ctx context.Context, batchID id.ID) (*stock.Batch, error) {
	b := &stock.Batch{}
	err := postgres.GetOne(ctx, r.querier(ctx), b,
		r.batchSelect().Where(squirrel.Eq{"id": batchID}).Suffix("FOR UPDATE"),
		"stock_batch", batchID.String())
	if err != nil {
		return nil, err
	}
	return b, nil
}

// allocationQuery selects the sellable batches of an item in FEFO order, locked.
func (r *StockRepo) allocationQuery(itemID id.ID, expiresAfter *time.Time) squirrel.SelectBuilder {
	q := r.batchSelect().
		Where(squirrel.Eq{"item_id": itemID}).
		Where(squirrel.Gt{"remaining_quantity": 0})
	if expiresAfter != nil {
		q = q.Where(squirrel.Gt{"expiry_date": *expiresAfter})
	}
	return q.OrderBy(fefoOrder...).Suffix("FOR UPDATE")
}

func (r *StockRepo) LockForAllocation(ctx context.Context, itemID id.ID, expiresAfter *time.Time) ([]*stock.Batch, error) {
	var out []*stock.Batch
	if err := postgres.SelectAll(ctx, r.querier(ctx), &out, r.allocationQuery(itemID, expiresAfter)); err != nil {
		return nil, fmt.Errorf("lock batches for allocation: %w", err)
	}
	return out, nil
}

// UpdateRemaining writes RemainingQuantity when the stored version matches
// and bumps batch.Version.
func (r *StockRepo) UpdateRemaining(ctx context.Context, batch *stock.Batch) error {
	if batch.RemainingQuantity < 0 {
		return apperror.NewInvariantViolation("batch remaining quantity cannot be negative").
			WithDetail("batch_id", batch.ID.String())
	}

	q := r.builder.
		Update(stockBatchesTable).
		Set("remaining_quantity", batch.RemainingQuantity).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": batch.ID, "version": batch.Version})

	affected, err := postgres.Exec(ctx, r.querier(ctx), q)
	if err != nil {
		return fmt.Errorf("update batch remaining: %w", err)
	}
	if affected == 0 {
		if _, err := r.GetBatch(ctx, batch.ID); err != nil {
			return err
		}
		return apperror.NewConcurrencyConflict("stock_batch", batch.ID.String())
	}

	batch.Version++
	return nil
}

func (r *StockRepo) ListBatches(ctx context.Context, f stock.BatchFilter) (domain.ListResult[*stock.Batch], error) {
	q := postgres.ApplyListFilter(r.batchSelect(), f.ListFilter, batchListSpec)
	if f.ItemID != nil {
		q = q.Where(squirrel.Eq{"item_id": *f.ItemID})
	}
	if f.OnlyAvailable {
		q = q.Where(squirrel.Gt{"remaining_quantity": 0})
	}
	if f.ExpiringBefore != nil {
		q = q.Where(squirrel.Lt{"expiry_date": *f.ExpiringBefore})
	}
	if f.PurchaseOrderLineID != nil {
		q = q.Where(squirrel.Eq{"purchase_order_line_id": *f.PurchaseOrderLineID})
	}
	return postgres.SelectPage[*stock.Batch](ctx, r.querier(ctx), q, f.ListFilter, batchListSpec)
}

// OnHand sums remaining quantity per item straight from the batches.
func (r *StockRepo) OnHand(ctx context.Context, itemIDs []id.ID) (map[id.ID]types.Quantity, error) {
	out := make(map[id.ID]types.Quantity, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ItemID id.ID          `db:"item_id"`
		OnHand types.Quantity `db:"on_hand"`
	}
	err := postgres.SelectAll(ctx, r.querier(ctx), &rows, r.builder.
		Select("item_id", "SUM(remaining_quantity)::bigint AS on_hand").
		From(stockBatchesTable).
		Where(squirrel.Eq{"item_id": itemIDs}).
		GroupBy("item_id"))
	if err != nil {
		return nil, fmt.Errorf("on hand: %w", err)
	}

	for _, row := range rows {
		out[row.ItemID] = row.OnHand
	}
	return out, nil
}

// --- Movements ---

// CreateMovements appends movements to the log. Inside a transaction the
// rows are streamed with COPY.
func (r *StockRepo) CreateMovements(ctx context.Context, movements []stock.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(movements))
	for _, m := range movements {
		if !m.Kind.IsValid() {
			return apperror.NewValidation("unknown movement kind " + string(m.Kind))
		}
		rows = append(rows, []any{
			m.ID, m.ItemID, m.BatchID, m.Kind, m.Quantity, m.Delta,
			m.ReferenceType, m.ReferenceID, m.ReferenceLineID,
			m.ActorID, m.Reason, m.CreatedAt,
		})
	}

	if r.txManager.GetTx(ctx) != nil {
		_, err := r.inserter.CopyFromSlice(ctx, stockMovementsTable, movementCols, rows)
		return err
	}

	q := r.builder.Insert(stockMovementsTable).Columns(movementCols...)
	for _, row := range rows {
		q = q.Values(row...)
	}
	if _, err := postgres.Exec(ctx, r.querier(ctx), q); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}
	return nil
}

func (r *StockRepo) ListMovements(ctx context.Context, f stock.MovementFilter) (domain.ListResult[stock.Movement], error) {
	q := postgres.ApplyListFilter(
		r.builder.Select(movementCols...).From(stockMovementsTable),
		f.ListFilter, movementListSpec)
	if f.ItemID != nil {
		q = q.Where(squirrel.Eq{"item_id": *f.ItemID})
	}
	if f.BatchID != nil {
		q = q.Where(squirrel.Eq{"batch_id": *f.BatchID})
	}
	if f.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *f.Kind})
	}
	if f.ReferenceType != "" {
		q = q.Where(squirrel.Eq{"reference_type": f.ReferenceType})
	}
	if f.ReferenceID != nil {
		q = q.Where(squirrel.Eq{"reference_id": *f.ReferenceID})
	}
	return postgres.SelectPage[stock.Movement](ctx, r.querier(ctx), q, f.ListFilter, movementListSpec)
}

func (r *StockRepo) SumMovementDeltas(ctx context.Context, batchID id.ID) (types.Quantity, error) {
	sql, args, err := r.builder.
		Select("COALESCE(SUM(delta), 0)::bigint").
		From(stockMovementsTable).
		Where(squirrel.Eq{"batch_id": batchID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var sum types.Quantity
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum movement deltas: %w", err)
	}
	return sum, nil
}
