package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/documents/stock_adjustment"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

const stockAdjustmentTable = "doc_stock_adjustments"

// StockAdjustmentRepo implements stock_adjustment.Repository.
type StockAdjustmentRepo struct {
	*BaseDocumentRepo[*stock_adjustment.StockAdjustment]
}

var _ stock_adjustment.Repository = (*StockAdjustmentRepo)(nil)

// NewStockAdjustmentRepo creates a new stock adjustment repository.
func NewStockAdjustmentRepo(txManager *postgres.TxManager) *StockAdjustmentRepo {
	return &StockAdjustmentRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*stock_adjustment.StockAdjustment](
			txManager, stockAdjustmentTable, "stock_adjustment",
			postgres.ExtractDBColumns[stock_adjustment.StockAdjustment](),
		),
	}
}

func (r *StockAdjustmentRepo) Create(ctx context.Context, doc *stock_adjustment.StockAdjustment) error {
	return r.BaseDocumentRepo.Create(ctx, doc)
}

func (r *StockAdjustmentRepo) GetByID(ctx context.Context, adjustmentID id.ID) (*stock_adjustment.StockAdjustment, error) {
	doc := &stock_adjustment.StockAdjustment{}
	if err := r.BaseDocumentRepo.GetByID(ctx, doc, adjustmentID); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *StockAdjustmentRepo) GetForUpdate(ctx context.Context, adjustmentID id.ID) (*stock_adjustment.StockAdjustment, error) {
	doc := &stock_adjustment.StockAdjustment{}
	if err := r.BaseDocumentRepo.GetForUpdate(ctx, doc, adjustmentID); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *StockAdjustmentRepo) Update(ctx context.Context, doc *stock_adjustment.StockAdjustment) error {
	version, updatedAt, err := r.BaseDocumentRepo.Update(ctx, doc)
	if err != nil {
		return err
	}
	doc.Version, doc.UpdatedAt = version, updatedAt
	return nil
}

func (r *StockAdjustmentRepo) List(ctx context.Context, f stock_adjustment.ListFilter) (domain.ListResult[*stock_adjustment.StockAdjustment], error) {
	var where []squirrel.Sqlizer
	if f.BatchID != nil {
		where = append(where, squirrel.Eq{"batch_id": *f.BatchID})
	}
	if f.ItemID != nil {
		where = append(where, squirrel.Eq{"item_id": *f.ItemID})
	}
	if f.Status != nil {
		where = append(where, squirrel.Eq{"status": *f.Status})
	}
	return r.BaseDocumentRepo.List(ctx, f.ListFilter, where...)
}
