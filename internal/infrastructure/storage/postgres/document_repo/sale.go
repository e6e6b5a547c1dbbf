package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/documents/sale"
	"pharmaledger/internal/domain/registers/stock"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

const (
	saleTable           = "doc_sales"
	saleLineTable       = "doc_sale_lines"
	saleAllocationTable = "doc_sale_line_allocations"
)

var (
	saleLineCols       = postgres.ExtractDBColumns[sale.Line]()
	saleAllocationCols = []string{"sale_line_id", "sale_id", "seq", "batch_id", "quantity", "unit_cost", "expiry_date"}
)

// saleAllocationRow is one allocation row with its owning line.
type saleAllocationRow struct {
	SaleLineID id.ID `db:"sale_line_id"`
	stock.Allocation
}

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	*BaseDocumentRepo[*sale.Sale]
	inserter *postgres.BatchInserter
}

var _ sale.Repository = (*SaleRepo)(nil)

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*sale.Sale](
			txManager, saleTable, "sale", postgres.ExtractDBColumns[sale.Sale](),
		),
		inserter: postgres.NewBatchInserter(txManager),
	}
}

func (r *SaleRepo) Create(ctx context.Context, doc *sale.Sale) error {
	return r.BaseDocumentRepo.Create(ctx, doc)
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	doc := &sale.Sale{}
	if err := r.BaseDocumentRepo.GetByID(ctx, doc, saleID); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	doc := &sale.Sale{}
	if err := r.BaseDocumentRepo.GetForUpdate(ctx, doc, saleID); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *SaleRepo) Update(ctx context.Context, doc *sale.Sale) error {
	version, updatedAt, err := r.BaseDocumentRepo.Update(ctx, doc)
	if err != nil {
		return err
	}
	doc.Version, doc.UpdatedAt = version, updatedAt
	return nil
}

// GetLines returns the lines ordered by line number, with their allocations
// in the order they were drawn.
func (r *SaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]sale.Line, error) {
	querier := r.Querier(ctx)

	var lines []sale.Line
	err := postgres.SelectAll(ctx, querier, &lines, r.Builder().
		Select(saleLineCols...).
		From(saleLineTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("line_no"))
	if err != nil {
		return nil, fmt.Errorf("sale lines: %w", err)
	}

	var allocs []saleAllocationRow
	err = postgres.SelectAll(ctx, querier, &allocs, r.Builder().
		Select("sale_line_id", "batch_id", "quantity", "unit_cost", "expiry_date").
		From(saleAllocationTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("sale_line_id", "seq"))
	if err != nil {
		return nil, fmt.Errorf("sale allocations: %w", err)
	}

	byLine := make(map[id.ID][]stock.Allocation, len(lines))
	for _, a := range allocs {
		byLine[a.SaleLineID] = append(byLine[a.SaleLineID], a.Allocation)
	}
	for i := range lines {
		lines[i].Allocations = byLine[lines[i].ID]
	}
	return lines, nil
}

// SaveLines replaces the lines of a sale and their allocations.
func (r *SaleRepo) SaveLines(ctx context.Context, saleID id.ID, lines []sale.Line) error {
	querier := r.Querier(ctx)
	if _, err := postgres.Exec(ctx, querier, r.Builder().
		Delete(saleLineTable).Where(squirrel.Eq{"sale_id": saleID})); err != nil {
		return fmt.Errorf("delete sale lines: %w", err)
	}

	lineRows := make([][]any, 0, len(lines))
	var allocRows [][]any
	for _, l := range lines {
		lineRows = append(lineRows, []any{l.ID, saleID, l.LineNo, l.ItemID, l.Quantity, l.UnitPrice, l.Subtotal})
		for seq, a := range l.Allocations {
			allocRows = append(allocRows, []any{l.ID, saleID, seq + 1, a.BatchID, a.Quantity, a.UnitCost, a.ExpiryDate})
		}
	}

	if _, err := r.inserter.CopyFromSlice(ctx, saleLineTable, saleLineCols, lineRows); err != nil {
		return err
	}
	if _, err := r.inserter.CopyFromSlice(ctx, saleAllocationTable, saleAllocationCols, allocRows); err != nil {
		return err
	}
	return nil
}

func (r *SaleRepo) List(ctx context.Context, f sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	var where []squirrel.Sqlizer
	if f.CashierID != "" {
		where = append(where, squirrel.Eq{"cashier_id": f.CashierID})
	}
	if f.SessionID != nil {
		where = append(where, squirrel.Eq{"session_id": *f.SessionID})
	}
	if f.CustomerID != nil {
		where = append(where, squirrel.Eq{"customer_id": *f.CustomerID})
	}
	if f.Status != nil {
		where = append(where, squirrel.Eq{"status": *f.Status})
	}
	if f.PaymentMethod != nil {
		where = append(where, squirrel.Eq{"payment_method": *f.PaymentMethod})
	}
	return r.BaseDocumentRepo.List(ctx, f.ListFilter, where...)
}

// CashSalesTotal sums completed cash sales of the session.
func (r *SaleRepo) CashSalesTotal(ctx context.Context, sessionID id.ID) (types.Money, error) {
	sql, args, err := r.Builder().
		Select("COALESCE(SUM(total), 0)").
		From(saleTable).
		Where(squirrel.Eq{
			"session_id":     sessionID,
			"status":         sale.StatusCompleted,
			"payment_method": sale.PaymentCash,
		}).
		ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build query: %w", err)
	}

	total := types.Zero()
	if err := r.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return types.Zero(), fmt.Errorf("cash sales total: %w", err)
	}
	return total, nil
}
