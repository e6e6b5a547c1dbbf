package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/documents/refund"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

const (
	refundTable           = "doc_refunds"
	refundLineTable       = "doc_refund_lines"
	refundAllocationTable = "doc_refund_line_allocations"
)

var (
	refundLineCols       = postgres.ExtractDBColumns[refund.Line]()
	refundAllocationCols = []string{"refund_line_id", "refund_id", "seq", "batch_id", "quantity"}
)

type refundAllocationRow struct {
	RefundLineID id.ID `db:"refund_line_id"`
	refund.Allocation
}

// RefundRepo implements refund.Repository.
type RefundRepo struct {
	*BaseDocumentRepo[*refund.Refund]
	inserter *postgres.BatchInserter
}

var _ refund.Repository = (*RefundRepo)(nil)

// NewRefundRepo creates a new refund repository.
func NewRefundRepo(txManager *postgres.TxManager) *RefundRepo {
	return &RefundRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*refund.Refund](
			txManager, refundTable, "refund", postgres.ExtractDBColumns[refund.Refund](),
		),
		inserter: postgres.NewBatchInserter(txManager),
	}
}

func (r *RefundRepo) Create(ctx context.Context, doc *refund.Refund) error {
	return r.BaseDocumentRepo.Create(ctx, doc)
}

func (r *RefundRepo) GetByID(ctx context.Context, refundID id.ID) (*refund.Refund, error) {
	doc := &refund.Refund{}
	if err := r.BaseDocumentRepo.GetByID(ctx, doc, refundID); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *RefundRepo) GetForUpdate(ctx context.Context, refundID id.ID) (*refund.Refund, error) {
	doc := &refund.Refund{}
	if err := r.BaseDocumentRepo.GetForUpdate(ctx, doc, refundID); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *RefundRepo) Update(ctx context.Context, doc *refund.Refund) error {
	version, updatedAt, err := r.BaseDocumentRepo.Update(ctx, doc)
	if err != nil {
		return err
	}
	doc.Version, doc.UpdatedAt = version, updatedAt
	return nil
}

func (r *RefundRepo) GetLines(ctx context.Context, refundID id.ID) ([]refund.Line, error) {
	return r.loadLines(ctx, squirrel.Eq{"l.refund_id": refundID})
}

// ActiveLines returns the lines of every non-cancelled refund of the sale.
func (r *RefundRepo) ActiveLines(ctx context.Context, saleID id.ID) ([]refund.Line, error) {
	return r.loadLines(ctx, squirrel.Expr(
		"l.refund_id IN (SELECT id FROM "+refundTable+" WHERE sale_id = ? AND status <> ?)",
		saleID, refund.StatusCancelled,
	))
}

func (r *RefundRepo) loadLines(ctx context.Context, where squirrel.Sqlizer) ([]refund.Line, error) {
	querier := r.Querier(ctx)

	cols := make([]string, len(refundLineCols))
	for i, c := range refundLineCols {
		cols[i] = "l." + c
	}
	var lines []refund.Line
	err := postgres.SelectAll(ctx, querier, &lines, r.Builder().
		Select(cols...).
		From(refundLineTable+" l").
		Where(where).
		OrderBy("l.refund_id", "l.line_no"))
	if err != nil {
		return nil, fmt.Errorf("refund lines: %w", err)
	}
	if len(lines) == 0 {
		return lines, nil
	}

	lineIDs := make([]id.ID, len(lines))
	for i := range lines {
		lineIDs[i] = lines[i].ID
	}
	var allocs []refundAllocationRow
	err = postgres.SelectAll(ctx, querier, &allocs, r.Builder().
		Select("refund_line_id", "batch_id", "quantity").
		From(refundAllocationTable).
		Where(squirrel.Eq{"refund_line_id": lineIDs}).
		OrderBy("refund_line_id", "seq"))
	if err != nil {
		return nil, fmt.Errorf("refund allocations: %w", err)
	}

	byLine := make(map[id.ID][]refund.Allocation, len(lines))
	for _, a := range allocs {
		byLine[a.RefundLineID] = append(byLine[a.RefundLineID], a.Allocation)
	}
	for i := range lines {
		lines[i].Allocations = byLine[lines[i].ID]
	}
	return lines, nil
}

// SaveLines replaces the lines of a refund and their batch attributions.
func (r *RefundRepo) SaveLines(ctx context.Context, refundID id.ID, lines []refund.Line) error {
	if _, err := postgres.Exec(ctx, r.Querier(ctx), r.Builder().
		Delete(refundLineTable).Where(squirrel.Eq{"refund_id": refundID})); err != nil {
		return fmt.Errorf("delete refund lines: %w", err)
	}

	lineRows := make([][]any, 0, len(lines))
	var allocRows [][]any
	for _, l := range lines {
		lineRows = append(lineRows, []any{l.ID, refundID, l.LineNo, l.SaleLineID, l.ItemID, l.Quantity, l.Amount})
		for seq, a := range l.Allocations {
			allocRows = append(allocRows, []any{l.ID, refundID, seq + 1, a.BatchID, a.Quantity})
		}
	}

	if _, err := r.inserter.CopyFromSlice(ctx, refundLineTable, refundLineCols, lineRows); err != nil {
		return err
	}
	_, err := r.inserter.CopyFromSlice(ctx, refundAllocationTable, refundAllocationCols, allocRows)
	return err
}

// ListBySale returns every refund of the sale, oldest first.
func (r *RefundRepo) ListBySale(ctx context.Context, saleID id.ID) ([]*refund.Refund, error) {
	var out []*refund.Refund
	err := postgres.SelectAll(ctx, r.Querier(ctx), &out, r.baseSelect().
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("created_at", "id"))
	if err != nil {
		return nil, fmt.Errorf("refunds of sale: %w", err)
	}
	return out, nil
}

func (r *RefundRepo) HasActive(ctx context.Context, saleID id.ID) (bool, error) {
	sql, args, err := r.Builder().
		Select("1").
		From(refundTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		Where(squirrel.NotEq{"status": refund.StatusCancelled}).
		Prefix("SELECT EXISTS (").Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var found bool
	if err := r.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("active refunds: %w", err)
	}
	return found, nil
}

func (r *RefundRepo) List(ctx context.Context, f refund.ListFilter) (domain.ListResult[*refund.Refund], error) {
	var where []squirrel.Sqlizer
	if f.SaleID != nil {
		where = append(where, squirrel.Eq{"sale_id": *f.SaleID})
	}
	if f.Status != nil {
		where = append(where, squirrel.Eq{"status": *f.Status})
	}
	return r.BaseDocumentRepo.List(ctx, f.ListFilter, where...)
}
