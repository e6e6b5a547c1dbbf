package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/documents/purchase_order"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

const (
	purchaseOrderTable     = "doc_purchase_orders"
	purchaseOrderLineTable = "doc_purchase_order_lines"
	receiptTable           = "doc_purchase_receipts"
	receiptLineTable       = "doc_purchase_receipt_lines"
)

var (
	purchaseOrderLineCols = postgres.ExtractDBColumns[purchase_order.Line]()
	receiptCols           = postgres.ExtractDBColumns[purchase_order.Receipt]()
	receiptLineCols       = postgres.ExtractDBColumns[purchase_order.ReceiptLine]()

	openOrderStatuses = []purchase_order.Status{
		purchase_order.StatusDraft,
		purchase_order.StatusApproved,
		purchase_order.StatusPartiallyReceived,
	}
)

// PurchaseOrderRepo implements purchase_order.Repository.
type PurchaseOrderRepo struct {
	*BaseDocumentRepo[*purchase_order.PurchaseOrder]
	inserter *postgres.BatchInserter
	batch    *postgres.BatchExecutor
}

var _ purchase_order.Repository = (*PurchaseOrderRepo)(nil)

// NewPurchaseOrderRepo creates a new purchase order repository.
func NewPurchaseOrderRepo(txManager *postgres.TxManager) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*purchase_order.PurchaseOrder](
			txManager, purchaseOrderTable, "purchase_order", postgres.ExtractDBColumns[purchase_order.PurchaseOrder](),
		),
		inserter: postgres.NewBatchInserter(txManager),
		batch:    postgres.NewBatchExecutor(txManager),
	}
}

func (r *PurchaseOrderRepo) Create(ctx context.Context, doc *purchase_order.PurchaseOrder) error {
	return r.BaseDocumentRepo.Create(ctx, doc)
}

func (r *PurchaseOrderRepo) GetByID(ctx context.Context, orderID id.ID) (*purchase_order.PurchaseOrder, error) {
	doc := &purchase_order.PurchaseOrder{}
	if err := r.BaseDocumentRepo.GetByID(ctx, doc, orderID); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*purchase_order.PurchaseOrder, error) {
	doc := &purchase_order.PurchaseOrder{}
	if err := r.BaseDocumentRepo.GetForUpdate(ctx, doc, orderID); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *PurchaseOrderRepo) Update(ctx context.Context, doc *purchase_order.PurchaseOrder) error {
	version, updatedAt, err := r.BaseDocumentRepo.Update(ctx, doc)
	if err != nil {
		return err
	}
	doc.Version, doc.UpdatedAt = version, updatedAt
	return nil
}

func (r *PurchaseOrderRepo) GetLines(ctx context.Context, orderID id.ID) ([]purchase_order.Line, error) {
	var lines []purchase_order.Line
	err := postgres.SelectAll(ctx, r.Querier(ctx), &lines, r.Builder().
		Select(purchaseOrderLineCols...).
		From(purchaseOrderLineTable).
		Where(squirrel.Eq{"purchase_order_id": orderID}).
		OrderBy("line_no"))
	if err != nil {
		return nil, fmt.Errorf("purchase order lines: %w", err)
	}
	return lines, nil
}

// SaveLines replaces the lines of an order.
func (r *PurchaseOrderRepo) SaveLines(ctx context.Context, orderID id.ID, lines []purchase_order.Line) error {
	if _, err := postgres.Exec(ctx, r.Querier(ctx), r.Builder().
		Delete(purchaseOrderLineTable).Where(squirrel.Eq{"purchase_order_id": orderID})); err != nil {
		return fmt.Errorf("delete purchase order lines: %w", err)
	}

	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []any{l.ID, orderID, l.LineNo, l.ItemID, l.OrderedQuantity, l.ReceivedQuantity, l.UnitCost, l.Amount})
	}
	_, err := r.inserter.CopyFromSlice(ctx, purchaseOrderLineTable, purchaseOrderLineCols, rows)
	return err
}

// UpdateReceived stores the received quantity of each line in one round trip.
func (r *PurchaseOrderRepo) UpdateReceived(ctx context.Context, lines []purchase_order.Line) error {
	if len(lines) == 0 {
		return nil
	}
	queries := make([]postgres.BatchQuery, 0, len(lines))
	for _, l := range lines {
		queries = append(queries, postgres.BatchQuery{
			SQL:  "UPDATE " + purchaseOrderLineTable + " SET received_quantity = $1 WHERE id = $2",
			Args: []any{l.ReceivedQuantity, l.ID},
		})
	}

	affected, err := r.batch.ExecuteBatch(ctx, queries)
	if err != nil {
		return fmt.Errorf("update received quantities: %w", err)
	}
	for i, n := range affected {
		if n == 0 {
			return apperror.NewNotFound("purchase_order_line", lines[i].ID.String())
		}
	}
	return nil
}

func (r *PurchaseOrderRepo) List(ctx context.Context, f purchase_order.ListFilter) (domain.ListResult[*purchase_order.PurchaseOrder], error) {
	var where []squirrel.Sqlizer
	if f.SupplierID != nil {
		where = append(where, squirrel.Eq{"supplier_id": *f.SupplierID})
	}
	if len(f.Statuses) > 0 {
		where = append(where, squirrel.Eq{"status": f.Statuses})
	}
	if f.ItemID != nil {
		where = append(where, squirrel.Expr(
			"EXISTS (SELECT 1 FROM "+purchaseOrderLineTable+" l WHERE l.purchase_order_id = "+purchaseOrderTable+".id AND l.item_id = ?)",
			*f.ItemID,
		))
	}
	return r.BaseDocumentRepo.List(ctx, f.ListFilter, where...)
}

// OpenOrderItems maps items on open orders to the oldest such order.
func (r *PurchaseOrderRepo) OpenOrderItems(ctx context.Context, itemIDs []id.ID) (map[id.ID]id.ID, error) {
	out := make(map[id.ID]id.ID)
	if len(itemIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ItemID  id.ID `db:"item_id"`
		OrderID id.ID `db:"purchase_order_id"`
	}
	err := postgres.SelectAll(ctx, r.Querier(ctx), &rows, r.Builder().
		Select("l.item_id", "l.purchase_order_id").
		Options("DISTINCT ON (l.item_id)").
		From(purchaseOrderLineTable+" l").
		Join(purchaseOrderTable+" o ON o.id = l.purchase_order_id").
		Where(squirrel.Eq{"l.item_id": itemIDs, "o.status": openOrderStatuses}).
		OrderBy("l.item_id", "o.created_at", "o.id"))
	if err != nil {
		return nil, fmt.Errorf("open order items: %w", err)
	}

	for _, row := range rows {
		out[row.ItemID] = row.OrderID
	}
	return out, nil
}

// CreateReceipt stores a delivery and its lines.
func (r *PurchaseOrderRepo) CreateReceipt(ctx context.Context, receipt *purchase_order.Receipt) error {
	q := r.Builder().
		Insert(receiptTable).
		SetMap(postgres.PickColumns(postgres.StructToMap(receipt), receiptCols))
	if _, err := postgres.Exec(ctx, r.Querier(ctx), q); err != nil {
		if postgres.IsUniqueViolation(err, receiptTable+"_number_key") {
			return apperror.NewInvariantViolation("receipt number already used").WithDetail("number", receipt.Number)
		}
		return fmt.Errorf("insert receipt: %w", err)
	}

	rows := make([][]any, 0, len(receipt.Lines))
	for _, l := range receipt.Lines {
		rows = append(rows, []any{
			l.ID, receipt.ID, l.LineNo, l.PurchaseOrderLineID, l.ItemID,
			l.BatchID, l.BatchCode, l.ExpiryDate, l.Quantity, l.UnitCost,
		})
	}
	_, err := r.inserter.CopyFromSlice(ctx, receiptLineTable, receiptLineCols, rows)
	return err
}

// ListReceipts returns the deliveries of an order, oldest first.
func (r *PurchaseOrderRepo) ListReceipts(ctx context.Context, orderID id.ID) ([]*purchase_order.Receipt, error) {
	querier := r.Querier(ctx)

	var receipts []*purchase_order.Receipt
	err := postgres.SelectAll(ctx, querier, &receipts, r.Builder().
		Select(receiptCols...).
		From(receiptTable).
		Where(squirrel.Eq{"purchase_order_id": orderID}).
		OrderBy("created_at", "id"))
	if err != nil {
		return nil, fmt.Errorf("receipts: %w", err)
	}
	if len(receipts) == 0 {
		return receipts, nil
	}

	ids := make([]id.ID, len(receipts))
	byID := make(map[id.ID]*purchase_order.Receipt, len(receipts))
	for i, rec := range receipts {
		ids[i] = rec.ID
		byID[rec.ID] = rec
	}

	var lines []purchase_order.ReceiptLine
	err = postgres.SelectAll(ctx, querier, &lines, r.Builder().
		Select(receiptLineCols...).
		From(receiptLineTable).
		Where(squirrel.Eq{"receipt_id": ids}).
		OrderBy("receipt_id", "line_no"))
	if err != nil {
		return nil, fmt.Errorf("receipt lines: %w", err)
	}
	for _, l := range lines {
		rec := byID[l.ReceiptID]
		rec.Lines = append(rec.Lines, l)
	}
	return receipts, nil
}
