package dto

import (
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/registers/stock"
)

// BatchListQuery filters GET /stock/batches.
type BatchListQuery struct {
	ListQuery
	ItemID         string `form:"itemId" binding:"omitempty,uuid"`
	OnlyAvailable  bool   `form:"onlyAvailable"`
	ExpiringBefore string `form:"expiringBefore" binding:"omitempty,datetime=2006-01-02"`
}

func (q BatchListQuery) ToFilter() stock.BatchFilter {
	return stock.BatchFilter{
		ListFilter:     q.ListQuery.ToFilter(""),
		ItemID:         optionalID(q.ItemID),
		OnlyAvailable:  q.OnlyAvailable,
		ExpiringBefore: parseDatePtr(q.ExpiringBefore),
	}
}

// MovementListQuery filters GET /stock/movements and its export.
type MovementListQuery struct {
	ListQuery
	ItemID        string `form:"itemId" binding:"omitempty,uuid"`
	BatchID       string `form:"batchId" binding:"omitempty,uuid"`
	Kind          string `form:"kind" binding:"omitempty,oneof=receipt sale refund refund_no_restock refund_reversal void_restore adjustment"`
	ReferenceType string `form:"referenceType" binding:"omitempty,oneof=sale refund purchase_receipt stock_adjustment"`
	ReferenceID   string `form:"referenceId" binding:"omitempty,uuid"`
}

func (q MovementListQuery) ToFilter() stock.MovementFilter {
	f := stock.MovementFilter{
		ListFilter:    q.ListQuery.ToFilter(""),
		ItemID:        optionalID(q.ItemID),
		BatchID:       optionalID(q.BatchID),
		ReferenceType: q.ReferenceType,
		ReferenceID:   optionalID(q.ReferenceID),
	}
	if q.Kind != "" {
		k := stock.MovementKind(q.Kind)
		f.Kind = &k
	}
	return f
}

// OnHandResponse is the sellable quantity of one item.
type OnHandResponse struct {
	ItemID id.ID          `json:"itemId"`
	OnHand types.Quantity `json:"onHand"`
}

// BatchResponse is a batch with its ledger reconciliation.
type BatchResponse struct {
	*stock.Batch
	Reconciliation stock.Reconciliation `json:"reconciliation"`
}
