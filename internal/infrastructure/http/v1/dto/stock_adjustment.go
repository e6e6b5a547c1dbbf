package dto

import (
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/documents/stock_adjustment"
)

type CreateStockAdjustmentRequest struct {
	BatchID    string         `json:"batchId" binding:"required,uuid"`
	Delta      types.Quantity `json:"delta" binding:"required,ne=0"`
	ReasonCode string         `json:"reasonCode" binding:"required,oneof=damaged expired count_correction theft other"`
	Note       string         `json:"note" binding:"max=500"`
}

func (r CreateStockAdjustmentRequest) ToDomain() stock_adjustment.RequestInput {
	return stock_adjustment.RequestInput{
		BatchID:    mustID(r.BatchID),
		Delta:      r.Delta,
		ReasonCode: stock_adjustment.ReasonCode(r.ReasonCode),
		Note:       r.Note,
	}
}

// ReviewStockAdjustmentRequest approves or rejects a pending adjustment.
type ReviewStockAdjustmentRequest struct {
	Approver *ApproverRequest `json:"approver"`
	Note     string           `json:"note" binding:"max=500"`
}

type StockAdjustmentListQuery struct {
	ListQuery
	BatchID string `form:"batchId" binding:"omitempty,uuid"`
	ItemID  string `form:"itemId" binding:"omitempty,uuid"`
	Status  string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
}

func (q StockAdjustmentListQuery) ToFilter() stock_adjustment.ListFilter {
	f := stock_adjustment.ListFilter{
		ListFilter: q.ListQuery.ToFilter(""),
		BatchID:    optionalID(q.BatchID),
		ItemID:     optionalID(q.ItemID),
	}
	if q.Status != "" {
		s := stock_adjustment.Status(q.Status)
		f.Status = &s
	}
	return f
}
