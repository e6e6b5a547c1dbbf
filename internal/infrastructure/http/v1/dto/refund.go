package dto

import (
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/documents/refund"
)

type RefundLineRequest struct {
	SaleLineID string         `json:"saleLineId" binding:"required,uuid"`
	Quantity   types.Quantity `json:"quantity" binding:"required,gt=0"`
	// Amount overrides the pro-rated amount for the line.
	Amount *types.Money `json:"amount" binding:"omitempty,decimal_gte0"`
}

// CreateRefundRequest is the body of POST /sales/:id/refunds.
type CreateRefundRequest struct {
	Lines   []RefundLineRequest `json:"lines" binding:"required,min=1,dive"`
	Restock *bool               `json:"restock"`
	Reason  string              `json:"reason" binding:"required,max=500"`
}

func (r CreateRefundRequest) ToDomain(saleID id.ID) refund.CreateRequest {
	lines := make([]refund.LineRequest, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = refund.LineRequest{
			SaleLineID: mustID(l.SaleLineID),
			Quantity:   l.Quantity,
			Amount:     l.Amount,
		}
	}
	return refund.CreateRequest{
		SaleID:  saleID,
		Lines:   lines,
		Restock: r.Restock,
		Reason:  r.Reason,
	}
}

type CancelRefundRequest struct {
	Reason   string           `json:"reason" binding:"required,max=500"`
	Approver *ApproverRequest `json:"approver"`
}

func (r CancelRefundRequest) ToDomain() refund.CancelRequest {
	return refund.CancelRequest{Reason: r.Reason, Approver: r.Approver.ToApprover()}
}
