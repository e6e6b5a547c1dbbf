package dto

import (
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/cash_session"
)

type OpenCashSessionRequest struct {
	DrawerID     string      `json:"drawerId" binding:"required,max=64"`
	OpeningFloat types.Money `json:"openingFloat" binding:"decimal_gte0"`
	Note         string      `json:"note" binding:"max=500"`
}

func (r OpenCashSessionRequest) ToDomain() cash_session.OpenRequest {
	return cash_session.OpenRequest{DrawerID: r.DrawerID, OpeningFloat: r.OpeningFloat, Note: r.Note}
}

type CloseCashSessionRequest struct {
	CountedAmount types.Money `json:"countedAmount" binding:"decimal_gte0"`
	Note          string      `json:"note" binding:"max=500"`
}

func (r CloseCashSessionRequest) ToDomain() cash_session.CloseRequest {
	return cash_session.CloseRequest{CountedAmount: r.CountedAmount, Note: r.Note}
}

type CashDropRequest struct {
	Amount types.Money `json:"amount" binding:"decimal_gt0"`
	Reason string      `json:"reason" binding:"max=500"`
}

type CashSessionListQuery struct {
	ListQuery
	CashierID string `form:"cashierId"`
	DrawerID  string `form:"drawerId"`
	Status    string `form:"status" binding:"omitempty,oneof=open closed"`
}

func (q CashSessionListQuery) ToFilter() cash_session.ListFilter {
	f := cash_session.ListFilter{
		ListFilter: q.ListQuery.ToFilter(""),
		CashierID:  q.CashierID,
		DrawerID:   q.DrawerID,
	}
	if q.Status != "" {
		s := cash_session.Status(q.Status)
		f.Status = &s
	}
	return f
}

// CashSessionResponse is a session with its recorded drops.
type CashSessionResponse struct {
	*cash_session.Session
	Drops []cash_session.CashDrop `json:"drops"`
}
