package dto

import (
	"github.com/shopspring/decimal"

	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/documents/sale"
)

type SaleLineRequest struct {
	ItemID    string         `json:"itemId" binding:"required,uuid"`
	Quantity  types.Quantity `json:"quantity" binding:"required,gt=0"`
	UnitPrice types.Money    `json:"unitPrice" binding:"decimal_gte0"`
}

// CreateSaleRequest is a cart submitted for checkout.
type CreateSaleRequest struct {
	CustomerID      string             `json:"customerId" binding:"omitempty,uuid"`
	SessionID       string             `json:"sessionId" binding:"omitempty,uuid"`
	Lines           []SaleLineRequest  `json:"lines" binding:"required,min=1,dive"`
	DiscountAmount  *types.Money       `json:"discountAmount" binding:"omitempty,decimal_gte0"`
	DiscountPercent *decimal.Decimal   `json:"discountPercent" binding:"omitempty,percent"`
	PaymentMethod   sale.PaymentMethod `json:"paymentMethod" binding:"required,oneof=cash card insurance mobile"`
	AmountTendered  types.Money        `json:"amountTendered" binding:"decimal_gte0"`
	AllowExpired    bool               `json:"allowExpired"`
	Comment         string             `json:"comment" binding:"max=500"`
}

func (r CreateSaleRequest) ToDomain() sale.CreateRequest {
	lines := make([]sale.LineRequest, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = sale.LineRequest{
			ItemID:    mustID(l.ItemID),
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
	}
	return sale.CreateRequest{
		CustomerID:      optionalID(r.CustomerID),
		SessionID:       optionalID(r.SessionID),
		Lines:           lines,
		DiscountAmount:  r.DiscountAmount,
		DiscountPercent: r.DiscountPercent,
		PaymentMethod:   r.PaymentMethod,
		AmountTendered:  r.AmountTendered,
		AllowExpired:    r.AllowExpired,
		Comment:         r.Comment,
	}
}

// VoidSaleRequest voids a completed sale.
type VoidSaleRequest struct {
	Reason       string           `json:"reason" binding:"required,max=500"`
	Approver     *ApproverRequest `json:"approver"`
	RestoreStock *bool            `json:"restoreStock"`
}

func (r VoidSaleRequest) ToDomain() sale.VoidRequest {
	return sale.VoidRequest{
		Reason:       r.Reason,
		Approver:     r.Approver.ToApprover(),
		RestoreStock: r.RestoreStock,
	}
}

// SaleListQuery filters GET /sales.
type SaleListQuery struct {
	ListQuery
	CashierID     string `form:"cashierId"`
	SessionID     string `form:"sessionId" binding:"omitempty,uuid"`
	CustomerID    string `form:"customerId" binding:"omitempty,uuid"`
	Status        string `form:"status" binding:"omitempty,oneof=completed voided"`
	PaymentMethod string `form:"paymentMethod" binding:"omitempty,oneof=cash card insurance mobile"`
}

func (q SaleListQuery) ToFilter() sale.ListFilter {
	f := sale.ListFilter{
		ListFilter: q.ListQuery.ToFilter(""),
		CashierID:  q.CashierID,
		SessionID:  optionalID(q.SessionID),
		CustomerID: optionalID(q.CustomerID),
	}
	if q.Status != "" {
		s := sale.Status(q.Status)
		f.Status = &s
	}
	if q.PaymentMethod != "" {
		m := sale.PaymentMethod(q.PaymentMethod)
		f.PaymentMethod = &m
	}
	return f
}
