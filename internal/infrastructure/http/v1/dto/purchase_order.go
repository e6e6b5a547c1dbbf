package dto

import (
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/documents/purchase_order"
)

type PurchaseOrderLineRequest struct {
	ItemID   string         `json:"itemId" binding:"required,uuid"`
	Quantity types.Quantity `json:"quantity" binding:"required,gt=0"`
	UnitCost types.Money    `json:"unitCost" binding:"decimal_gte0"`
}

type CreatePurchaseOrderRequest struct {
	SupplierID   string                     `json:"supplierId" binding:"required,uuid"`
	ExpectedDate string                     `json:"expectedDate" binding:"omitempty,datetime=2006-01-02"`
	Lines        []PurchaseOrderLineRequest `json:"lines" binding:"required,min=1,dive"`
	Comment      string                     `json:"comment" binding:"max=500"`
}

func (r CreatePurchaseOrderRequest) ToDomain() purchase_order.CreateRequest {
	lines := make([]purchase_order.LineRequest, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = purchase_order.LineRequest{
			ItemID:   mustID(l.ItemID),
			Quantity: l.Quantity,
			UnitCost: l.UnitCost,
		}
	}
	return purchase_order.CreateRequest{
		SupplierID:   mustID(r.SupplierID),
		ExpectedDate: parseDatePtr(r.ExpectedDate),
		Lines:        lines,
		Comment:      r.Comment,
		Source:       purchase_order.SourceManual,
	}
}

type ApprovePurchaseOrderRequest struct {
	Approver *ApproverRequest `json:"approver"`
}

type CancelPurchaseOrderRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type ReceiveLineRequest struct {
	PurchaseOrderLineID string         `json:"purchaseOrderLineId" binding:"required,uuid"`
	Quantity            types.Quantity `json:"quantity" binding:"required,gt=0"`
	BatchCode           string         `json:"batchCode" binding:"required,max=64"`
	ExpiryDate          string         `json:"expiryDate" binding:"required,datetime=2006-01-02"`
	ManufactureDate     string         `json:"manufactureDate" binding:"omitempty,datetime=2006-01-02"`
	UnitCost            *types.Money   `json:"unitCost" binding:"omitempty,decimal_gte0"`
	UnitPrice           types.Money    `json:"unitPrice" binding:"decimal_gte0"`
	Location            string         `json:"location" binding:"max=64"`
}

// ReceivePurchaseOrderRequest is a delivery against an order.
type ReceivePurchaseOrderRequest struct {
	Lines            []ReceiveLineRequest `json:"lines" binding:"required,min=1,dive"`
	AllowOverReceipt bool                 `json:"allowOverReceipt"`
	Comment          string               `json:"comment" binding:"max=500"`
}

func (r ReceivePurchaseOrderRequest) ToDomain() purchase_order.ReceiveRequest {
	lines := make([]purchase_order.ReceiveLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = purchase_order.ReceiveLine{
			PurchaseOrderLineID: mustID(l.PurchaseOrderLineID),
			Quantity:            l.Quantity,
			BatchCode:           l.BatchCode,
			ExpiryDate:          parseDate(l.ExpiryDate),
			ManufactureDate:     parseDatePtr(l.ManufactureDate),
			UnitCost:            l.UnitCost,
			UnitPrice:           l.UnitPrice,
			Location:            l.Location,
		}
	}
	return purchase_order.ReceiveRequest{
		Lines:            lines,
		AllowOverReceipt: r.AllowOverReceipt,
		Comment:          r.Comment,
	}
}

type PurchaseOrderListQuery struct {
	ListQuery
	SupplierID string   `form:"supplierId" binding:"omitempty,uuid"`
	ItemID     string   `form:"itemId" binding:"omitempty,uuid"`
	Status     []string `form:"status" binding:"omitempty,dive,oneof=draft approved partially_received received cancelled"`
}

func (q PurchaseOrderListQuery) ToFilter() purchase_order.ListFilter {
	f := purchase_order.ListFilter{
		ListFilter: q.ListQuery.ToFilter(""),
		SupplierID: optionalID(q.SupplierID),
		ItemID:     optionalID(q.ItemID),
	}
	for _, s := range q.Status {
		f.Statuses = append(f.Statuses, purchase_order.Status(s))
	}
	return f
}
