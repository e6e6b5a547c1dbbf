package dto

import (
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain/reorder"
)

// SetReorderLevelRequest is the body of PUT /reorder/levels/:itemId.
type SetReorderLevelRequest struct {
	MinimumStock        types.Quantity `json:"minimumStock" binding:"min=0"`
	ReorderQuantity     types.Quantity `json:"reorderQuantity" binding:"required,gt=0"`
	AutoReorder         bool           `json:"autoReorder"`
	PreferredSupplierID string         `json:"preferredSupplierId" binding:"omitempty,uuid"`
	UnitCost            types.Money    `json:"unitCost" binding:"decimal_gte0"`
}

func (r SetReorderLevelRequest) ToDomain(itemID id.ID) reorder.LevelInput {
	return reorder.LevelInput{
		ItemID:              itemID,
		MinimumStock:        r.MinimumStock,
		ReorderQuantity:     r.ReorderQuantity,
		AutoReorder:         r.AutoReorder,
		PreferredSupplierID: optionalID(r.PreferredSupplierID),
		UnitCost:            r.UnitCost,
	}
}

type ReorderLevelListQuery struct {
	ListQuery
	AutoReorder *bool  `form:"autoReorder"`
	SupplierID  string `form:"supplierId" binding:"omitempty,uuid"`
}

func (q ReorderLevelListQuery) ToFilter() reorder.ListFilter {
	return reorder.ListFilter{
		ListFilter:  q.ListQuery.ToFilter(""),
		AutoReorder: q.AutoReorder,
		SupplierID:  optionalID(q.SupplierID),
	}
}
