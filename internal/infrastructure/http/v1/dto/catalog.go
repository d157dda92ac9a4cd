package dto

import (
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalog/item"
	"stockledger/internal/domain/catalog/warehouse"
)

// CreateItemRequest is the wire shape for POST /items.
type CreateItemRequest struct {
	SKU             string         `json:"sku" binding:"required"`
	Name            string         `json:"name" binding:"required"`
	Category        string         `json:"category"`
	DefaultCost     types.Money    `json:"defaultCost"`
	CurrencyCode    string         `json:"currencyCode"`
	IsTrackable     *bool          `json:"isTrackable,omitempty"`
	ReorderPoint    types.Quantity `json:"reorderPoint"`
	ReorderQuantity types.Quantity `json:"reorderQuantity"`
}

// ToDomain builds a catalog entry from the wire request.
func (r *CreateItemRequest) ToDomain() *item.StockItem {
	it := item.NewStockItem(r.SKU, r.Name, r.DefaultCost)
	it.Category = r.Category
	if r.CurrencyCode != "" {
		it.CurrencyCode = r.CurrencyCode
	}
	if r.IsTrackable != nil {
		it.IsTrackable = *r.IsTrackable
	}
	it.ReorderPoint = r.ReorderPoint
	it.ReorderQuantity = r.ReorderQuantity
	return it
}

// UpdateItemCostRequest is the wire shape for PUT /items/:id/cost.
type UpdateItemCostRequest struct {
	DefaultCost     types.Money    `json:"defaultCost"`
	ReorderPoint    types.Quantity `json:"reorderPoint"`
	ReorderQuantity types.Quantity `json:"reorderQuantity"`
}

// CreateWarehouseRequest is the wire shape for POST /warehouses.
type CreateWarehouseRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

func (r *CreateWarehouseRequest) ToDomain() *warehouse.Warehouse {
	return warehouse.NewWarehouse(r.Code, r.Name)
}
