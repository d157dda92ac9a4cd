// Package valuation provides read-only stock value and history reporting.
// It reads lots and aggregates, never writes movements, and runs outside the
// ledger's row locks.
package valuation

import (
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
)

// CostingMode says which cost source a report was computed from. The two
// modes are never mixed within one report.
type CostingMode string

const (
	// CostingLots sums lot quantity × lot cost; devalued stock is reflected
	// at its reduced cost.
	CostingLots CostingMode = "lots"
	// CostingDefault is the fallback for lot-free data: aggregate on-hand ×
	// item default cost.
	CostingDefault CostingMode = "default_cost"
)

// Filter narrows a valuation report.
type Filter struct {
	WarehouseID *id.ID
	Category    string
	Currency    string
}

// Row is one (item, warehouse, cost layer) value line.
type Row struct {
	StockItemID   id.ID          `db:"stock_item_id" json:"stockItemId"`
	ItemSKU       string         `db:"item_sku" json:"itemSku"`
	ItemName      string         `db:"item_name" json:"itemName"`
	Category      string         `db:"category" json:"category,omitempty"`
	WarehouseID   id.ID          `db:"warehouse_id" json:"warehouseId"`
	WarehouseCode string         `db:"warehouse_code" json:"warehouseCode"`
	LotType       ledger.LotType `db:"lot_type" json:"lotType,omitempty"`
	Quantity      types.Quantity `db:"quantity" json:"quantity"`
	UnitCost      types.Money    `db:"unit_cost" json:"unitCost"`
	Value         types.Money    `db:"-" json:"value"`
}

// GroupTotal is a projection of the same value rows by one key.
type GroupTotal struct {
	Key      string         `json:"key"`
	Quantity types.Quantity `json:"quantity"`
	Value    types.Money    `json:"value"`
}

// Report is the full stock valuation.
type Report struct {
	Mode        CostingMode  `json:"mode"`
	AsOf        time.Time    `json:"asOf"`
	TotalValue  types.Money  `json:"totalValue"`
	ByWarehouse []GroupTotal `json:"byWarehouse"`
	ByCategory  []GroupTotal `json:"byCategory"`
	Items       []Row        `json:"items"`
}

// HistoryFilter narrows movement history queries.
type HistoryFilter struct {
	ItemID      *id.ID
	WarehouseID *id.ID
	Type        *ledger.MovementType
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}

// TurnoverFilter selects the period and optional key for a turnover report.
type TurnoverFilter struct {
	FromDate    time.Time
	ToDate      time.Time
	ItemID      *id.ID
	WarehouseID *id.ID
}

// Turnover is receipt/expense totals with opening and closing balances.
type Turnover struct {
	FromDate       time.Time      `json:"fromDate"`
	ToDate         time.Time      `json:"toDate"`
	OpeningBalance types.Quantity `json:"openingBalance"`
	Receipt        types.Quantity `json:"receipt"`
	Expense        types.Quantity `json:"expense"`
	ClosingBalance types.Quantity `json:"closingBalance"`
}

// LowStockRow is one item whose availability fell to its reorder point.
type LowStockRow struct {
	StockItemID     id.ID          `db:"stock_item_id" json:"stockItemId"`
	ItemSKU         string         `db:"item_sku" json:"itemSku"`
	ItemName        string         `db:"item_name" json:"itemName"`
	WarehouseID     id.ID          `db:"warehouse_id" json:"warehouseId"`
	WarehouseCode   string         `db:"warehouse_code" json:"warehouseCode"`
	Available       types.Quantity `db:"available" json:"available"`
	ReorderPoint    types.Quantity `db:"reorder_point" json:"reorderPoint"`
	ReorderQuantity types.Quantity `db:"reorder_quantity" json:"reorderQuantity"`
}
