package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// StockBatchSortFields contains allowed sort fields for stock batches
var StockBatchSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"batch_code":   true,
	"import_date":  true,
	"expire_date":  true,
	"quantity_in":  true,
	"quantity_out": true,
	"warehouse_id": true,
	"product_id":   true,
}

// InventoryRecordSortFields contains allowed sort fields for ledger records
var InventoryRecordSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"last_updated": true,
	"quantity":     true,
	"warehouse_id": true,
	"product_id":   true,
}

// ProductionOrderSortFields contains allowed sort fields for production orders
var ProductionOrderSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"order_number": true,
	"status":       true,
	"start_date":   true,
	"end_date":     true,
}
