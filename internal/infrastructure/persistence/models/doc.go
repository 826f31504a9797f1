// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
// - base.go: BaseModel and AggregateModel
// - catalog.go: warehouses and products, read-only for the stock engine
// - inventory.go: stock batches, inventory records, stock transactions and movements
// - production.go: production orders with their material and output lines
package models

// All returns every model in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&WarehouseModel{},
		&ProductModel{},
		&StockBatchModel{},
		&InventoryRecordModel{},
		&StockTransactionModel{},
		&StockMovementModel{},
		&ProductionOrderModel{},
		&MaterialLineModel{},
		&OutputLineModel{},
	}
}
