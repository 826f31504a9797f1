package models

import (
	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// WarehouseModel is the persistence model for warehouses
type WarehouseModel struct {
	BaseModel
	Code string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name string `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (WarehouseModel) TableName() string {
	return "warehouses"
}

// ToDomain converts the persistence model to a domain Warehouse
func (m *WarehouseModel) ToDomain() *catalog.Warehouse {
	return &catalog.Warehouse{
		BaseEntity: m.BaseModel.ToDomain(),
		Code:       m.Code,
		Name:       m.Name,
	}
}

// FromDomain populates the persistence model from a domain Warehouse
func (m *WarehouseModel) FromDomain(w *catalog.Warehouse) {
	m.FromDomainBaseEntity(w.BaseEntity)
	m.Code = w.Code
	m.Name = w.Name
}

// WarehouseModelFromDomain creates a new persistence model from a domain Warehouse
func WarehouseModelFromDomain(w *catalog.Warehouse) *WarehouseModel {
	m := &WarehouseModel{}
	m.FromDomain(w)
	return m
}

// ProductModel is the persistence model for products
type ProductModel struct {
	BaseModel
	Code       string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name       string          `gorm:"type:varchar(200);not null"`
	Unit       string          `gorm:"type:varchar(20);not null;default:'pcs'"`
	UnitWeight decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity: m.BaseModel.ToDomain(),
		Code:       m.Code,
		Name:       m.Name,
		Unit:       m.Unit,
		UnitWeight: m.UnitWeight,
	}
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Code = p.Code
	m.Name = p.Name
	m.Unit = p.Unit
	m.UnitWeight = p.UnitWeight
}

// ProductModelFromDomain creates a new persistence model from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
