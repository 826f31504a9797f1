package catalog

import (
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
)

// Warehouse is a stock location
type Warehouse struct {
	shared.BaseEntity
	Code string
	Name string
}

// NewWarehouse creates a new warehouse
func NewWarehouse(code, name string) (*Warehouse, error) {
	if err := validateCode(code); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("warehouse name cannot be empty")
	}
	return &Warehouse{
		BaseEntity: shared.NewBaseEntity(),
		Code:       strings.ToUpper(code),
		Name:       name,
	}, nil
}
