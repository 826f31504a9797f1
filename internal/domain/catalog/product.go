package catalog

import (
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product is a stock keeping unit. The inventory engine only reads it.
type Product struct {
	shared.BaseEntity
	Code       string
	Name       string
	Unit       string
	UnitWeight decimal.Decimal // kilograms per unit, used for transfer weight totals
}

// NewProduct creates a new product
func NewProduct(code, name, unit string, unitWeight decimal.Decimal) (*Product, error) {
	if err := validateCode(code); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("product name cannot be empty")
	}
	if unit == "" {
		unit = "pcs"
	}
	if unitWeight.IsNegative() {
		return nil, shared.NewValidationError("product unit weight cannot be negative")
	}

	return &Product{
		BaseEntity: shared.NewBaseEntity(),
		Code:       strings.ToUpper(code),
		Name:       name,
		Unit:       unit,
		UnitWeight: unitWeight,
	}, nil
}

// WeightOf returns the weight of qty units
func (p *Product) WeightOf(qty decimal.Decimal) decimal.Decimal {
	return qty.Mul(p.UnitWeight)
}

// validateCode checks a catalog code: 1-50 letters, digits, '_' or '-'
func validateCode(code string) error {
	if code == "" {
		return shared.NewValidationError("code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewValidationError("code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewValidationError("code %q can only contain letters, numbers, underscores, and hyphens", code)
		}
	}
	return nil
}
