// Package inventory provides the read-only stock lookup over the ERP replica.
package inventory

import (
	"math"
	"strings"

	"erpstock/internal/core/apperror"
	"erpstock/internal/core/types"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// BusinessUnitLimit caps the distinct business-unit lookup.
	BusinessUnitLimit = 100
)

// StockRecord is one stock row joined with its item master row.
// Text fields are trimmed of the ERP's fixed-width padding.
type StockRecord struct {
	ItemID         string
	LegacyCode     string
	Description    string
	LotNumber      string
	LocationCode   string
	BusinessUnit   string
	UnitOfMeasure  string
	QuantityOnHand types.Quantity
}

// FilterSet selects stock rows. Every non-zero filter narrows the result.
type FilterSet struct {
	// Search is matched case-insensitively as a literal substring against
	// the description, the legacy code and the item id.
	Search string

	// BusinessUnit is required. It is supplied by the service configuration,
	// never by the API caller.
	BusinessUnit string

	// Location matches the trimmed location code exactly.
	Location string

	// MinQuantityOnHand is an inclusive lower bound in display units.
	MinQuantityOnHand *types.Quantity

	Page     int
	PageSize int
}

// Normalize trims free-text filters and applies pagination defaults.
func (f FilterSet) Normalize() FilterSet {
	f.Search = strings.TrimSpace(f.Search)
	f.BusinessUnit = strings.TrimSpace(f.BusinessUnit)
	f.Location = strings.TrimSpace(f.Location)
	if f.Page == 0 {
		f.Page = 1
	}
	if f.PageSize == 0 {
		f.PageSize = DefaultPageSize
	}
	return f
}

// Validate checks pagination and bounds.
func (f FilterSet) Validate() error {
	if f.BusinessUnit == "" {
		return apperror.NewValidation("business unit is required")
	}
	if f.Page < 1 {
		return apperror.NewValidation("page must be greater than or equal to 1").
			WithDetail("page", f.Page)
	}
	if f.PageSize < 1 || f.PageSize > MaxPageSize {
		return apperror.NewValidation("page_size must be between 1 and 100").
			WithDetail("page_size", f.PageSize).
			WithDetail("max", MaxPageSize)
	}
	// The offset must fit in an int; Postgres rejects a negative OFFSET.
	if f.Page-1 > math.MaxInt/f.PageSize {
		return apperror.NewValidation("page is out of range").
			WithDetail("page", f.Page).
			WithDetail("max", math.MaxInt/f.PageSize+1)
	}
	if f.MinQuantityOnHand != nil {
		if f.MinQuantityOnHand.IsNegative() {
			return apperror.NewValidation("min_stock must not be negative").
				WithDetail("min_stock", f.MinQuantityOnHand.String())
		}
		if !types.ScaledInRange(*f.MinQuantityOnHand) {
			return apperror.NewValidation("min_stock is out of range").
				WithDetail("min_stock", f.MinQuantityOnHand.String())
		}
	}
	return nil
}

// Offset returns the number of rows skipped before the page.
func (f FilterSet) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// ResultPage is one page of matching stock rows.
// Total counts every matching row regardless of pagination.
type ResultPage struct {
	Items    []StockRecord
	Total    int64
	Page     int
	PageSize int
}

// BusinessUnitList contains distinct business-unit codes in ascending order.
type BusinessUnitList struct {
	BusinessUnits []string
	Total         int
}
