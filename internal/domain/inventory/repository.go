package inventory

import (
	"context"
)

// Repository reads the joined stock / item master relation.
//
// CountStock and FindStock must build their WHERE clause from the same
// FilterSet translation so that Total and Items never disagree.
type Repository interface {
	// CountStock returns the number of rows matching the filters.
	CountStock(ctx context.Context, filters FilterSet) (int64, error)

	// FindStock returns one page of matching rows ordered by item id.
	FindStock(ctx context.Context, filters FilterSet) ([]StockRecord, error)

	// FindBusinessUnits returns distinct non-empty business-unit codes, ascending.
	FindBusinessUnits(ctx context.Context, limit int) ([]string, error)
}
