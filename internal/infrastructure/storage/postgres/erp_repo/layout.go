// Package erp_repo provides read-only PostgreSQL repositories over the ERP replica.
package erp_repo

import (
	"errors"
	"fmt"
	"regexp"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// StockColumns names the columns of the stock-by-location table.
type StockColumns struct {
	BusinessUnit string
	ItemID       string
	Lot          string
	Location     string
	OnHand       string
}

// ItemColumns names the columns of the item master table.
type ItemColumns struct {
	ItemID        string
	LegacyCode    string
	Description   string
	UnitOfMeasure string
}

// Layout locates the two ERP tables. Names are interpolated into SQL text,
// so they come from configuration only and must pass Validate.
type Layout struct {
	Schema     string
	StockTable string
	ItemTable  string
	Stock      StockColumns
	Item       ItemColumns
}

// DefaultLayout returns the JD Edwards names: F41021 (item location) joined
// with F4101 (item master).
func DefaultLayout(schema string) Layout {
	return Layout{
		Schema:     schema,
		StockTable: "f41021",
		ItemTable:  "f4101",
		Stock: StockColumns{
			BusinessUnit: "limcu",
			ItemID:       "liitm",
			Lot:          "lilotn",
			Location:     "lilocn",
			OnHand:       "lipqoh",
		},
		Item: ItemColumns{
			ItemID:        "imitm",
			LegacyCode:    "imlitm",
			Description:   "imdsc1",
			UnitOfMeasure: "imuom1",
		},
	}
}

// Validate rejects any name that is not a plain SQL identifier.
// The schema may be empty (search_path applies).
func (l Layout) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"stock table", l.StockTable},
		{"item table", l.ItemTable},
		{"stock business unit column", l.Stock.BusinessUnit},
		{"stock item column", l.Stock.ItemID},
		{"stock lot column", l.Stock.Lot},
		{"stock location column", l.Stock.Location},
		{"stock on-hand column", l.Stock.OnHand},
		{"item id column", l.Item.ItemID},
		{"item legacy code column", l.Item.LegacyCode},
		{"item description column", l.Item.Description},
		{"item unit of measure column", l.Item.UnitOfMeasure},
	}

	var errs []error
	if l.Schema != "" && !identifierRe.MatchString(l.Schema) {
		errs = append(errs, fmt.Errorf("schema %q is not a valid identifier", l.Schema))
	}
	for _, f := range fields {
		if !identifierRe.MatchString(f.value) {
			errs = append(errs, fmt.Errorf("%s %q is not a valid identifier", f.name, f.value))
		}
	}
	return errors.Join(errs...)
}

func (l Layout) qualified(table string) string {
	if l.Schema == "" {
		return table
	}
	return l.Schema + "." + table
}

// stockFrom is the FROM clause of the stock table, aliased l.
func (l Layout) stockFrom() string {
	return l.qualified(l.StockTable) + " l"
}

// itemJoin is the mandatory join with the item master, aliased m.
func (l Layout) itemJoin() string {
	return fmt.Sprintf("%s m ON l.%s = m.%s", l.qualified(l.ItemTable), l.Stock.ItemID, l.Item.ItemID)
}

func (l Layout) s(col string) string { return "l." + col }
func (l Layout) m(col string) string { return "m." + col }
