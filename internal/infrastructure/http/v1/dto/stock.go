package dto

import (
	"encoding/json"

	"erpstock/internal/domain/inventory"
)

// --- Requests ---

// StockListRequest holds the query parameters of the stock lookup.
// Pointers distinguish an absent parameter from an explicit zero.
type StockListRequest struct {
	Search    string `form:"search" binding:"max=200"`
	Location  string `form:"location" binding:"max=50"`
	Ubicacion string `form:"ubicacion" binding:"max=50"`
	MinStock  string `form:"min_stock"`
	Centro    string `form:"centro"`
	Page      *int   `form:"page" binding:"omitempty,min=1"`
	PageSize  *int   `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// LocationFilter returns location, falling back to its legacy alias.
func (r StockListRequest) LocationFilter() string {
	if r.Location != "" {
		return r.Location
	}
	return r.Ubicacion
}

// --- Responses ---

// StockItemResponse keeps the field names the frontend already consumes.
type StockItemResponse struct {
	ItemID        string      `json:"itm"`
	LegacyCode    string      `json:"litm"`
	Description   string      `json:"dsci"`
	LotNumber     string      `json:"lotn"`
	LocationCode  string      `json:"secu"`
	BusinessUnit  string      `json:"primary_uom"`
	UnitOfMeasure string      `json:"un"`
	OnHand        json.Number `json:"pqoh"`
}

// StockPageResponse is one page of stock rows.
type StockPageResponse struct {
	Items    []StockItemResponse `json:"items"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// BusinessUnitsResponse lists the business units present in the stock table.
type BusinessUnitsResponse struct {
	BusinessUnits []string `json:"unidades_negocio"`
	Total         int      `json:"total"`
}

// FromStockRecord converts a domain record to its wire form.
func FromStockRecord(r inventory.StockRecord) StockItemResponse {
	return StockItemResponse{
		ItemID:        r.ItemID,
		LegacyCode:    r.LegacyCode,
		Description:   r.Description,
		LotNumber:     r.LotNumber,
		LocationCode:  r.LocationCode,
		BusinessUnit:  r.BusinessUnit,
		UnitOfMeasure: r.UnitOfMeasure,
		OnHand:        json.Number(r.QuantityOnHand.String()),
	}
}

// FromResultPage converts a result page. Items is never null.
func FromResultPage(p inventory.ResultPage) StockPageResponse {
	items := make([]StockItemResponse, len(p.Items))
	for i, r := range p.Items {
		items[i] = FromStockRecord(r)
	}
	return StockPageResponse{
		Items:    items,
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
	}
}

// FromBusinessUnitList converts the business unit list.
func FromBusinessUnitList(l inventory.BusinessUnitList) BusinessUnitsResponse {
	units := l.BusinessUnits
	if units == nil {
		units = []string{}
	}
	return BusinessUnitsResponse{BusinessUnits: units, Total: l.Total}
}
