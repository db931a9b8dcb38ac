package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"erpstock/internal/core/apperror"
	"erpstock/internal/core/types"
	"erpstock/internal/domain/inventory"
	"erpstock/internal/infrastructure/http/v1/dto"
)

// StockLister is the part of inventory.Service the handler uses.
type StockLister interface {
	ListStock(ctx context.Context, filters inventory.FilterSet) (inventory.ResultPage, error)
	ListBusinessUnits(ctx context.Context) (inventory.BusinessUnitList, error)
}

// StockHandler handles the stock lookup endpoints.
type StockHandler struct {
	*BaseHandler
	service      StockLister
	businessUnit string
}

// NewStockHandler creates a new stock handler. Every lookup is scoped to businessUnit.
func NewStockHandler(base *BaseHandler, service StockLister, businessUnit string) *StockHandler {
	return &StockHandler{
		BaseHandler:  base,
		service:      service,
		businessUnit: businessUnit,
	}
}

// RegisterRoutes registers the stock routes on rg.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/existencias", h.List)
	rg.GET("/existencias/unidades-negocio", h.BusinessUnits)
}

// List handles GET /excedentes/existencias
func (h *StockHandler) List(c *gin.Context) {
	var req dto.StockListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filters, err := h.toFilterSet(req)
	if err != nil {
		h.Error(c, err)
		return
	}

	page, err := h.service.ListStock(c.Request.Context(), filters)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromResultPage(page))
}

// BusinessUnits handles GET /excedentes/existencias/unidades-negocio
func (h *StockHandler) BusinessUnits(c *gin.Context) {
	list, err := h.service.ListBusinessUnits(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBusinessUnitList(list))
}

func (h *StockHandler) toFilterSet(req dto.StockListRequest) (inventory.FilterSet, error) {
	// The business unit is fixed by configuration. A caller asking for a
	// different one gets an error instead of silently receiving ours.
	if centro := strings.TrimSpace(req.Centro); centro != "" && centro != h.businessUnit {
		return inventory.FilterSet{}, apperror.NewValidation("business unit cannot be selected").
			WithDetail("centro", centro).
			WithDetail("allowed", h.businessUnit)
	}

	filters := inventory.FilterSet{
		Search:       req.Search,
		BusinessUnit: h.businessUnit,
		Location:     req.LocationFilter(),
	}
	if req.Page != nil {
		filters.Page = *req.Page
	}
	if req.PageSize != nil {
		filters.PageSize = *req.PageSize
	}

	if raw := strings.TrimSpace(req.MinStock); raw != "" {
		q, err := types.ParseQuantity(raw)
		if err != nil {
			return inventory.FilterSet{}, apperror.NewValidation("min_stock must be a number").
				WithDetail("min_stock", raw)
		}
		filters.MinQuantityOnHand = &q
	}

	return filters, nil
}
