package inventory

import (
	"context"
	"fmt"

	"erpstock/internal/core/apperror"
	"erpstock/internal/core/tx"
	"erpstock/pkg/logger"
)

// Service is the inventory query engine. It holds no per-request state and
// is safe for concurrent use.
type Service struct {
	repo Repository
	txm  tx.ReadOnlyManager
}

// NewService creates a new inventory service.
func NewService(repo Repository, txm tx.ReadOnlyManager) *Service {
	return &Service{
		repo: repo,
		txm:  txm,
	}
}

// ListStock returns one page of stock rows matching filters.
//
// The count and the page are read in the same read-only snapshot. If either
// query fails no page is returned.
func (s *Service) ListStock(ctx context.Context, filters FilterSet) (ResultPage, error) {
	filters = filters.Normalize()
	if err := filters.Validate(); err != nil {
		return ResultPage{}, err
	}

	var (
		total int64
		items []StockRecord
	)
	err := s.txm.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		total, err = s.repo.CountStock(ctx, filters)
		if err != nil {
			return fmt.Errorf("count stock: %w", err)
		}

		items, err = s.repo.FindStock(ctx, filters)
		if err != nil {
			return fmt.Errorf("find stock: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Error(ctx, "list stock failed",
			"business_unit", filters.BusinessUnit,
			"error", err,
		)
		return ResultPage{}, apperror.FromStore("stock", err)
	}

	if items == nil {
		items = []StockRecord{}
	}

	logger.Info(ctx, "stock listed",
		"business_unit", filters.BusinessUnit,
		"total", total,
		"page", filters.Page,
		"returned", len(items),
	)

	return ResultPage{
		Items:    items,
		Total:    total,
		Page:     filters.Page,
		PageSize: filters.PageSize,
	}, nil
}

// ListBusinessUnits returns the distinct business-unit codes present in the
// stock table, capped at BusinessUnitLimit.
func (s *Service) ListBusinessUnits(ctx context.Context) (BusinessUnitList, error) {
	var units []string
	err := s.txm.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		units, err = s.repo.FindBusinessUnits(ctx, BusinessUnitLimit)
		return err
	})
	if err != nil {
		logger.Error(ctx, "list business units failed", "error", err)
		return BusinessUnitList{}, apperror.FromStore("business units", err)
	}

	if units == nil {
		units = []string{}
	}

	return BusinessUnitList{
		BusinessUnits: units,
		Total:         len(units),
	}, nil
}
