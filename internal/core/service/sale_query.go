package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/sales/internal/core/domain"
)

// GetSale returns the denormalized view of a sale, served from the cache
// when possible.
func (s *SaleService) GetSale(ctx context.Context, saleID int64) (*domain.SaleView, error) {
	if failures := s.validator.ValidateSaleID(saleID); len(failures) > 0 {
		return nil, newValidationError(failures...)
	}

	var (
		version   int64
		cacheable bool
	)
	if s.cache != nil {
		view, err := s.cache.GetSaleView(ctx, saleID)
		if err != nil {
			s.logger.Warn("sale cache read failed", zap.Int64("sale_id", saleID), zap.Error(err))
		} else if view != nil {
			return view, nil
		}

		// The version must be taken before the database read.
		if version, err = s.cache.SaleViewVersion(ctx, saleID); err != nil {
			s.logger.Warn("sale cache version read failed", zap.Int64("sale_id", saleID), zap.Error(err))
		} else {
			cacheable = true
		}
	}

	uow, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Rollback()

	view, err := uow.Sales().GetView(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("get sale view %d: %w", saleID, err)
	}
	if view == nil {
		return nil, ErrSaleNotFound
	}

	if cacheable {
		if err := s.cache.SetSaleView(ctx, *view, version); err != nil {
			s.logger.Warn("sale cache write failed", zap.Int64("sale_id", saleID), zap.Error(err))
		}
	}
	return view, nil
}

// ListSales returns one page of sales matching filter.
func (s *SaleService) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.SaleView, error) {
	filter = filter.Normalize()

	uow, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	defer uow.Rollback()

	views, err := uow.Sales().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	s.logger.Debug("sales listed",
		zap.Int64("sale_id_filter", filter.SaleID),
		zap.String("customer_filter", filter.CustomerName),
		zap.String("branch_filter", filter.BranchName),
		zap.Int("results_count", len(views)),
	)
	return views, nil
}
