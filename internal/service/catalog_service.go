package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/goldorder/internal/domain"
	"github.com/nikolayk812/goldorder/internal/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService serves live prices and maintains products and the commodity rate history.
type CatalogService struct {
	base
}

func NewCatalogService(deps Deps) (*CatalogService, error) {
	b, err := newBase(deps, false)
	if err != nil {
		return nil, err
	}
	return &CatalogService{base: b}, nil
}

// CurrentPrice prices a product at the latest commodity rate, as order creation would.
func (s *CatalogService) CurrentPrice(ctx context.Context, productID uuid.UUID) (pricing.Quote, error) {
	repos := s.uow.Repositories()

	product, err := repos.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("catalog.GetProduct: %w", err)
	}

	rate, err := repos.Rates.LatestRate(ctx)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("rates.LatestRate: %w", err)
	}

	return s.pricing.Quote(product, rate), nil
}

func (s *CatalogService) SaveProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	saved, err := s.uow.Repositories().Catalog.SaveProduct(ctx, product)
	if err != nil {
		return domain.Product{}, fmt.Errorf("catalog.SaveProduct: %w", err)
	}
	return saved, nil
}

// RecordRate appends a commodity rate. Existing order prices are unaffected.
func (s *CatalogService) RecordRate(ctx context.Context, rate decimal.Decimal, effectiveDate time.Time) (domain.CommodityRate, error) {
	saved, err := s.uow.Repositories().Rates.SaveRate(ctx, domain.CommodityRate{
		Rate:          rate,
		EffectiveDate: effectiveDate,
	})
	if err != nil {
		return domain.CommodityRate{}, fmt.Errorf("rates.SaveRate: %w", err)
	}

	s.logger.Info("commodity rate recorded",
		zap.String("rate", saved.Rate.String()),
		zap.Time("effective_date", saved.EffectiveDate),
	)

	return saved, nil
}

func (s *CatalogService) ListRates(ctx context.Context, limit int32) ([]domain.CommodityRate, error) {
	rates, err := s.uow.Repositories().Rates.ListRates(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("rates.ListRates: %w", err)
	}
	return rates, nil
}
