package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/goldorder/internal/domain"
)

type CatalogStore interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error)
	SaveProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	// LockProducts row-locks the given products in id order and returns those found.
	LockProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]domain.Product, error)
}

// StockLedger is the only writer of product stock quantities.
type StockLedger interface {
	// Reserve decrements stock or fails with *domain.StockError when not enough is available.
	Reserve(ctx context.Context, productID uuid.UUID, quantity int32) (int32, error)
	// Release increments stock. It fails only when the product no longer exists.
	Release(ctx context.Context, productID uuid.UUID, quantity int32) (int32, error)
}

type CommodityRateStore interface {
	// LatestRate returns nil when no rate has been recorded.
	LatestRate(ctx context.Context) (*domain.CommodityRate, error)
	SaveRate(ctx context.Context, rate domain.CommodityRate) (domain.CommodityRate, error)
	ListRates(ctx context.Context, limit int32) ([]domain.CommodityRate, error)
}
