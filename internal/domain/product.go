package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID               uuid.UUID
	SKU              string
	Name             string
	BasePrice        Money
	MarkupPercentage decimal.Decimal
	StockQuantity    int32

	// Commodity-linked attributes. Weight is in grams, purity in karats.
	IsCommodityPriced bool
	CommodityWeight   *decimal.Decimal
	CommodityPurity   *decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CommodityRate is the market price of one gram of the priced material.
type CommodityRate struct {
	ID            int64
	Rate          decimal.Decimal
	EffectiveDate time.Time
	CreatedAt     time.Time
}
