// Package pricing computes sell prices for catalog items whose value depends
// on a fluctuating commodity rate, and the charges applied on top of an order.
package pricing

import (
	"github.com/nikolayk812/goldorder/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultFullPurity is the purity of the pure material, 24 karats.
const DefaultFullPurity = 24

// intermediate precision for ratio divisions
const divisionPrecision = 10

var hundred = decimal.NewFromInt(100)

// Quote is a computed price together with the inputs that produced it.
type Quote struct {
	Price        domain.Money
	MaterialCost decimal.Decimal
	// Rate is the commodity rate applied, nil when none contributed.
	Rate *decimal.Decimal
}

// Calculator is pure: the same product and rate always yield the same price.
type Calculator struct {
	fullPurity decimal.Decimal
}

func NewCalculator() *Calculator {
	return NewCalculatorWithPurity(DefaultFullPurity)
}

func NewCalculatorWithPurity(fullPurity int64) *Calculator {
	if fullPurity <= 0 {
		fullPurity = DefaultFullPurity
	}
	return &Calculator{fullPurity: decimal.NewFromInt(fullPurity)}
}

func (c *Calculator) Price(product domain.Product, rate *domain.CommodityRate) domain.Money {
	return c.Quote(product, rate).Price
}

// Quote computes (basePrice + materialCost) * (1 + markup/100) rounded half-up to cents.
// A missing or non-positive rate contributes no material cost.
func (c *Calculator) Quote(product domain.Product, rate *domain.CommodityRate) Quote {
	materialCost := decimal.Zero
	var appliedRate *decimal.Decimal

	if c.commodityPriced(product) && rate != nil && rate.Rate.IsPositive() {
		purityFactor := product.CommodityPurity.DivRound(c.fullPurity, divisionPrecision)
		materialCost = product.CommodityWeight.Mul(purityFactor).Mul(rate.Rate)
		r := rate.Rate
		appliedRate = &r
	}

	markupFactor := decimal.NewFromInt(1).Add(product.MarkupPercentage.DivRound(hundred, divisionPrecision))

	price := product.BasePrice.Amount.Add(materialCost).Mul(markupFactor)

	return Quote{
		Price:        domain.NewMoney(price, product.BasePrice.Currency).Round(),
		MaterialCost: materialCost,
		Rate:         appliedRate,
	}
}

func (c *Calculator) commodityPriced(product domain.Product) bool {
	return product.IsCommodityPriced &&
		product.CommodityWeight != nil && product.CommodityWeight.IsPositive() &&
		product.CommodityPurity != nil && product.CommodityPurity.IsPositive()
}
