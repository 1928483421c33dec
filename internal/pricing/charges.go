package pricing

import (
	"github.com/nikolayk812/goldorder/internal/domain"
	"github.com/shopspring/decimal"
)

// ChargePolicy decides tax, shipping and discount for an order subtotal.
type ChargePolicy interface {
	Charges(subtotal domain.Money, items []domain.OrderItem) domain.Charges
}

// NoCharges applies nothing on top of the subtotal.
type NoCharges struct{}

func (NoCharges) Charges(subtotal domain.Money, _ []domain.OrderItem) domain.Charges {
	zero := domain.ZeroMoney(subtotal.Currency)
	return domain.Charges{Tax: zero, Shipping: zero, Discount: zero}
}

// RateCharges adds a percentage tax on the subtotal and a flat shipping fee.
type RateCharges struct {
	TaxPercentage decimal.Decimal
	Shipping      decimal.Decimal
}

func (p RateCharges) Charges(subtotal domain.Money, items []domain.OrderItem) domain.Charges {
	unit := subtotal.Currency

	tax := subtotal.Amount.Mul(p.TaxPercentage).DivRound(hundred, divisionPrecision)

	shipping := decimal.Zero
	if len(items) > 0 {
		shipping = p.Shipping
	}

	return domain.Charges{
		Tax:      domain.NewMoney(tax, unit).Round(),
		Shipping: domain.NewMoney(shipping, unit).Round(),
		Discount: domain.ZeroMoney(unit),
	}
}

// NewChargePolicy returns NoCharges when both parameters are zero.
func NewChargePolicy(taxPercentage, shipping decimal.Decimal) ChargePolicy {
	if taxPercentage.IsZero() && shipping.IsZero() {
		return NoCharges{}
	}
	return RateCharges{TaxPercentage: taxPercentage, Shipping: shipping}
}
