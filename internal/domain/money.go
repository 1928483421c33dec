package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// MoneyScale is the number of fractional digits kept for monetary amounts.
const MoneyScale = 2

type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

func NewMoney(amount decimal.Decimal, unit currency.Unit) Money {
	return Money{Amount: amount, Currency: unit}
}

func ZeroMoney(unit currency.Unit) Money {
	return Money{Amount: decimal.Zero, Currency: unit}
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

func (m Money) Mul(quantity int32) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt32(quantity)), Currency: m.Currency}
}

// Round rounds half away from zero, which is half-up for the non-negative amounts used here.
func (m Money) Round() Money {
	return Money{Amount: m.Amount.Round(MoneyScale), Currency: m.Currency}
}

func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

func (m Money) Equal(other Money) bool {
	return m.Currency.String() == other.Currency.String() && m.Amount.Equal(other.Amount)
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(MoneyScale), m.Currency)
}

func (m Money) sameCurrency(other Money) error {
	if m.Currency.String() != other.Currency.String() {
		return fmt.Errorf("%w: currency mismatch %s != %s", ErrInvalidRequest, m.Currency, other.Currency)
	}
	return nil
}
