package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type Order struct {
	ID            uuid.UUID
	Customer      CustomerDetails
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Totals        Totals
	Currency      currency.Unit
	Notes         string
	Items         []OrderItem
	// Slip is the single active payment proof, nil when none is attached.
	Slip *Slip
	// StockReleased is set while the item quantities have been returned to stock.
	StockReleased bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ID        int64
	ProductID uuid.UUID
	Quantity  int32
	// UnitPrice is captured at creation and never recomputed.
	UnitPrice Money
	LineTotal Money
	// CommodityRate is the per-gram rate the unit price was computed with, if any.
	CommodityRate *decimal.Decimal

	CreatedAt time.Time
}

type CustomerDetails struct {
	Name      string
	Email     string
	Address   string
	Telephone string
}

// Totals holds the monetary breakdown: Total = Subtotal + Tax + Shipping - Discount.
type Totals struct {
	Subtotal Money
	Tax      Money
	Shipping Money
	Discount Money
	Total    Money
}

// OrderLine is a requested (product, quantity) pair.
type OrderLine struct {
	ProductID uuid.UUID
	Quantity  int32
}

type CreateOrderRequest struct {
	Customer CustomerDetails
	Lines    []OrderLine
	Slip     *SlipUpload
	Notes    string
}

// Charges are the adjustments applied on top of the item subtotal.
type Charges struct {
	Tax      Money
	Shipping Money
	Discount Money
}

// ComputeTotals sums the line totals and applies charges.
func ComputeTotals(unit currency.Unit, items []OrderItem, charges Charges) (Totals, error) {
	subtotal := ZeroMoney(unit)
	for _, item := range items {
		var err error
		subtotal, err = subtotal.Add(item.LineTotal)
		if err != nil {
			return Totals{}, err
		}
	}

	total, err := subtotal.Add(charges.Tax)
	if err != nil {
		return Totals{}, err
	}
	if total, err = total.Add(charges.Shipping); err != nil {
		return Totals{}, err
	}
	if total, err = total.Sub(charges.Discount); err != nil {
		return Totals{}, err
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      charges.Tax,
		Shipping: charges.Shipping,
		Discount: charges.Discount,
		Total:    total.Round(),
	}, nil
}
