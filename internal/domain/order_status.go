package domain

import (
	"fmt"
	"strings"
)

type OrderStatus string

// remember to add new statuses to the validOrderStatuses map
const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

var validOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:    {},
	OrderStatusProcessing: {},
	OrderStatusShipped:    {},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
	OrderStatusRefunded:   {},
}

// ToOrderStatus parses a status name case-insensitively.
func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}

	return "", fmt.Errorf("%w: order status %q", ErrUnknownStatus, s)
}

func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusRefunded,
	}
}

// IsCancellable reports whether an order in this status may still be cancelled.
func (s OrderStatus) IsCancellable() bool {
	switch s {
	case OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return false
	default:
		return true
	}
}

// HoldsStock reports whether an order in this status keeps its items out of stock.
func (s OrderStatus) HoldsStock() bool {
	return s != OrderStatusCancelled && s != OrderStatusRefunded
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusVerified PaymentStatus = "verified"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var validPaymentStatuses = map[PaymentStatus]struct{}{
	PaymentStatusPending:  {},
	PaymentStatusVerified: {},
	PaymentStatusFailed:   {},
	PaymentStatusRefunded: {},
}

func ToPaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := validPaymentStatuses[status]; ok {
		return status, nil
	}

	return "", fmt.Errorf("%w: payment status %q", ErrUnknownStatus, s)
}

func PaymentStatuses() []PaymentStatus {
	return []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusVerified,
		PaymentStatusFailed,
		PaymentStatusRefunded,
	}
}
