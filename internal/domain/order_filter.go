package domain

import (
	"fmt"
	"time"
)

// OrderFilter has AND semantics across fields, OR semantics within each field slice.
// An empty filter matches every order.
type OrderFilter struct {
	Statuses        []OrderStatus
	PaymentStatuses []PaymentStatus
	CreatedAt       *TimeRange
}

func (f OrderFilter) Validate() error {
	for _, status := range f.Statuses {
		if _, err := ToOrderStatus(string(status)); err != nil {
			return err
		}
	}

	for _, status := range f.PaymentStatuses {
		if _, err := ToPaymentStatus(string(status)); err != nil {
			return err
		}
	}

	if f.CreatedAt != nil {
		if err := f.CreatedAt.Validate(); err != nil {
			return fmt.Errorf("createdAt: %w", err)
		}
	}

	return nil
}

type TimeRange struct {
	Before *time.Time
	After  *time.Time
}

func (t TimeRange) Validate() error {
	if t.Before == nil && t.After == nil {
		return fmt.Errorf("%w: both Before and After are nil", ErrInvalidRequest)
	}

	if t.Before != nil && t.After != nil {
		if t.Before.Before(*t.After) {
			return fmt.Errorf("%w: before is before After", ErrInvalidRequest)
		}
	}

	return nil
}
