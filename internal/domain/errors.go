package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrNonCancellable     = errors.New("order is not cancellable")
	ErrConfigurationFault = errors.New("configuration fault")
)

var (
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	ErrSlipNotFound    = fmt.Errorf("slip %w", ErrNotFound)

	ErrUnknownStatus    = fmt.Errorf("%w: unknown status", ErrInvalidRequest)
	ErrEmptyOrder       = fmt.Errorf("%w: no items in order", ErrInvalidRequest)
	ErrSlipRequired     = fmt.Errorf("%w: payment slip is required", ErrInvalidRequest)
	ErrInvalidQuantity  = fmt.Errorf("%w: quantity must be positive", ErrInvalidRequest)
	ErrInvalidCustomer  = fmt.Errorf("%w: customer details", ErrInvalidRequest)
	ErrSlipTooLarge     = fmt.Errorf("%w: payment slip is too large", ErrInvalidRequest)
	ErrInvalidSlipName  = fmt.Errorf("%w: payment slip file name", ErrInvalidRequest)
	ErrNothingToUpdate  = fmt.Errorf("%w: no status given", ErrInvalidRequest)
	ErrCurrencyMismatch = fmt.Errorf("%w: currency mismatch", ErrInvalidRequest)
)

// StockError reports a reservation that exceeds the available quantity.
type StockError struct {
	ProductID uuid.UUID
	Requested int32
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d", e.ProductID, e.Requested)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

type ErrorKind string

const (
	KindNotFound           ErrorKind = "not_found"
	KindInsufficientStock  ErrorKind = "insufficient_stock"
	KindInvalidRequest     ErrorKind = "invalid_request"
	KindNonCancellable     ErrorKind = "non_cancellable"
	KindConfigurationFault ErrorKind = "configuration_fault"
	KindInternal           ErrorKind = "internal"
)

// KindOf classifies err for a boundary layer.
// Only KindConfigurationFault and KindInternal should be rendered as opaque server errors.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfigurationFault):
		return KindConfigurationFault
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrNonCancellable):
		return KindNonCancellable
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	default:
		return KindInternal
	}
}

func (k ErrorKind) IsOpaque() bool {
	return k == KindConfigurationFault || k == KindInternal
}

func NonCancellableError(status OrderStatus) error {
	return fmt.Errorf("%w: status %s", ErrNonCancellable, status)
}
