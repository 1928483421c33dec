package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/goldorder/internal/domain"
)

type OrderRepository interface {
	// GetOrder returns the order with its items and active slip.
	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	// GetOrderForUpdate is GetOrder holding a row lock on the order until the transaction ends.
	GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (domain.Order, error)

	SearchOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)

	InsertOrder(ctx context.Context, order domain.Order) (uuid.UUID, error)

	UpdateOrderStatuses(ctx context.Context, orderID uuid.UUID, status domain.StatusPair) error

	// SetStockReleased records whether the order's items are currently back in stock.
	SetStockReleased(ctx context.Context, orderID uuid.UUID, released bool) error
}

type SlipRepository interface {
	GetSlip(ctx context.Context, orderID uuid.UUID) (domain.Slip, error)
	InsertSlip(ctx context.Context, slip domain.Slip) (domain.Slip, error)
	// UpdateSlip persists the payment status link and verification fields.
	UpdateSlip(ctx context.Context, slip domain.Slip) error
	DeleteSlip(ctx context.Context, orderID uuid.UUID) error
}

// StatusVocabulary resolves status names to their seeded rows.
// A missing row is a deployment fault reported as domain.ErrConfigurationFault.
type StatusVocabulary interface {
	Seed(ctx context.Context) error
	Verify(ctx context.Context) error

	OrderStatusID(ctx context.Context, status domain.OrderStatus) (int16, error)
	PaymentStatusID(ctx context.Context, status domain.PaymentStatus) (int16, error)
}
