// Package service holds the order engine entry points: order creation,
// status transitions, payment slips and live catalog prices.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/nikolayk812/goldorder/internal/logging"
	"github.com/nikolayk812/goldorder/internal/metrics"
	"github.com/nikolayk812/goldorder/internal/port"
	"github.com/nikolayk812/goldorder/internal/pricing"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

const defaultMaxSlipBytes = 10 << 20

var defaultCurrency = currency.MustParseISO("LKR")

// Deps are shared by every service in the package.
type Deps struct {
	UnitOfWork port.UnitOfWork
	Blobs      port.BlobStore
	Pricing    *pricing.Calculator
	Charges    pricing.ChargePolicy
	Metrics    *metrics.OrderMetrics
	Logger     *zap.Logger
	Clock      func() time.Time
	// Currency every order is priced in.
	Currency     currency.Unit
	MaxSlipBytes int64
}

type base struct {
	uow          port.UnitOfWork
	blobs        port.BlobStore
	pricing      *pricing.Calculator
	charges      pricing.ChargePolicy
	metrics      *metrics.OrderMetrics
	logger       *zap.Logger
	clock        func() time.Time
	currency     currency.Unit
	maxSlipBytes int64
}

func newBase(deps Deps, needsBlobs bool) (base, error) {
	if deps.UnitOfWork == nil {
		return base{}, errors.New("service: unit of work is required")
	}
	if needsBlobs && deps.Blobs == nil {
		return base{}, errors.New("service: blob store is required")
	}

	calc := deps.Pricing
	if calc == nil {
		calc = pricing.NewCalculator()
	}

	var charges pricing.ChargePolicy = pricing.NoCharges{}
	if deps.Charges != nil {
		charges = deps.Charges
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	unit := deps.Currency
	if unit == (currency.Unit{}) {
		unit = defaultCurrency
	}

	maxSlipBytes := deps.MaxSlipBytes
	if maxSlipBytes <= 0 {
		maxSlipBytes = defaultMaxSlipBytes
	}

	return base{
		uow:     deps.UnitOfWork,
		blobs:   deps.Blobs,
		pricing: calc,
		charges: charges,
		metrics: deps.Metrics,
		logger:  logging.OrNop(deps.Logger),
		clock: func() time.Time {
			return clock().UTC()
		},
		currency:     unit,
		maxSlipBytes: maxSlipBytes,
	}, nil
}

// deleteBlob removes a stored blob whose database record is gone or was never committed.
// Failures are logged and never returned.
func (b base) deleteBlob(ctx context.Context, path, reason string) {
	if path == "" {
		return
	}

	// the request context may already be done when cleaning up after a failure
	ctx = context.WithoutCancel(ctx)

	if err := b.blobs.Delete(ctx, path); err != nil {
		b.logger.Warn("blob delete failed",
			zap.String("path", path),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}
