package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikolayk812/goldorder/internal/domain"
	"github.com/nikolayk812/goldorder/internal/port"
	"go.uber.org/zap"
)

// SlipService manages the single payment slip attached to an order.
type SlipService struct {
	base
}

func NewSlipService(deps Deps) (*SlipService, error) {
	b, err := newBase(deps, true)
	if err != nil {
		return nil, err
	}
	return &SlipService{base: b}, nil
}

// UploadSlip attaches a new unverified slip, replacing any previous one, and moves
// a pending order to processing. The previous bytes are deleted after commit.
func (s *SlipService) UploadSlip(ctx context.Context, orderID uuid.UUID, upload domain.SlipUpload) (domain.Slip, error) {
	prepared, err := s.prepareSlip(&upload)
	if err != nil {
		return domain.Slip{}, err
	}

	var (
		slip       domain.Slip
		storedPath string
		oldPath    string
		t          domain.Transition
	)

	err = s.uow.RunInTx(ctx, func(repos port.Repositories) error {
		order, err := repos.Orders.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("orders.GetOrderForUpdate: %w", err)
		}

		record, err := s.storeSlip(ctx, orderID, prepared)
		if err != nil {
			return err
		}
		storedPath = record.FilePath

		if order.Slip != nil {
			if err := repos.Slips.DeleteSlip(ctx, orderID); err != nil {
				return fmt.Errorf("slips.DeleteSlip: %w", err)
			}
			oldPath = order.Slip.FilePath
		}

		slip, err = repos.Slips.InsertSlip(ctx, record)
		if err != nil {
			return fmt.Errorf("slips.InsertSlip: %w", err)
		}

		t = domain.PlanSlipAttached(statusOf(order))
		if t.StatusChanged() {
			if err := repos.Orders.UpdateOrderStatuses(ctx, orderID, t.To); err != nil {
				return fmt.Errorf("orders.UpdateOrderStatuses: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		s.deleteBlob(ctx, storedPath, "slip upload rolled back")
		return domain.Slip{}, fmt.Errorf("uow.RunInTx: %w", err)
	}

	s.deleteBlob(ctx, oldPath, "slip replaced")

	operation := "upload"
	if oldPath != "" {
		operation = "replace"
	}
	s.metrics.SlipStored(operation)
	if t.StatusChanged() {
		s.metrics.Transition("order", string(t.To.Order))
	}

	s.logger.Info("slip stored",
		zap.Stringer("order_id", orderID),
		zap.String("operation", operation),
		zap.String("path", slip.FilePath),
		zap.Int64("size", slip.Size),
	)

	return slip, nil
}

// ReplaceSlip is UploadSlip for an order that already has a slip.
func (s *SlipService) ReplaceSlip(ctx context.Context, orderID uuid.UUID, upload domain.SlipUpload) (domain.Slip, error) {
	return s.UploadSlip(ctx, orderID, upload)
}

// DeleteSlip removes the slip and reverts the order to pending unless it has shipped or ended.
func (s *SlipService) DeleteSlip(ctx context.Context, orderID uuid.UUID) error {
	var (
		oldPath string
		t       domain.Transition
	)

	err := s.uow.RunInTx(ctx, func(repos port.Repositories) error {
		order, err := repos.Orders.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("orders.GetOrderForUpdate: %w", err)
		}

		if order.Slip == nil {
			return fmt.Errorf("order %s: %w", orderID, domain.ErrSlipNotFound)
		}

		if err := repos.Slips.DeleteSlip(ctx, orderID); err != nil {
			return fmt.Errorf("slips.DeleteSlip: %w", err)
		}
		oldPath = order.Slip.FilePath

		t = domain.PlanSlipRemoved(statusOf(order))
		if t.StatusChanged() {
			if err := repos.Orders.UpdateOrderStatuses(ctx, orderID, t.To); err != nil {
				return fmt.Errorf("orders.UpdateOrderStatuses: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("uow.RunInTx: %w", err)
	}

	s.deleteBlob(ctx, oldPath, "slip deleted")

	if t.StatusChanged() {
		s.metrics.Transition("order", string(t.To.Order))
	}
	s.logger.Info("slip deleted", zap.Stringer("order_id", orderID))

	return nil
}

func (s *SlipService) GetSlip(ctx context.Context, orderID uuid.UUID) (domain.Slip, error) {
	order, err := s.uow.Repositories().Orders.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Slip{}, fmt.Errorf("orders.GetOrder: %w", err)
	}

	if order.Slip == nil {
		return domain.Slip{}, fmt.Errorf("order %s: %w", orderID, domain.ErrSlipNotFound)
	}

	return *order.Slip, nil
}

// LoadSlip returns the slip record together with its stored bytes.
func (s *SlipService) LoadSlip(ctx context.Context, orderID uuid.UUID) (domain.Slip, []byte, error) {
	slip, err := s.uow.Repositories().Slips.GetSlip(ctx, orderID)
	if err != nil {
		return domain.Slip{}, nil, fmt.Errorf("slips.GetSlip: %w", err)
	}

	data, err := s.blobs.Load(ctx, slip.FilePath)
	if err != nil {
		return domain.Slip{}, nil, fmt.Errorf("blobs.Load: %w", err)
	}

	return slip, data, nil
}
