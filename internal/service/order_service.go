package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/nikolayk812/goldorder/internal/domain"
	"github.com/nikolayk812/goldorder/internal/port"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

// OrderService builds orders and drives their status transitions.
type OrderService struct {
	base
}

func NewOrderService(deps Deps) (*OrderService, error) {
	b, err := newBase(deps, true)
	if err != nil {
		return nil, err
	}
	return &OrderService{base: b}, nil
}

// CreateOrder prices every line, reserves its stock, persists the order and stores the slip.
// Everything happens in one transaction: any failure leaves stock, rows and blobs as they were.
func (s *OrderService) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	started := s.clock()

	if err := validateCreateRequest(req); err != nil {
		return domain.Order{}, err
	}

	slip, err := s.prepareSlip(req.Slip)
	if err != nil {
		return domain.Order{}, err
	}

	var (
		order      domain.Order
		storedPath string
	)

	err = s.uow.RunInTx(ctx, func(repos port.Repositories) error {
		items, err := s.reserveItems(ctx, repos, req.Lines)
		if err != nil {
			return err
		}

		totals, err := domain.ComputeTotals(s.currency, items, s.charges.Charges(subtotalOf(s.currency, items), items))
		if err != nil {
			return fmt.Errorf("domain.ComputeTotals: %w", err)
		}

		orderID, err := repos.Orders.InsertOrder(ctx, domain.Order{
			Customer:      normalizeCustomer(req.Customer),
			Status:        domain.OrderStatusPending,
			PaymentStatus: domain.PaymentStatusPending,
			Totals:        totals,
			Currency:      s.currency,
			Notes:         strings.TrimSpace(req.Notes),
			Items:         items,
		})
		if err != nil {
			return fmt.Errorf("orders.InsertOrder: %w", err)
		}

		record, err := s.storeSlip(ctx, orderID, slip)
		if err != nil {
			return err
		}
		storedPath = record.FilePath

		if _, err := repos.Slips.InsertSlip(ctx, record); err != nil {
			return fmt.Errorf("slips.InsertSlip: %w", err)
		}

		order, err = repos.Orders.GetOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("orders.GetOrder: %w", err)
		}

		return nil
	})
	if err != nil {
		s.deleteBlob(ctx, storedPath, "order creation rolled back")

		var stockErr *domain.StockError
		if errors.As(err, &stockErr) {
			s.metrics.StockRejected("create")
			s.logger.Info("reservation rejected",
				zap.Stringer("product_id", stockErr.ProductID),
				zap.Int32("requested", stockErr.Requested),
			)
		}

		return domain.Order{}, fmt.Errorf("uow.RunInTx: %w", err)
	}

	s.metrics.OrderCreated(started)
	s.metrics.SlipStored("create")
	s.logger.Info("order created",
		zap.Stringer("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.Stringer("total", order.Totals.Total),
	)

	return order, nil
}

// reserveItems takes the price snapshot and reserves stock for every line in request order.
// Product rows are locked up front in id order so concurrent orders cannot deadlock.
func (s *OrderService) reserveItems(ctx context.Context, repos port.Repositories, lines []domain.OrderLine) ([]domain.OrderItem, error) {
	rate, err := repos.Rates.LatestRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("rates.LatestRate: %w", err)
	}

	productIDs := lo.Map(lines, func(l domain.OrderLine, _ int) uuid.UUID { return l.ProductID })

	products, err := repos.Catalog.LockProducts(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("catalog.LockProducts: %w", err)
	}

	items := make([]domain.OrderItem, 0, len(lines))

	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, domain.ErrProductNotFound)
		}

		if product.BasePrice.Currency != s.currency {
			return nil, fmt.Errorf("%w: product %s is priced in %s, orders in %s",
				domain.ErrCurrencyMismatch, product.ID, product.BasePrice.Currency, s.currency)
		}

		quote := s.pricing.Quote(product, rate)

		if _, err := repos.Stock.Reserve(ctx, line.ProductID, line.Quantity); err != nil {
			return nil, fmt.Errorf("stock.Reserve: %w", err)
		}

		items = append(items, domain.OrderItem{
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			UnitPrice:     quote.Price,
			LineTotal:     quote.Price.Mul(line.Quantity).Round(),
			CommodityRate: quote.Rate,
		})
	}

	return items, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	order, err := s.uow.Repositories().Orders.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("orders.GetOrder: %w", err)
	}
	return order, nil
}

// ListOrders returns matching orders newest first. An empty filter lists every order.
func (s *OrderService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	orders, err := s.uow.Repositories().Orders.SearchOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("orders.SearchOrders: %w", err)
	}
	return orders, nil
}

// UpdateStatuses applies a back-office status change and its side effects.
func (s *OrderService) UpdateStatuses(ctx context.Context, orderID uuid.UUID, change domain.StatusChange) (domain.Order, error) {
	return s.transition(ctx, orderID, func(order domain.Order) (domain.Transition, error) {
		return domain.PlanStatusChange(statusOf(order), order.StockReleased, order.Slip, change)
	})
}

// CancelOrder cancels an order that has not shipped or ended and returns its stock.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return s.transition(ctx, orderID, func(order domain.Order) (domain.Transition, error) {
		return domain.PlanCancellation(statusOf(order), order.StockReleased)
	})
}

func (s *OrderService) transition(
	ctx context.Context,
	orderID uuid.UUID,
	plan func(domain.Order) (domain.Transition, error),
) (domain.Order, error) {
	var (
		order domain.Order
		t     domain.Transition
	)

	err := s.uow.RunInTx(ctx, func(repos port.Repositories) error {
		current, err := repos.Orders.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("orders.GetOrderForUpdate: %w", err)
		}

		t, err = plan(current)
		if err != nil {
			return err
		}

		if err := s.apply(ctx, repos, current, t); err != nil {
			return err
		}

		order, err = repos.Orders.GetOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("orders.GetOrder: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			s.metrics.StockRejected("reactivate")
		}
		return domain.Order{}, fmt.Errorf("uow.RunInTx: %w", err)
	}

	s.recordTransition(order.ID, t)

	return order, nil
}

// apply executes the side effects a planned transition requires.
func (s *OrderService) apply(ctx context.Context, repos port.Repositories, order domain.Order, t domain.Transition) error {
	if t.ReleaseStock && !order.StockReleased {
		if err := s.releaseItems(ctx, repos, order); err != nil {
			return err
		}
		if err := repos.Orders.SetStockReleased(ctx, order.ID, true); err != nil {
			return fmt.Errorf("orders.SetStockReleased: %w", err)
		}
	}

	if t.ReserveStock && order.StockReleased {
		productIDs := lo.Map(order.Items, func(item domain.OrderItem, _ int) uuid.UUID { return item.ProductID })
		if _, err := repos.Catalog.LockProducts(ctx, productIDs); err != nil {
			return fmt.Errorf("catalog.LockProducts: %w", err)
		}
		for _, item := range order.Items {
			if _, err := repos.Stock.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("stock.Reserve: %w", err)
			}
		}
		if err := repos.Orders.SetStockReleased(ctx, order.ID, false); err != nil {
			return fmt.Errorf("orders.SetStockReleased: %w", err)
		}
	}

	if t.StatusChanged() {
		if err := repos.Orders.UpdateOrderStatuses(ctx, order.ID, t.To); err != nil {
			return fmt.Errorf("orders.UpdateOrderStatuses: %w", err)
		}
	}

	if !t.Slip.IsZero() && order.Slip != nil {
		slip := *order.Slip
		if t.Slip.MarkVerified {
			now := s.clock()
			slip.Verified = true
			slip.VerifiedAt = &now
		}
		if t.Slip.LinkPaymentStatus != nil {
			slip.PaymentStatus = *t.Slip.LinkPaymentStatus
		}
		if err := repos.Slips.UpdateSlip(ctx, slip); err != nil {
			return fmt.Errorf("slips.UpdateSlip: %w", err)
		}
	}

	return nil
}

// releaseItems returns every item quantity to stock. A product removed from the
// catalog since the order was placed is skipped with a warning.
func (s *OrderService) releaseItems(ctx context.Context, repos port.Repositories, order domain.Order) error {
	productIDs := lo.Map(order.Items, func(item domain.OrderItem, _ int) uuid.UUID { return item.ProductID })
	if _, err := repos.Catalog.LockProducts(ctx, productIDs); err != nil {
		return fmt.Errorf("catalog.LockProducts: %w", err)
	}

	for _, item := range order.Items {
		_, err := repos.Stock.Release(ctx, item.ProductID, item.Quantity)
		if err == nil {
			continue
		}
		if errors.Is(err, domain.ErrProductNotFound) {
			s.logger.Warn("restock skipped, product missing",
				zap.Stringer("order_id", order.ID),
				zap.Stringer("product_id", item.ProductID),
				zap.Int32("quantity", item.Quantity),
			)
			continue
		}
		return fmt.Errorf("stock.Release: %w", err)
	}
	return nil
}

func (s *OrderService) recordTransition(orderID uuid.UUID, t domain.Transition) {
	if t.From.Order != t.To.Order {
		s.metrics.Transition("order", string(t.To.Order))
		if t.To.Order == domain.OrderStatusCancelled {
			s.metrics.OrderCancelled()
		}
	}
	if t.From.Payment != t.To.Payment {
		s.metrics.Transition("payment", string(t.To.Payment))
	}

	if t.StatusChanged() {
		s.logger.Info("order status changed",
			zap.Stringer("order_id", orderID),
			zap.String("previous_status", string(t.From.Order)),
			zap.String("status", string(t.To.Order)),
			zap.String("previous_payment_status", string(t.From.Payment)),
			zap.String("payment_status", string(t.To.Payment)),
			zap.Bool("restocked", t.ReleaseStock),
			zap.Bool("reserved", t.ReserveStock),
		)
	}
}

func validateCreateRequest(req domain.CreateOrderRequest) error {
	if len(req.Lines) == 0 {
		return domain.ErrEmptyOrder
	}

	for i, line := range req.Lines {
		if line.ProductID == uuid.Nil {
			return fmt.Errorf("%w: line %d has no product", domain.ErrInvalidRequest, i)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: line %d has quantity %d", domain.ErrInvalidQuantity, i, line.Quantity)
		}
	}

	if strings.TrimSpace(req.Customer.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidCustomer)
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Customer.Email)); err != nil {
		return fmt.Errorf("%w: email: %v", domain.ErrInvalidCustomer, err)
	}

	return nil
}

func subtotalOf(unit currency.Unit, items []domain.OrderItem) domain.Money {
	subtotal := domain.ZeroMoney(unit)
	for _, item := range items {
		subtotal.Amount = subtotal.Amount.Add(item.LineTotal.Amount)
	}
	return subtotal
}

func normalizeCustomer(c domain.CustomerDetails) domain.CustomerDetails {
	return domain.CustomerDetails{
		Name:      strings.TrimSpace(c.Name),
		Email:     strings.TrimSpace(c.Email),
		Address:   strings.TrimSpace(c.Address),
		Telephone: strings.TrimSpace(c.Telephone),
	}
}

func statusOf(order domain.Order) domain.StatusPair {
	return domain.StatusPair{Order: order.Status, Payment: order.PaymentStatus}
}
