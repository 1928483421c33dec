package service_test

import (
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/goldorder/internal/domain"
	"github.com/nikolayk812/goldorder/internal/service"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func (suite *serviceSuite) TestCreateOrder_ReservesStockAndPrices() {
	product := suite.createProduct("100.00", "10", 5)

	order := suite.mustCreateOrder(line(product, 5))

	suite.Equal(domain.OrderStatusPending, order.Status)
	suite.Equal(domain.PaymentStatusPending, order.PaymentStatus)
	suite.Require().Len(order.Items, 1)

	item := order.Items[0]
	suite.Equal(product.ID, item.ProductID)
	suite.Equal(int32(5), item.Quantity)
	suite.True(decimal.RequireFromString("110.00").Equal(item.UnitPrice.Amount), item.UnitPrice.String())
	suite.True(decimal.RequireFromString("550.00").Equal(item.LineTotal.Amount), item.LineTotal.String())
	suite.Nil(item.CommodityRate)

	suite.True(decimal.RequireFromString("550.00").Equal(order.Totals.Subtotal.Amount))
	suite.True(decimal.RequireFromString("550.00").Equal(order.Totals.Total.Amount))
	suite.Equal(lkr, order.Currency)

	suite.Require().NotNil(order.Slip)
	suite.False(order.Slip.Verified)
	suite.Nil(order.Slip.VerifiedAt)
	suite.Equal(domain.PaymentStatusPending, order.Slip.PaymentStatus)
	suite.True(suite.blobExists(order.Slip.FilePath))

	suite.Equal(int32(0), suite.stockOf(product.ID))
	suite.InDelta(1, testutil.ToFloat64(suite.metrics.OrdersCreated), 0)
	suite.Equal(1, suite.logs.FilterMessage("order created").Len())

	fetched, err := suite.orders.GetOrder(suite.T().Context(), order.ID)
	suite.Require().NoError(err)
	suite.Equal(order.ID, fetched.ID)
	suite.Equal(order.Customer, fetched.Customer)
}

func (suite *serviceSuite) TestCreateOrder_InsufficientStock() {
	product := suite.createProduct("100.00", "10", 5)
	suite.mustCreateOrder(line(product, 5))

	_, err := suite.createOrder(line(product, 1))
	suite.Require().ErrorIs(err, domain.ErrInsufficientStock)
	suite.Equal(domain.KindInsufficientStock, domain.KindOf(err))

	var stockErr *domain.StockError
	suite.Require().ErrorAs(err, &stockErr)
	suite.Equal(product.ID, stockErr.ProductID)
	suite.Equal(int32(1), stockErr.Requested)

	suite.Equal(int32(0), suite.stockOf(product.ID))
	suite.Equal(1, suite.countRows("orders"))
	suite.Equal(1, suite.countBlobs())
	suite.InDelta(1, testutil.ToFloat64(suite.metrics.StockRejections.WithLabelValues("create")), 0)
}

func (suite *serviceSuite) TestCreateOrder_AllOrNothing() {
	first := suite.createProduct("10.00", "0", 3)
	second := suite.createProduct("20.00", "0", 1)
	third := suite.createProduct("30.00", "0", 4)

	_, err := suite.createOrder(line(first, 2), line(second, 2), line(third, 1))
	suite.Require().ErrorIs(err, domain.ErrInsufficientStock)

	suite.Equal(int32(3), suite.stockOf(first.ID))
	suite.Equal(int32(1), suite.stockOf(second.ID))
	suite.Equal(int32(4), suite.stockOf(third.ID))

	suite.Equal(0, suite.countRows("orders"))
	suite.Equal(0, suite.countRows("order_items"))
	suite.Equal(0, suite.countRows("slips"))
	suite.Equal(0, suite.countBlobs())
}

func (suite *serviceSuite) TestCreateOrder_BlobStoreFailureRollsBack() {
	product := suite.createProduct("10.00", "0", 3)
	suite.blobs.failStore = true

	_, err := suite.createOrder(line(product, 1))
	suite.Require().ErrorIs(err, errBlobUnavailable)
	suite.Equal(domain.KindInternal, domain.KindOf(err))

	suite.Equal(int32(3), suite.stockOf(product.ID))
	suite.Equal(0, suite.countRows("orders"))
}

func (suite *serviceSuite) TestCreateOrder_GoldPricing() {
	product := suite.createGoldProduct("0", "0", "10", "18", 2)

	_, err := suite.catalog.RecordRate(suite.T().Context(), decimal.RequireFromString("100"), time.Now())
	suite.Require().NoError(err)

	order := suite.mustCreateOrder(line(product, 1))

	suite.Require().Len(order.Items, 1)
	item := order.Items[0]
	suite.True(decimal.RequireFromString("750.00").Equal(item.UnitPrice.Amount), item.UnitPrice.String())
	suite.Require().NotNil(item.CommodityRate)
	suite.True(decimal.RequireFromString("100").Equal(*item.CommodityRate))
}

func (suite *serviceSuite) TestCreateOrder_PriceSnapshotIsImmutable() {
	ctx := suite.T().Context()

	product := suite.createGoldProduct("50.00", "0", "10", "24", 5)

	_, err := suite.catalog.RecordRate(ctx, decimal.RequireFromString("10"), time.Now().Add(-time.Hour))
	suite.Require().NoError(err)

	order := suite.mustCreateOrder(line(product, 1))
	suite.Require().Len(order.Items, 1)
	suite.True(decimal.RequireFromString("150.00").Equal(order.Items[0].UnitPrice.Amount))

	_, err = suite.catalog.RecordRate(ctx, decimal.RequireFromString("20"), time.Now())
	suite.Require().NoError(err)

	product.BasePrice.Amount = decimal.RequireFromString("80.00")
	product.StockQuantity = suite.stockOf(product.ID)
	_, err = suite.catalog.SaveProduct(ctx, product)
	suite.Require().NoError(err)

	quote, err := suite.catalog.CurrentPrice(ctx, product.ID)
	suite.Require().NoError(err)
	suite.True(decimal.RequireFromString("280.00").Equal(quote.Price.Amount), quote.Price.String())

	fetched, err := suite.orders.GetOrder(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Require().Len(fetched.Items, 1)
	suite.True(decimal.RequireFromString("150.00").Equal(fetched.Items[0].UnitPrice.Amount))
	suite.True(decimal.RequireFromString("10").Equal(*fetched.Items[0].CommodityRate))
	suite.True(decimal.RequireFromString("150.00").Equal(fetched.Totals.Total.Amount))
}

func (suite *serviceSuite) TestCreateOrder_Validation() {
	product := suite.createProduct("10.00", "0", 3)

	noSlip := newOrderRequest(line(product, 1))
	noSlip.Slip = nil

	emptySlip := newOrderRequest(line(product, 1))
	emptySlip.Slip = &domain.SlipUpload{FileName: "slip.png"}

	badEmail := newOrderRequest(line(product, 1))
	badEmail.Customer.Email = "not-an-email"

	noName := newOrderRequest(line(product, 1))
	noName.Customer.Name = "  "

	badSlipName := newOrderRequest(line(product, 1))
	badSlipName.Slip.FileName = "../"

	tests := []struct {
		name    string
		req     domain.CreateOrderRequest
		wantErr error
	}{
		{
			name:    "no lines",
			req:     newOrderRequest(),
			wantErr: domain.ErrEmptyOrder,
		},
		{
			name:    "zero quantity",
			req:     newOrderRequest(line(product, 0)),
			wantErr: domain.ErrInvalidQuantity,
		},
		{
			name:    "negative quantity",
			req:     newOrderRequest(line(product, -2)),
			wantErr: domain.ErrInvalidQuantity,
		},
		{
			name:    "missing slip",
			req:     noSlip,
			wantErr: domain.ErrSlipRequired,
		},
		{
			name:    "empty slip",
			req:     emptySlip,
			wantErr: domain.ErrSlipRequired,
		},
		{
			name:    "invalid email",
			req:     badEmail,
			wantErr: domain.ErrInvalidCustomer,
		},
		{
			name:    "blank name",
			req:     noName,
			wantErr: domain.ErrInvalidCustomer,
		},
		{
			name:    "invalid slip name",
			req:     badSlipName,
			wantErr: domain.ErrInvalidSlipName,
		},
		{
			name:    "unknown product",
			req:     newOrderRequest(domain.OrderLine{ProductID: uuid.New(), Quantity: 1}),
			wantErr: domain.ErrProductNotFound,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.orders.CreateOrder(suite.T().Context(), tt.req)
			suite.Require().ErrorIs(err, tt.wantErr)
			suite.False(domain.KindOf(err).IsOpaque())
		})
	}

	suite.Equal(int32(3), suite.stockOf(product.ID))
	suite.Equal(0, suite.countRows("orders"))
	suite.Equal(0, suite.countBlobs())
}

func (suite *serviceSuite) TestCreateOrder_SlipTooLarge() {
	deps := suite.deps()
	deps.MaxSlipBytes = 8

	orders, err := service.NewOrderService(deps)
	suite.Require().NoError(err)

	product := suite.createProduct("10.00", "0", 3)

	_, err = orders.CreateOrder(suite.T().Context(), newOrderRequest(line(product, 1)))
	suite.Require().ErrorIs(err, domain.ErrSlipTooLarge)
	suite.Equal(int32(3), suite.stockOf(product.ID))
}

func (suite *serviceSuite) TestCreateOrder_ConcurrentLastUnit() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 1)

	const callers = 6

	var g errgroup.Group
	errs := make([]error, callers)

	for i := range callers {
		g.Go(func() error {
			_, errs[i] = suite.orders.CreateOrder(ctx, newOrderRequest(line(product, 1)))
			return nil
		})
	}
	suite.Require().NoError(g.Wait())

	succeeded := lo.CountBy(errs, func(err error) bool { return err == nil })
	suite.Equal(1, succeeded)

	for _, err := range errs {
		if err != nil {
			suite.ErrorIs(err, domain.ErrInsufficientStock)
		}
	}

	suite.Equal(int32(0), suite.stockOf(product.ID))
	suite.Equal(1, suite.countRows("orders"))
	suite.Equal(1, suite.countBlobs())
}

func (suite *serviceSuite) TestCreateOrder_OverlappingOrdersDoNotDeadlock() {
	ctx := suite.T().Context()

	first := suite.createProduct("10.00", "0", 50)
	second := suite.createProduct("20.00", "0", 50)

	var g errgroup.Group
	for i := range 10 {
		g.Go(func() error {
			lines := []domain.OrderLine{line(first, 1), line(second, 1)}
			if i%2 == 1 {
				lines = []domain.OrderLine{line(second, 1), line(first, 1)}
			}
			_, err := suite.orders.CreateOrder(ctx, newOrderRequest(lines...))
			return err
		})
	}
	suite.Require().NoError(g.Wait())

	suite.Equal(int32(40), suite.stockOf(first.ID))
	suite.Equal(int32(40), suite.stockOf(second.ID))
}

func (suite *serviceSuite) TestCancelOrder() {
	product := suite.createProduct("100.00", "10", 5)
	order := suite.mustCreateOrder(line(product, 5))

	cancelled, err := suite.orders.CancelOrder(suite.T().Context(), order.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusCancelled, cancelled.Status)
	suite.Equal(int32(5), suite.stockOf(product.ID))
	suite.InDelta(1, testutil.ToFloat64(suite.metrics.OrdersCancelled), 0)

	_, err = suite.orders.CancelOrder(suite.T().Context(), order.ID)
	suite.Require().ErrorIs(err, domain.ErrNonCancellable)
	suite.Equal(domain.KindNonCancellable, domain.KindOf(err))
	suite.Equal(int32(5), suite.stockOf(product.ID))
}

func (suite *serviceSuite) TestCancelOrder_NotFound() {
	_, err := suite.orders.CancelOrder(suite.T().Context(), uuid.New())
	suite.Require().ErrorIs(err, domain.ErrOrderNotFound)
	suite.Equal(domain.KindNotFound, domain.KindOf(err))
}

func (suite *serviceSuite) TestCancelOrder_ShippedIsRejected() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 3)
	order := suite.mustCreateOrder(line(product, 2))

	_, err := suite.orders.UpdateStatuses(ctx, order.ID, domain.StatusChange{Order: lo.ToPtr(domain.OrderStatusShipped)})
	suite.Require().NoError(err)

	_, err = suite.orders.CancelOrder(ctx, order.ID)
	suite.Require().ErrorIs(err, domain.ErrNonCancellable)

	fetched, err := suite.orders.GetOrder(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusShipped, fetched.Status)
	suite.Equal(int32(1), suite.stockOf(product.ID))
}

func (suite *serviceSuite) TestCancelOrder_MissingProductIsSkipped() {
	ctx := suite.T().Context()

	kept := suite.createProduct("10.00", "0", 3)
	removed := suite.createProduct("20.00", "0", 3)
	order := suite.mustCreateOrder(line(kept, 1), line(removed, 2))

	_, err := suite.pool.Exec(ctx, "DELETE FROM products WHERE product_id = $1", removed.ID)
	suite.Require().NoError(err)

	cancelled, err := suite.orders.CancelOrder(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusCancelled, cancelled.Status)

	suite.Equal(int32(3), suite.stockOf(kept.ID))
	suite.Equal(1, suite.logs.FilterMessage("restock skipped, product missing").Len())
}

func (suite *serviceSuite) TestUpdateStatuses_CancelRestocks() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 4)
	order := suite.mustCreateOrder(line(product, 3))

	updated, err := suite.orders.UpdateStatuses(ctx, order.ID, domain.StatusChange{Order: lo.ToPtr(domain.OrderStatusCancelled)})
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusCancelled, updated.Status)
	suite.Equal(int32(4), suite.stockOf(product.ID))
}

func (suite *serviceSuite) TestUpdateStatuses_ReactivationReservesAgain() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 4)
	order := suite.mustCreateOrder(line(product, 3))

	_, err := suite.orders.CancelOrder(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(int32(4), suite.stockOf(product.ID))

	reactivated, err := suite.orders.UpdateStatuses(ctx, order.ID, domain.StatusChange{Order: lo.ToPtr(domain.OrderStatusProcessing)})
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusProcessing, reactivated.Status)
	suite.Equal(int32(1), suite.stockOf(product.ID))
}

func (suite *serviceSuite) TestUpdateStatuses_ReactivationAfterRefund() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 5)
	order := suite.mustCreateOrder(line(product, 2))
	suite.Equal(int32(3), suite.stockOf(product.ID))

	cancelled, err := suite.orders.CancelOrder(ctx, order.ID)
	suite.Require().NoError(err)
	suite.True(cancelled.StockReleased)
	suite.Equal(int32(5), suite.stockOf(product.ID))

	refunded, err := suite.orders.UpdateStatuses(ctx, order.ID, domain.StatusChange{Order: lo.ToPtr(domain.OrderStatusRefunded)})
	suite.Require().NoError(err)
	suite.True(refunded.StockReleased)
	suite.Equal(int32(5), suite.stockOf(product.ID))

	reactivated, err := suite.orders.UpdateStatuses(ctx, order.ID, domain.StatusChange{Order: lo.ToPtr(domain.OrderStatusProcessing)})
	suite.Require().NoError(err)
	suite.False(reactivated.StockReleased)
	suite.Equal(int32(3), suite.stockOf(product.ID))

	_, err = suite.orders.CancelOrder(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(int32(5), suite.stockOf(product.ID))
}

func (suite *serviceSuite) TestUpdateStatuses_RefundWithoutCancelKeepsStock() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 5)
	order := suite.mustCreateOrder(line(product, 2))

	_, err := suite.orders.UpdateStatuses(ctx, order.ID, domain.StatusChange{Order: lo.ToPtr(domain.OrderStatusRefunded)})
	suite.Require().NoError(err)

	reactivated, err := suite.orders.UpdateStatuses(ctx, order.ID, domain.StatusChange{Order: lo.ToPtr(domain.OrderStatusPending)})
	suite.Require().NoError(err)
	suite.False(reactivated.StockReleased)
	suite.Equal(int32(3), suite.stockOf(product.ID))

	_, err = suite.orders.CancelOrder(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(int32(5), suite.stockOf(product.ID))
}

func (suite *serviceSuite) TestUpdateStatuses_ReactivationWithoutStock() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 4)
	order := suite.mustCreateOrder(line(product, 3))

	_, err := suite.orders.CancelOrder(ctx, order.ID)
	suite.Require().NoError(err)

	suite.mustCreateOrder(line(product, 2))

	_, err = suite.orders.UpdateStatuses(ctx, order.ID, domain.StatusChange{Order: lo.ToPtr(domain.OrderStatusPending)})
	suite.Require().ErrorIs(err, domain.ErrInsufficientStock)

	fetched, err := suite.orders.GetOrder(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusCancelled, fetched.Status)
	suite.Equal(int32(2), suite.stockOf(product.ID))
	suite.InDelta(1, testutil.ToFloat64(suite.metrics.StockRejections.WithLabelValues("reactivate")), 0)
}

func (suite *serviceSuite) TestUpdateStatuses_VerifyIsIdempotent() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 4)
	order := suite.mustCreateOrder(line(product, 1))

	verify := domain.StatusChange{Payment: lo.ToPtr(domain.PaymentStatusVerified)}

	first, err := suite.orders.UpdateStatuses(ctx, order.ID, verify)
	suite.Require().NoError(err)
	suite.Equal(domain.PaymentStatusVerified, first.PaymentStatus)
	suite.Require().NotNil(first.Slip)
	suite.True(first.Slip.Verified)
	suite.Equal(domain.PaymentStatusVerified, first.Slip.PaymentStatus)
	suite.Require().NotNil(first.Slip.VerifiedAt)

	second, err := suite.orders.UpdateStatuses(ctx, order.ID, verify)
	suite.Require().NoError(err)
	suite.Require().NotNil(second.Slip)
	suite.Require().NotNil(second.Slip.VerifiedAt)
	suite.True(first.Slip.VerifiedAt.Equal(*second.Slip.VerifiedAt))
}

func (suite *serviceSuite) TestUpdateStatuses_RefundRelinksSlip() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 4)
	order := suite.mustCreateOrder(line(product, 1))

	_, err := suite.orders.UpdateStatuses(ctx, order.ID, domain.StatusChange{Payment: lo.ToPtr(domain.PaymentStatusVerified)})
	suite.Require().NoError(err)

	refunded, err := suite.orders.UpdateStatuses(ctx, order.ID, domain.StatusChange{
		Order:   lo.ToPtr(domain.OrderStatusRefunded),
		Payment: lo.ToPtr(domain.PaymentStatusRefunded),
	})
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusRefunded, refunded.Status)
	suite.Equal(domain.PaymentStatusRefunded, refunded.PaymentStatus)
	suite.Require().NotNil(refunded.Slip)
	suite.Equal(domain.PaymentStatusRefunded, refunded.Slip.PaymentStatus)
	suite.True(refunded.Slip.Verified)

	suite.Equal(int32(3), suite.stockOf(product.ID))
}

func (suite *serviceSuite) TestUpdateStatuses_FailedPaymentRelinksSlip() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 4)
	order := suite.mustCreateOrder(line(product, 1))

	failed, err := suite.orders.UpdateStatuses(ctx, order.ID, domain.StatusChange{Payment: lo.ToPtr(domain.PaymentStatusFailed)})
	suite.Require().NoError(err)
	suite.Equal(domain.PaymentStatusFailed, failed.PaymentStatus)
	suite.Equal(domain.OrderStatusPending, failed.Status)
	suite.Require().NotNil(failed.Slip)
	suite.Equal(domain.PaymentStatusFailed, failed.Slip.PaymentStatus)
	suite.False(failed.Slip.Verified)
}

func (suite *serviceSuite) TestUpdateStatuses_InvalidChange() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 4)
	order := suite.mustCreateOrder(line(product, 1))

	tests := []struct {
		name    string
		change  domain.StatusChange
		wantErr error
	}{
		{
			name:    "nothing to update",
			change:  domain.StatusChange{},
			wantErr: domain.ErrNothingToUpdate,
		},
		{
			name:    "unknown order status",
			change:  domain.StatusChange{Order: lo.ToPtr(domain.OrderStatus("lost"))},
			wantErr: domain.ErrUnknownStatus,
		},
		{
			name:    "unknown payment status",
			change:  domain.StatusChange{Payment: lo.ToPtr(domain.PaymentStatus("partial"))},
			wantErr: domain.ErrUnknownStatus,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.orders.UpdateStatuses(ctx, order.ID, tt.change)
			suite.Require().ErrorIs(err, tt.wantErr)
			suite.Equal(domain.KindInvalidRequest, domain.KindOf(err))
		})
	}

	fetched, err := suite.orders.GetOrder(ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.OrderStatusPending, fetched.Status)
	suite.Equal(domain.PaymentStatusPending, fetched.PaymentStatus)
}

func (suite *serviceSuite) TestUpdateStatuses_LogsAndCountsTransitions() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 4)
	order := suite.mustCreateOrder(line(product, 1))

	_, err := suite.orders.UpdateStatuses(ctx, order.ID, domain.StatusChange{Order: lo.ToPtr(domain.OrderStatusShipped)})
	suite.Require().NoError(err)

	entries := suite.logs.FilterMessage("order status changed").All()
	suite.Require().Len(entries, 1)
	fields := entries[0].ContextMap()
	suite.Equal(string(domain.OrderStatusPending), fields["previous_status"])
	suite.Equal(string(domain.OrderStatusShipped), fields["status"])

	suite.InDelta(1, testutil.ToFloat64(suite.metrics.StatusTransitions.WithLabelValues("order", "shipped")), 0)
}

func (suite *serviceSuite) TestListOrders() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 10)

	pending := suite.mustCreateOrder(line(product, 1))
	shipped := suite.mustCreateOrder(line(product, 1))
	cancelled := suite.mustCreateOrder(line(product, 1))

	_, err := suite.orders.UpdateStatuses(ctx, shipped.ID, domain.StatusChange{Order: lo.ToPtr(domain.OrderStatusShipped)})
	suite.Require().NoError(err)
	_, err = suite.orders.CancelOrder(ctx, cancelled.ID)
	suite.Require().NoError(err)

	all, err := suite.orders.ListOrders(ctx, domain.OrderFilter{})
	suite.Require().NoError(err)
	suite.Len(all, 3)

	active, err := suite.orders.ListOrders(ctx, domain.OrderFilter{
		Statuses: []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusShipped},
	})
	suite.Require().NoError(err)
	suite.ElementsMatch(
		[]uuid.UUID{pending.ID, shipped.ID},
		lo.Map(active, func(o domain.Order, _ int) uuid.UUID { return o.ID }),
	)

	_, err = suite.orders.ListOrders(ctx, domain.OrderFilter{Statuses: []domain.OrderStatus{"lost"}})
	suite.Require().ErrorIs(err, domain.ErrUnknownStatus)
}

func (suite *serviceSuite) TestStockIsConserved() {
	ctx := suite.T().Context()

	product := suite.createProduct("10.00", "0", 10)

	a := suite.mustCreateOrder(line(product, 3))
	b := suite.mustCreateOrder(line(product, 4))
	suite.mustCreateOrder(line(product, 2))

	_, err := suite.orders.CancelOrder(ctx, a.ID)
	suite.Require().NoError(err)
	_, err = suite.orders.UpdateStatuses(ctx, b.ID, domain.StatusChange{Order: lo.ToPtr(domain.OrderStatusDelivered)})
	suite.Require().NoError(err)

	var reserved int32
	err = suite.pool.QueryRow(ctx, `SELECT COALESCE(SUM(oi.quantity), 0)::int
		FROM order_items oi
		JOIN orders o ON o.order_id = oi.order_id
		WHERE oi.product_id = $1 AND NOT o.stock_released`, product.ID).Scan(&reserved)
	suite.Require().NoError(err)

	suite.Equal(int32(10), suite.stockOf(product.ID)+reserved)
}
