package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/goldorder/internal/domain"
	"github.com/nikolayk812/goldorder/internal/port"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const orderColumns = `o.order_id, o.customer_name, o.customer_email, o.customer_address, o.customer_telephone,
	os.name, ps.name, o.subtotal, o.tax, o.shipping, o.discount, o.total, o.currency, o.notes,
	o.stock_released, o.created_at, o.updated_at`

const orderFrom = ` FROM orders o
	JOIN order_status_types os ON os.id = o.order_status_id
	JOIN payment_status_types ps ON ps.id = o.payment_status_id`

const orderItemColumns = `id, order_id, product_id, quantity, unit_price, line_total, currency, commodity_rate, created_at`

type orderRepository struct {
	db    DBTX
	vocab *statusRepository
}

func NewOrder(pool *pgxpool.Pool) port.OrderRepository {
	return newOrderRepository(pool)
}

func NewOrderWithTx(tx pgx.Tx) port.OrderRepository {
	return newOrderRepository(tx)
}

func newOrderRepository(db DBTX) *orderRepository {
	return &orderRepository{
		db:    db,
		vocab: &statusRepository{db: db},
	}
}

func (r *orderRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return withTx(ctx, r.db, func(tx DBTX) (domain.Order, error) {
		return getOrder(ctx, tx, orderID, false)
	})
}

func (r *orderRepository) GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	if _, ok := r.db.(pgx.Tx); !ok {
		return domain.Order{}, errors.New("GetOrderForUpdate requires a transaction")
	}
	return getOrder(ctx, r.db, orderID, true)
}

func getOrder(ctx context.Context, db DBTX, orderID uuid.UUID, forUpdate bool) (domain.Order, error) {
	var o domain.Order

	sql := "SELECT " + orderColumns + orderFrom + " WHERE o.order_id = $1"
	if forUpdate {
		sql += " FOR UPDATE OF o"
	}

	order, err := scanOrder(db.QueryRow(ctx, sql, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return o, fmt.Errorf("q.GetOrder[%s]: %w", orderID, domain.ErrOrderNotFound)
		}
		return o, fmt.Errorf("q.GetOrder: %w", err)
	}

	items, err := getOrderItems(ctx, db, []uuid.UUID{orderID})
	if err != nil {
		return o, fmt.Errorf("getOrderItems: %w", err)
	}
	order.Items = items[orderID]

	slips, err := getSlips(ctx, db, []uuid.UUID{orderID})
	if err != nil {
		return o, fmt.Errorf("getSlips: %w", err)
	}
	order.Slip = slips[orderID]

	return order, nil
}

func (r *orderRepository) SearchOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter.Validate: %w", err)
	}

	statuses := lo.Map(filter.Statuses, func(s domain.OrderStatus, _ int) string { return string(s) })
	paymentStatuses := lo.Map(filter.PaymentStatuses, func(s domain.PaymentStatus, _ int) string { return string(s) })

	var createdAfter, createdBefore *time.Time
	if filter.CreatedAt != nil {
		createdAfter = filter.CreatedAt.After
		createdBefore = filter.CreatedAt.Before
	}

	const where = ` WHERE ($1::text[] IS NULL OR os.name = ANY($1))
	AND ($2::text[] IS NULL OR ps.name = ANY($2))
	AND ($3::timestamptz IS NULL OR o.created_at >= $3)
	AND ($4::timestamptz IS NULL OR o.created_at < $4)
	ORDER BY o.created_at DESC, o.order_id`

	return withTx(ctx, r.db, func(tx DBTX) ([]domain.Order, error) {
		rows, err := tx.Query(ctx, "SELECT "+orderColumns+orderFrom+where,
			nilSliceIfEmpty(statuses),
			nilSliceIfEmpty(paymentStatuses),
			createdAfter,
			createdBefore,
		)
		if err != nil {
			return nil, fmt.Errorf("q.SearchOrders: %w", err)
		}

		orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
			return scanOrder(row)
		})
		if err != nil {
			return nil, fmt.Errorf("pgx.CollectRows: %w", err)
		}

		if len(orders) == 0 {
			return nil, nil
		}

		orderIDs := lo.Map(orders, func(o domain.Order, _ int) uuid.UUID { return o.ID })

		items, err := getOrderItems(ctx, tx, orderIDs)
		if err != nil {
			return nil, fmt.Errorf("getOrderItems: %w", err)
		}

		slips, err := getSlips(ctx, tx, orderIDs)
		if err != nil {
			return nil, fmt.Errorf("getSlips: %w", err)
		}

		for i := range orders {
			orders[i].Items = items[orders[i].ID]
			orders[i].Slip = slips[orders[i].ID]
		}

		return orders, nil
	})
}

// InsertOrder persists the order header and its items. Totals are stored as given.
func (r *orderRepository) InsertOrder(ctx context.Context, order domain.Order) (uuid.UUID, error) {
	if len(order.Items) == 0 {
		return uuid.Nil, domain.ErrEmptyOrder
	}

	return withTx(ctx, r.db, func(tx DBTX) (uuid.UUID, error) {
		vocab := &statusRepository{db: tx}

		statusID, err := vocab.OrderStatusID(ctx, order.Status)
		if err != nil {
			return uuid.Nil, fmt.Errorf("vocab.OrderStatusID: %w", err)
		}

		paymentStatusID, err := vocab.PaymentStatusID(ctx, order.PaymentStatus)
		if err != nil {
			return uuid.Nil, fmt.Errorf("vocab.PaymentStatusID: %w", err)
		}

		orderID := order.ID
		if orderID == uuid.Nil {
			orderID = uuid.New()
		}

		const insertOrder = `INSERT INTO orders (order_id, customer_name, customer_email, customer_address,
			customer_telephone, order_status_id, payment_status_id, subtotal, tax, shipping, discount, total,
			currency, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

		_, err = tx.Exec(ctx, insertOrder,
			orderID,
			order.Customer.Name,
			order.Customer.Email,
			order.Customer.Address,
			order.Customer.Telephone,
			statusID,
			paymentStatusID,
			order.Totals.Subtotal.Amount,
			order.Totals.Tax.Amount,
			order.Totals.Shipping.Amount,
			order.Totals.Discount.Amount,
			order.Totals.Total.Amount,
			order.Currency.String(),
			order.Notes,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("q.InsertOrder: %w", err)
		}

		const insertItem = `INSERT INTO order_items (order_id, product_id, quantity, unit_price, line_total,
			currency, commodity_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

		// TODO: batch the item inserts once DBTX exposes SendBatch
		for _, item := range order.Items {
			_, err := tx.Exec(ctx, insertItem,
				orderID,
				item.ProductID,
				item.Quantity,
				item.UnitPrice.Amount,
				item.LineTotal.Amount,
				item.UnitPrice.Currency.String(),
				item.CommodityRate,
			)
			if err != nil {
				return uuid.Nil, fmt.Errorf("q.InsertOrderItem: %w", err)
			}
		}

		return orderID, nil
	})
}

func (r *orderRepository) UpdateOrderStatuses(ctx context.Context, orderID uuid.UUID, status domain.StatusPair) error {
	if orderID == uuid.Nil {
		return fmt.Errorf("%w: orderID is empty", domain.ErrInvalidRequest)
	}

	statusID, err := r.vocab.OrderStatusID(ctx, status.Order)
	if err != nil {
		return fmt.Errorf("vocab.OrderStatusID: %w", err)
	}

	paymentStatusID, err := r.vocab.PaymentStatusID(ctx, status.Payment)
	if err != nil {
		return fmt.Errorf("vocab.PaymentStatusID: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx,
		"UPDATE orders SET order_status_id = $2, payment_status_id = $3, updated_at = now() WHERE order_id = $1",
		orderID, statusID, paymentStatusID)
	if err != nil {
		return fmt.Errorf("q.UpdateOrderStatuses: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("q.UpdateOrderStatuses[%s]: %w", orderID, domain.ErrOrderNotFound)
	}

	return nil
}

func (r *orderRepository) SetStockReleased(ctx context.Context, orderID uuid.UUID, released bool) error {
	cmdTag, err := r.db.Exec(ctx,
		"UPDATE orders SET stock_released = $2, updated_at = now() WHERE order_id = $1",
		orderID, released)
	if err != nil {
		return fmt.Errorf("q.SetStockReleased: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("q.SetStockReleased[%s]: %w", orderID, domain.ErrOrderNotFound)
	}

	return nil
}

func getOrderItems(ctx context.Context, db DBTX, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.OrderItem, error) {
	rows, err := db.Query(ctx,
		"SELECT "+orderItemColumns+" FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id", orderIDs)
	if err != nil {
		return nil, fmt.Errorf("q.GetOrderItems: %w", err)
	}

	type orderItemRow struct {
		orderID uuid.UUID
		item    domain.OrderItem
	}

	itemRows, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (orderItemRow, error) {
		var (
			r            orderItemRow
			unitPrice    decimal.Decimal
			lineTotal    decimal.Decimal
			currencyCode string
		)

		err := row.Scan(
			&r.item.ID,
			&r.orderID,
			&r.item.ProductID,
			&r.item.Quantity,
			&unitPrice,
			&lineTotal,
			&currencyCode,
			&r.item.CommodityRate,
			&r.item.CreatedAt,
		)
		if err != nil {
			return r, err
		}

		unit, err := currency.ParseISO(currencyCode)
		if err != nil {
			return r, fmt.Errorf("currency[%s] is not valid: %w", currencyCode, err)
		}

		r.item.UnitPrice = domain.NewMoney(unitPrice, unit)
		r.item.LineTotal = domain.NewMoney(lineTotal, unit)

		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}

	result := make(map[uuid.UUID][]domain.OrderItem, len(orderIDs))
	for _, r := range itemRows {
		result[r.orderID] = append(result[r.orderID], r.item)
	}

	return result, nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o                                        domain.Order
		status, paymentStatus, currencyCode      string
		subtotal, tax, shipping, discount, total decimal.Decimal
	)

	err := row.Scan(
		&o.ID,
		&o.Customer.Name,
		&o.Customer.Email,
		&o.Customer.Address,
		&o.Customer.Telephone,
		&status,
		&paymentStatus,
		&subtotal,
		&tax,
		&shipping,
		&discount,
		&total,
		&currencyCode,
		&o.Notes,
		&o.StockReleased,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}

	if o.Status, err = domain.ToOrderStatus(status); err != nil {
		return o, fmt.Errorf("domain.ToOrderStatus[%s]: %w", status, err)
	}

	if o.PaymentStatus, err = domain.ToPaymentStatus(paymentStatus); err != nil {
		return o, fmt.Errorf("domain.ToPaymentStatus[%s]: %w", paymentStatus, err)
	}

	if o.Currency, err = currency.ParseISO(currencyCode); err != nil {
		return o, fmt.Errorf("currency[%s] is not valid: %w", currencyCode, err)
	}

	o.Totals = domain.Totals{
		Subtotal: domain.NewMoney(subtotal, o.Currency),
		Tax:      domain.NewMoney(tax, o.Currency),
		Shipping: domain.NewMoney(shipping, o.Currency),
		Discount: domain.NewMoney(discount, o.Currency),
		Total:    domain.NewMoney(total, o.Currency),
	}

	return o, nil
}

func nilSliceIfEmpty[T any](slice []T) []T {
	if len(slice) == 0 {
		return nil
	}
	return slice
}
