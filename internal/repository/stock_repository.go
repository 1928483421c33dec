package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/goldorder/internal/domain"
	"github.com/nikolayk812/goldorder/internal/port"
)

type stockRepository struct {
	db DBTX
}

func NewStockLedger(pool *pgxpool.Pool) port.StockLedger {
	return &stockRepository{db: pool}
}

func NewStockLedgerWithTx(tx pgx.Tx) port.StockLedger {
	return &stockRepository{db: tx}
}

// Reserve is a single conditional decrement, so two callers can never both
// observe the same remaining quantity.
func (r *stockRepository) Reserve(ctx context.Context, productID uuid.UUID, quantity int32) (int32, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: %d", domain.ErrInvalidQuantity, quantity)
	}

	const sql = `UPDATE products
	SET stock_quantity = stock_quantity - $2, updated_at = now()
	WHERE product_id = $1 AND stock_quantity >= $2
	RETURNING stock_quantity`

	var remaining int32

	err := r.db.QueryRow(ctx, sql, productID, quantity).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("q.ReserveStock: %w", err)
	}

	exists, err := r.exists(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("r.exists: %w", err)
	}
	if !exists {
		return 0, fmt.Errorf("q.ReserveStock[%s]: %w", productID, domain.ErrProductNotFound)
	}

	return 0, &domain.StockError{ProductID: productID, Requested: quantity}
}

func (r *stockRepository) Release(ctx context.Context, productID uuid.UUID, quantity int32) (int32, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: %d", domain.ErrInvalidQuantity, quantity)
	}

	const sql = `UPDATE products
	SET stock_quantity = stock_quantity + $2, updated_at = now()
	WHERE product_id = $1
	RETURNING stock_quantity`

	var stock int32

	if err := r.db.QueryRow(ctx, sql, productID, quantity).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("q.ReleaseStock[%s]: %w", productID, domain.ErrProductNotFound)
		}
		return 0, fmt.Errorf("q.ReleaseStock: %w", err)
	}

	return stock, nil
}

func (r *stockRepository) exists(ctx context.Context, productID uuid.UUID) (bool, error) {
	var exists bool

	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM products WHERE product_id = $1)", productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("q.ProductExists: %w", err)
	}

	return exists, nil
}
