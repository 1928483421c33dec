package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/goldorder/internal/domain"
	"github.com/nikolayk812/goldorder/internal/port"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const productColumns = `product_id, sku, name, base_price, currency, markup_percentage, stock_quantity,
	is_commodity_priced, commodity_weight, commodity_purity, created_at, updated_at`

type productRepository struct {
	db DBTX
}

func NewProduct(pool *pgxpool.Pool) port.CatalogStore {
	return &productRepository{db: pool}
}

func NewProductWithTx(tx pgx.Tx) port.CatalogStore {
	return &productRepository{db: tx}
}

func (r *productRepository) GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error) {
	row := r.db.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE product_id = $1", productID)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, fmt.Errorf("q.GetProduct[%s]: %w", productID, domain.ErrProductNotFound)
		}
		return domain.Product{}, fmt.Errorf("q.GetProduct: %w", err)
	}

	return product, nil
}

// SaveProduct inserts a product or updates its catalog attributes.
// Stock of an existing product is left to the stock ledger.
func (r *productRepository) SaveProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if product.Name == "" || product.SKU == "" {
		return domain.Product{}, fmt.Errorf("%w: product name and sku are required", domain.ErrInvalidRequest)
	}
	if product.StockQuantity < 0 || product.BasePrice.IsNegative() {
		return domain.Product{}, fmt.Errorf("%w: negative stock or price", domain.ErrInvalidRequest)
	}

	productID := product.ID
	if productID == uuid.Nil {
		productID = uuid.New()
	}

	const sql = `INSERT INTO products (product_id, sku, name, base_price, currency, markup_percentage, stock_quantity,
		is_commodity_priced, commodity_weight, commodity_purity)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (product_id) DO UPDATE SET
		sku = EXCLUDED.sku,
		name = EXCLUDED.name,
		base_price = EXCLUDED.base_price,
		currency = EXCLUDED.currency,
		markup_percentage = EXCLUDED.markup_percentage,
		is_commodity_priced = EXCLUDED.is_commodity_priced,
		commodity_weight = EXCLUDED.commodity_weight,
		commodity_purity = EXCLUDED.commodity_purity,
		updated_at = now()
	RETURNING ` + productColumns

	row := r.db.QueryRow(ctx, sql,
		productID,
		product.SKU,
		product.Name,
		product.BasePrice.Amount,
		product.BasePrice.Currency.String(),
		product.MarkupPercentage,
		product.StockQuantity,
		product.IsCommodityPriced,
		product.CommodityWeight,
		product.CommodityPurity,
	)

	saved, err := scanProduct(row)
	if err != nil {
		return domain.Product{}, fmt.Errorf("q.SaveProduct: %w", err)
	}

	return saved, nil
}

// LockProducts takes row locks in ascending id order so that concurrent orders
// over overlapping products always lock in the same sequence.
func (r *productRepository) LockProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]domain.Product, error) {
	ids := slices.Clone(productIDs)
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})
	ids = slices.Compact(ids)

	rows, err := r.db.Query(ctx,
		"SELECT "+productColumns+" FROM products WHERE product_id = ANY($1) ORDER BY product_id FOR UPDATE", ids)
	if err != nil {
		return nil, fmt.Errorf("q.LockProducts: %w", err)
	}

	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Product, error) {
		return scanProduct(row)
	})
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}

	result := make(map[uuid.UUID]domain.Product, len(products))
	for _, p := range products {
		result[p.ID] = p
	}

	return result, nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p            domain.Product
		currencyCode string
		basePrice    decimal.Decimal
	)

	err := row.Scan(
		&p.ID,
		&p.SKU,
		&p.Name,
		&basePrice,
		&currencyCode,
		&p.MarkupPercentage,
		&p.StockQuantity,
		&p.IsCommodityPriced,
		&p.CommodityWeight,
		&p.CommodityPurity,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}

	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return p, fmt.Errorf("currency[%s] is not valid: %w", currencyCode, err)
	}
	p.BasePrice = domain.NewMoney(basePrice, unit)

	return p, nil
}
