package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/goldorder/internal/domain"
	"github.com/nikolayk812/goldorder/internal/port"
)

const defaultRatesLimit = 30

type rateRepository struct {
	db DBTX
}

func NewCommodityRate(pool *pgxpool.Pool) port.CommodityRateStore {
	return &rateRepository{db: pool}
}

func NewCommodityRateWithTx(tx pgx.Tx) port.CommodityRateStore {
	return &rateRepository{db: tx}
}

// LatestRate orders by effective date, then by insertion for rates sharing a date.
func (r *rateRepository) LatestRate(ctx context.Context) (*domain.CommodityRate, error) {
	row := r.db.QueryRow(ctx,
		"SELECT id, rate, effective_date, created_at FROM commodity_rates ORDER BY effective_date DESC, id DESC LIMIT 1")

	var rate domain.CommodityRate

	if err := row.Scan(&rate.ID, &rate.Rate, &rate.EffectiveDate, &rate.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("q.LatestRate: %w", err)
	}

	return &rate, nil
}

func (r *rateRepository) SaveRate(ctx context.Context, rate domain.CommodityRate) (domain.CommodityRate, error) {
	if rate.Rate.IsNegative() {
		return domain.CommodityRate{}, fmt.Errorf("%w: negative commodity rate", domain.ErrInvalidRequest)
	}
	if rate.EffectiveDate.IsZero() {
		return domain.CommodityRate{}, fmt.Errorf("%w: effective date is required", domain.ErrInvalidRequest)
	}

	const sql = `INSERT INTO commodity_rates (rate, effective_date) VALUES ($1, $2)
	RETURNING id, rate, effective_date, created_at`

	var saved domain.CommodityRate

	err := r.db.QueryRow(ctx, sql, rate.Rate, rate.EffectiveDate).
		Scan(&saved.ID, &saved.Rate, &saved.EffectiveDate, &saved.CreatedAt)
	if err != nil {
		return domain.CommodityRate{}, fmt.Errorf("q.SaveRate: %w", err)
	}

	return saved, nil
}

func (r *rateRepository) ListRates(ctx context.Context, limit int32) ([]domain.CommodityRate, error) {
	if limit <= 0 {
		limit = defaultRatesLimit
	}

	rows, err := r.db.Query(ctx,
		"SELECT id, rate, effective_date, created_at FROM commodity_rates ORDER BY effective_date DESC, id DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("q.ListRates: %w", err)
	}

	rates, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CommodityRate, error) {
		var rate domain.CommodityRate
		err := row.Scan(&rate.ID, &rate.Rate, &rate.EffectiveDate, &rate.CreatedAt)
		return rate, err
	})
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}

	return rates, nil
}
