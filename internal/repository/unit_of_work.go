package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/goldorder/internal/port"
)

type unitOfWork struct {
	pool *pgxpool.Pool
}

func NewUnitOfWork(pool *pgxpool.Pool) port.UnitOfWork {
	return &unitOfWork{pool: pool}
}

func (u *unitOfWork) RunInTx(ctx context.Context, fn func(repos port.Repositories) error) error {
	return withTxNoResult(ctx, u.pool, func(tx DBTX) error {
		return fn(repositoriesWithTx(tx.(pgx.Tx)))
	})
}

func (u *unitOfWork) Repositories() port.Repositories {
	return port.Repositories{
		Orders:     NewOrder(u.pool),
		Slips:      NewSlip(u.pool),
		Catalog:    NewProduct(u.pool),
		Stock:      NewStockLedger(u.pool),
		Rates:      NewCommodityRate(u.pool),
		Vocabulary: NewStatusVocabulary(u.pool),
	}
}

func repositoriesWithTx(tx pgx.Tx) port.Repositories {
	return port.Repositories{
		Orders:     NewOrderWithTx(tx),
		Slips:      NewSlipWithTx(tx),
		Catalog:    NewProductWithTx(tx),
		Stock:      NewStockLedgerWithTx(tx),
		Rates:      NewCommodityRateWithTx(tx),
		Vocabulary: NewStatusVocabularyWithTx(tx),
	}
}
