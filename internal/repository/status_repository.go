package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/goldorder/internal/domain"
	"github.com/nikolayk812/goldorder/internal/port"
	"github.com/samber/lo"
)

const (
	orderStatusTable   = "order_status_types"
	paymentStatusTable = "payment_status_types"
)

type statusRepository struct {
	db DBTX
}

func NewStatusVocabulary(pool *pgxpool.Pool) port.StatusVocabulary {
	return &statusRepository{db: pool}
}

func NewStatusVocabularyWithTx(tx pgx.Tx) port.StatusVocabulary {
	return &statusRepository{db: tx}
}

// Seed inserts every known status name. Existing rows are kept.
func (r *statusRepository) Seed(ctx context.Context) error {
	orderNames := lo.Map(domain.OrderStatuses(), func(s domain.OrderStatus, _ int) string { return string(s) })
	paymentNames := lo.Map(domain.PaymentStatuses(), func(s domain.PaymentStatus, _ int) string { return string(s) })

	return withTxNoResult(ctx, r.db, func(tx DBTX) error {
		if err := seedNames(ctx, tx, orderStatusTable, orderNames); err != nil {
			return fmt.Errorf("seedNames[%s]: %w", orderStatusTable, err)
		}
		if err := seedNames(ctx, tx, paymentStatusTable, paymentNames); err != nil {
			return fmt.Errorf("seedNames[%s]: %w", paymentStatusTable, err)
		}
		return nil
	})
}

// Verify fails with domain.ErrConfigurationFault naming every missing status row.
func (r *statusRepository) Verify(ctx context.Context) error {
	orderNames := lo.Map(domain.OrderStatuses(), func(s domain.OrderStatus, _ int) string { return string(s) })
	paymentNames := lo.Map(domain.PaymentStatuses(), func(s domain.PaymentStatus, _ int) string { return string(s) })

	var errs []error

	for table, want := range map[string][]string{
		orderStatusTable:   orderNames,
		paymentStatusTable: paymentNames,
	} {
		have, err := listNames(ctx, r.db, table)
		if err != nil {
			return fmt.Errorf("listNames[%s]: %w", table, err)
		}

		missing := lo.Without(want, have...)
		if len(missing) > 0 {
			errs = append(errs, fmt.Errorf("%w: %s is missing %v", domain.ErrConfigurationFault, table, missing))
		}
	}

	return errors.Join(errs...)
}

func (r *statusRepository) OrderStatusID(ctx context.Context, status domain.OrderStatus) (int16, error) {
	return lookupID(ctx, r.db, orderStatusTable, string(status))
}

func (r *statusRepository) PaymentStatusID(ctx context.Context, status domain.PaymentStatus) (int16, error) {
	return lookupID(ctx, r.db, paymentStatusTable, string(status))
}

func seedNames(ctx context.Context, db DBTX, table string, names []string) error {
	sql := fmt.Sprintf("INSERT INTO %s (name) SELECT unnest($1::text[]) ON CONFLICT (name) DO NOTHING", table)
	if _, err := db.Exec(ctx, sql, names); err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}
	return nil
}

func listNames(ctx context.Context, db DBTX, table string) ([]string, error) {
	rows, err := db.Query(ctx, fmt.Sprintf("SELECT name FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}

	return names, nil
}

func lookupID(ctx context.Context, db DBTX, table, name string) (int16, error) {
	var id int16

	err := db.QueryRow(ctx, fmt.Sprintf("SELECT id FROM %s WHERE name = $1", table), name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s has no row %q", domain.ErrConfigurationFault, table, name)
		}
		return 0, fmt.Errorf("db.QueryRow[%s]: %w", table, err)
	}

	return id, nil
}
