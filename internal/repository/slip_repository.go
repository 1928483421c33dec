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

const slipSelect = `SELECT s.slip_id, s.order_id, ps.name, s.file_name, s.file_path, s.content_type, s.size_bytes,
	s.checksum, s.uploaded_at, s.verified, s.verified_at
	FROM slips s
	JOIN payment_status_types ps ON ps.id = s.payment_status_id`

type slipRepository struct {
	db    DBTX
	vocab *statusRepository
}

func NewSlip(pool *pgxpool.Pool) port.SlipRepository {
	return newSlipRepository(pool)
}

func NewSlipWithTx(tx pgx.Tx) port.SlipRepository {
	return newSlipRepository(tx)
}

func newSlipRepository(db DBTX) *slipRepository {
	return &slipRepository{
		db:    db,
		vocab: &statusRepository{db: db},
	}
}

func (r *slipRepository) GetSlip(ctx context.Context, orderID uuid.UUID) (domain.Slip, error) {
	slip, err := scanSlip(r.db.QueryRow(ctx, slipSelect+" WHERE s.order_id = $1", orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Slip{}, fmt.Errorf("q.GetSlip[%s]: %w", orderID, domain.ErrSlipNotFound)
		}
		return domain.Slip{}, fmt.Errorf("q.GetSlip: %w", err)
	}

	return slip, nil
}

// InsertSlip fails when the order already has a slip; callers delete the previous one first.
func (r *slipRepository) InsertSlip(ctx context.Context, slip domain.Slip) (domain.Slip, error) {
	if slip.OrderID == uuid.Nil {
		return domain.Slip{}, fmt.Errorf("%w: orderID is empty", domain.ErrInvalidRequest)
	}

	paymentStatusID, err := r.vocab.PaymentStatusID(ctx, slip.PaymentStatus)
	if err != nil {
		return domain.Slip{}, fmt.Errorf("vocab.PaymentStatusID: %w", err)
	}

	slipID := slip.ID
	if slipID == uuid.Nil {
		slipID = uuid.New()
	}

	const sql = `INSERT INTO slips (slip_id, order_id, payment_status_id, file_name, file_path, content_type,
		size_bytes, checksum, verified, verified_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.Exec(ctx, sql,
		slipID,
		slip.OrderID,
		paymentStatusID,
		slip.FileName,
		slip.FilePath,
		slip.ContentType,
		slip.Size,
		slip.Checksum,
		slip.Verified,
		slip.VerifiedAt,
	)
	if err != nil {
		return domain.Slip{}, fmt.Errorf("q.InsertSlip: %w", err)
	}

	return r.GetSlip(ctx, slip.OrderID)
}

func (r *slipRepository) UpdateSlip(ctx context.Context, slip domain.Slip) error {
	paymentStatusID, err := r.vocab.PaymentStatusID(ctx, slip.PaymentStatus)
	if err != nil {
		return fmt.Errorf("vocab.PaymentStatusID: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx,
		"UPDATE slips SET payment_status_id = $2, verified = $3, verified_at = $4 WHERE slip_id = $1",
		slip.ID, paymentStatusID, slip.Verified, slip.VerifiedAt)
	if err != nil {
		return fmt.Errorf("q.UpdateSlip: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("q.UpdateSlip[%s]: %w", slip.ID, domain.ErrSlipNotFound)
	}

	return nil
}

func (r *slipRepository) DeleteSlip(ctx context.Context, orderID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, "DELETE FROM slips WHERE order_id = $1", orderID)
	if err != nil {
		return fmt.Errorf("q.DeleteSlip: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("q.DeleteSlip[%s]: %w", orderID, domain.ErrSlipNotFound)
	}

	return nil
}

func getSlips(ctx context.Context, db DBTX, orderIDs []uuid.UUID) (map[uuid.UUID]*domain.Slip, error) {
	rows, err := db.Query(ctx, slipSelect+" WHERE s.order_id = ANY($1)", orderIDs)
	if err != nil {
		return nil, fmt.Errorf("q.GetSlips: %w", err)
	}

	slips, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Slip, error) {
		return scanSlip(row)
	})
	if err != nil {
		return nil, fmt.Errorf("pgx.CollectRows: %w", err)
	}

	result := make(map[uuid.UUID]*domain.Slip, len(slips))
	for i := range slips {
		result[slips[i].OrderID] = &slips[i]
	}

	return result, nil
}

func scanSlip(row pgx.Row) (domain.Slip, error) {
	var (
		s             domain.Slip
		paymentStatus string
	)

	err := row.Scan(
		&s.ID,
		&s.OrderID,
		&paymentStatus,
		&s.FileName,
		&s.FilePath,
		&s.ContentType,
		&s.Size,
		&s.Checksum,
		&s.UploadedAt,
		&s.Verified,
		&s.VerifiedAt,
	)
	if err != nil {
		return s, err
	}

	if s.PaymentStatus, err = domain.ToPaymentStatus(paymentStatus); err != nil {
		return s, fmt.Errorf("domain.ToPaymentStatus[%s]: %w", paymentStatus, err)
	}

	return s, nil
}
