package repository

import (
	"context"
	"errors"

	"HBMartAPI/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RefundRepository struct {
	DB *pgxpool.Pool
}

func NewRefundRepository(db *pgxpool.Pool) *RefundRepository {
	return &RefundRepository{DB: db}
}

const refundColumns = `
	refund_id, order_id, user_id, amount, reason, description, status,
	admin_note, refund_method, refund_ref, processed_by,
	requested_at, processed_at, completed_at
`

func scanRefund(row pgx.Row) (*model.Refund, error) {
	var f model.Refund
	err := row.Scan(
		&f.RefundID, &f.OrderID, &f.UserID, &f.Amount, &f.Reason, &f.Description,
		&f.Status, &f.AdminNote, &f.RefundMethod, &f.RefundRef, &f.ProcessedBy,
		&f.RequestedAt, &f.ProcessedAt, &f.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (r *RefundRepository) Create(ctx context.Context, orderID, userID int64, amount float64, reason string, description *string) (int64, error) {
	var id int64
	err := r.DB.QueryRow(ctx, `
		INSERT INTO refunds (order_id, user_id, amount, reason, description, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING refund_id
	`, orderID, userID, amount, reason, description, model.RefundPending).Scan(&id)
	return id, err
}

func (r *RefundRepository) GetByID(ctx context.Context, refundID int64) (*model.Refund, error) {
	return scanRefund(r.DB.QueryRow(ctx, `SELECT `+refundColumns+` FROM refunds WHERE refund_id=$1`, refundID))
}

// HasOpenRefund reports whether the order already has a Pending or Approved
// refund outstanding.
func (r *RefundRepository) HasOpenRefund(ctx context.Context, orderID int64) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM refunds WHERE order_id=$1 AND status IN ($2, $3)
		)
	`, orderID, model.RefundPending, model.RefundApproved).Scan(&exists)
	return exists, err
}

func (r *RefundRepository) ListByUser(ctx context.Context, userID int64) ([]model.Refund, error) {
	return r.list(ctx, `SELECT `+refundColumns+` FROM refunds WHERE user_id=$1 ORDER BY requested_at DESC`, userID)
}

func (r *RefundRepository) ListAll(ctx context.Context) ([]model.Refund, error) {
	return r.list(ctx, `SELECT `+refundColumns+` FROM refunds ORDER BY requested_at DESC`)
}

func (r *RefundRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Refund, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Refund
	for rows.Next() {
		f, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// UpdateStatus processes a refund decision. The Pending guard makes approve
// and reject single-shot; Completed transitions from Approved.
func (r *RefundRepository) UpdateStatus(ctx context.Context, refundID int64, status, fromStatus string, adminID int64, adminNote *string) (bool, error) {
	q := `
		UPDATE refunds
		SET status=$1, admin_note=$2, processed_by=$3, processed_at=NOW()
	`
	if status == model.RefundCompleted {
		q += `, completed_at=NOW()`
	}
	q += ` WHERE refund_id=$4 AND status=$5`

	tag, err := r.DB.Exec(ctx, q, status, adminNote, adminID, refundID, fromStatus)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *RefundRepository) SetMethod(ctx context.Context, refundID int64, method string, ref *string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE refunds SET refund_method=$1, refund_ref=$2 WHERE refund_id=$3
	`, method, ref, refundID)
	return err
}

// Cancel lets the requesting user withdraw a still-Pending refund.
func (r *RefundRepository) Cancel(ctx context.Context, refundID, userID int64) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE refunds SET status=$1
		WHERE refund_id=$2 AND user_id=$3 AND status=$4
	`, model.RefundCancelled, refundID, userID, model.RefundPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
