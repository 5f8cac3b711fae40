package repository

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"HBMartAPI/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VoucherRepository struct {
	DB *pgxpool.Pool
}

func NewVoucherRepository(db *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{DB: db}
}

const voucherColumns = `
	voucher_id, code, user_id, type, value, min_order, max_discount,
	source, membership_id, is_used, used_at, used_order_id, expires_at, created_at
`

func scanVoucher(row pgx.Row) (*model.Voucher, error) {
	var v model.Voucher
	err := row.Scan(
		&v.VoucherID, &v.Code, &v.UserID, &v.Type, &v.Value, &v.MinOrder,
		&v.MaxDiscount, &v.Source, &v.MembershipID, &v.IsUsed, &v.UsedAt,
		&v.UsedOrderID, &v.ExpiresAt, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *VoucherRepository) GetByCode(ctx context.Context, code string) (*model.Voucher, error) {
	return scanVoucher(r.DB.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE code=$1`, code))
}

func (r *VoucherRepository) GetByID(ctx context.Context, voucherID int64) (*model.Voucher, error) {
	return scanVoucher(r.DB.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE voucher_id=$1`, voucherID))
}

// ListByUser returns all of a user's vouchers, newest first.
func (r *VoucherRepository) ListByUser(ctx context.Context, userID int64) ([]model.Voucher, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+voucherColumns+` FROM vouchers WHERE user_id=$1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// MarkUsedTx binds an unused voucher to an order inside the checkout
// transaction. false means it was already used (lost the race).
func (r *VoucherRepository) MarkUsedTx(ctx context.Context, tx pgx.Tx, voucherID, orderID int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE vouchers
		SET is_used=TRUE, used_at=NOW(), used_order_id=$1
		WHERE voucher_id=$2 AND is_used=FALSE
	`, orderID, voucherID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkUnused reverses voucher consumption when a refund is approved.
func (r *VoucherRepository) MarkUnused(ctx context.Context, voucherID int64) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE vouchers
		SET is_used=FALSE, used_at=NULL, used_order_id=NULL
		WHERE voucher_id=$1
	`, voucherID)
	return err
}

// Voucher codes avoid 0/O, 1/I lookalikes.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateCode(prefix string) (string, error) {
	code := []byte(prefix)
	for i := 0; i < 8; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code = append(code, codeAlphabet[n.Int64()])
	}
	return string(code), nil
}

// CreateMembershipVouchers issues the plan's voucher batch after activation.
// Duplicate codes retry with a fresh one; validity matches the membership
// duration.
func (r *VoucherRepository) CreateMembershipVouchers(ctx context.Context, userID, membershipID int64, plan model.MembershipPlan) ([]model.Voucher, error) {
	expiresAt := time.Now().AddDate(0, 0, plan.DurationDays)

	var out []model.Voucher
	for i := 0; i < plan.VoucherCount; i++ {
		for {
			code, err := generateCode("MEM")
			if err != nil {
				return out, err
			}

			var id int64
			err = r.DB.QueryRow(ctx, `
				INSERT INTO vouchers (code, user_id, type, value, min_order, source, membership_id, expires_at, created_at)
				VALUES ($1, $2, $3, $4, $5, 'membership', $6, $7, NOW())
				RETURNING voucher_id
			`, code, userID, plan.VoucherType, plan.VoucherValue, plan.VoucherMinOrder, membershipID, expiresAt).Scan(&id)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					continue // code collision, roll a new one
				}
				return out, err
			}

			out = append(out, model.Voucher{
				VoucherID: id,
				Code:      code,
				UserID:    &userID,
				Type:      plan.VoucherType,
				Value:     plan.VoucherValue,
				MinOrder:  plan.VoucherMinOrder,
				Source:    "membership",
			})
			break
		}
	}
	return out, nil
}
