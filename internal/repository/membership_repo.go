package repository

import (
	"context"
	"errors"

	"HBMartAPI/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MembershipRepository struct {
	DB *pgxpool.Pool
}

func NewMembershipRepository(db *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{DB: db}
}

const planColumns = `
	plan_id, name, description, price, duration_days,
	voucher_count, voucher_type, voucher_value, voucher_min_order, is_active
`

func scanPlan(row pgx.Row) (*model.MembershipPlan, error) {
	var p model.MembershipPlan
	err := row.Scan(
		&p.PlanID, &p.Name, &p.Description, &p.Price, &p.DurationDays,
		&p.VoucherCount, &p.VoucherType, &p.VoucherValue, &p.VoucherMinOrder, &p.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *MembershipRepository) ListActivePlans(ctx context.Context) ([]model.MembershipPlan, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+planColumns+` FROM membership_plans WHERE is_active ORDER BY price ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MembershipPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *MembershipRepository) GetPlanByID(ctx context.Context, planID int64) (*model.MembershipPlan, error) {
	return scanPlan(r.DB.QueryRow(ctx, `SELECT `+planColumns+` FROM membership_plans WHERE plan_id=$1`, planID))
}

// Create inserts a Pending membership awaiting payment.
func (r *MembershipRepository) Create(ctx context.Context, userID, planID int64) (int64, error) {
	var id int64
	err := r.DB.QueryRow(ctx, `
		INSERT INTO user_memberships (user_id, plan_id, status, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING membership_id
	`, userID, planID, model.MembershipPending).Scan(&id)
	return id, err
}

const membershipQuery = `
	SELECT um.membership_id, um.user_id, um.plan_id, um.status,
	       um.payment_method, um.payment_out_trade_no, um.payment_provider_ref,
	       um.started_at, um.expires_at, um.created_at,
	       mp.plan_id, mp.name, mp.description, mp.price, mp.duration_days,
	       mp.voucher_count, mp.voucher_type, mp.voucher_value, mp.voucher_min_order, mp.is_active
	FROM user_memberships um
	JOIN membership_plans mp ON mp.plan_id = um.plan_id
`

func scanMembership(row pgx.Row) (*model.Membership, error) {
	var m model.Membership
	err := row.Scan(
		&m.MembershipID, &m.UserID, &m.PlanID, &m.Status,
		&m.PaymentMethod, &m.OutTradeNo, &m.ProviderRef,
		&m.StartedAt, &m.ExpiresAt, &m.CreatedAt,
		&m.Plan.PlanID, &m.Plan.Name, &m.Plan.Description, &m.Plan.Price, &m.Plan.DurationDays,
		&m.Plan.VoucherCount, &m.Plan.VoucherType, &m.Plan.VoucherValue, &m.Plan.VoucherMinOrder, &m.Plan.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *MembershipRepository) GetByID(ctx context.Context, membershipID int64) (*model.Membership, error) {
	return scanMembership(r.DB.QueryRow(ctx, membershipQuery+` WHERE um.membership_id=$1`, membershipID))
}

func (r *MembershipRepository) GetByOutTradeNo(ctx context.Context, outTradeNo string) (*model.Membership, error) {
	return scanMembership(r.DB.QueryRow(ctx, membershipQuery+` WHERE um.payment_out_trade_no=$1 LIMIT 1`, outTradeNo))
}

func (r *MembershipRepository) GetByUserID(ctx context.Context, userID int64) ([]model.Membership, error) {
	rows, err := r.DB.Query(ctx, membershipQuery+` WHERE um.user_id=$1 ORDER BY um.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// GetActiveByUserID returns the user's current unexpired membership, if any.
func (r *MembershipRepository) GetActiveByUserID(ctx context.Context, userID int64) (*model.Membership, error) {
	return scanMembership(r.DB.QueryRow(ctx, membershipQuery+`
		WHERE um.user_id=$1 AND um.status=$2 AND um.expires_at > NOW()
		ORDER BY um.expires_at DESC
		LIMIT 1
	`, userID, model.MembershipActive))
}

// StartPayment stores a payment attempt; an Active membership is left alone.
func (r *MembershipRepository) StartPayment(ctx context.Context, membershipID int64, method, outTradeNo string, providerRef *string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE user_memberships
		SET payment_method=$1,
		    payment_out_trade_no=$2,
		    payment_provider_ref=$3
		WHERE membership_id=$4 AND status <> $5
	`, method, outTradeNo, providerRef, membershipID, model.MembershipActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Activate is the membership's Paid transition: conditional, at most once.
// The expiry window comes from the plan's duration.
func (r *MembershipRepository) Activate(ctx context.Context, membershipID int64, providerTxnID *string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE user_memberships um
		SET status=$1,
		    started_at=NOW(),
		    expires_at=NOW() + make_interval(days => mp.duration_days),
		    payment_provider_ref=COALESCE($2, um.payment_provider_ref)
		FROM membership_plans mp
		WHERE mp.plan_id = um.plan_id AND um.membership_id=$3 AND um.status <> $1
	`, model.MembershipActive, providerTxnID, membershipID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ExpireOld flips Active memberships past their expiry to Expired.
func (r *MembershipRepository) ExpireOld(ctx context.Context) (int64, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE user_memberships SET status=$1
		WHERE status=$2 AND expires_at < NOW()
	`, model.MembershipExpired, model.MembershipActive)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
