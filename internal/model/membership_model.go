package model

import "time"

// Membership status lifecycle: Pending -> Active, plus Cancelled / Expired.
const (
	MembershipPending   = "Pending"
	MembershipActive    = "Active"
	MembershipCancelled = "Cancelled"
	MembershipExpired   = "Expired"
)

// MembershipPlan represents a row in the membership_plans table. Each plan
// carries the voucher batch issued on activation.
type MembershipPlan struct {
	PlanID          int64   `json:"plan_id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Price           float64 `json:"price"`
	DurationDays    int     `json:"duration_days"`
	VoucherCount    int     `json:"voucher_count"`
	VoucherType     string  `json:"voucher_type"`
	VoucherValue    float64 `json:"voucher_value"`
	VoucherMinOrder float64 `json:"voucher_min_order"`
	IsActive        bool    `json:"is_active"`
}

// Membership represents a row in the user_memberships table, joined with its
// plan for payment and activation.
type Membership struct {
	MembershipID  int64      `json:"membership_id"`
	UserID        int64      `json:"user_id"`
	PlanID        int64      `json:"plan_id"`
	Status        string     `json:"status"`
	PaymentMethod *string    `json:"payment_method,omitempty"`
	OutTradeNo    *string    `json:"payment_out_trade_no,omitempty"`
	ProviderRef   *string    `json:"payment_provider_ref,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`

	Plan MembershipPlan `json:"plan"`
}
