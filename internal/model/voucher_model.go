package model

import "time"

// Voucher discount kinds.
const (
	VoucherPercentage = "percentage"
	VoucherFixed      = "fixed"
)

// Voucher represents a row in the vouchers table. A voucher is either unused,
// or used and bound to exactly one order via UsedOrderID.
type Voucher struct {
	VoucherID    int64      `json:"voucher_id"`
	Code         string     `json:"code"`
	UserID       *int64     `json:"user_id,omitempty"` // nil = unscoped promo voucher
	Type         string     `json:"type"`
	Value        float64    `json:"value"`
	MinOrder     float64    `json:"min_order"`
	MaxDiscount  *float64   `json:"max_discount,omitempty"`
	Source       string     `json:"source"`
	MembershipID *int64     `json:"membership_id,omitempty"`
	IsUsed       bool       `json:"is_used"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	UsedOrderID  *int64     `json:"used_order_id,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}
