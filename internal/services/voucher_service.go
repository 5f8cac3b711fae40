package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"HBMartAPI/internal/model"
	"HBMartAPI/internal/repository"

	"github.com/shopspring/decimal"
)

type VoucherService struct {
	Repo *repository.VoucherRepository
}

func NewVoucherService(repo *repository.VoucherRepository) *VoucherService {
	return &VoucherService{Repo: repo}
}

func (s *VoucherService) ListForUser(ctx context.Context, userID int64) ([]model.Voucher, error) {
	return s.Repo.ListByUser(ctx, userID)
}

// Validate checks a voucher code against a user and an order subtotal and
// returns the voucher with its discount. Every rejection is a ValidationError
// in API terms, carried as a plain error here.
func (s *VoucherService) Validate(ctx context.Context, code string, userID int64, subtotal decimal.Decimal) (*model.Voucher, decimal.Decimal, error) {
	v, err := s.Repo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, decimal.Zero, err
	}
	if v == nil {
		return nil, decimal.Zero, fmt.Errorf("voucher %q not found", code)
	}
	if v.UserID != nil && *v.UserID != userID {
		return nil, decimal.Zero, fmt.Errorf("voucher %s belongs to another user", v.Code)
	}
	if v.IsUsed {
		return nil, decimal.Zero, fmt.Errorf("voucher %s already used", v.Code)
	}
	if v.ExpiresAt != nil && v.ExpiresAt.Before(time.Now()) {
		return nil, decimal.Zero, fmt.Errorf("voucher %s expired", v.Code)
	}
	if subtotal.LessThan(decimal.NewFromFloat(v.MinOrder)) {
		return nil, decimal.Zero, fmt.Errorf("voucher %s requires a minimum order of %s", v.Code, decimal.NewFromFloat(v.MinOrder).StringFixed(2))
	}
	return v, ComputeDiscount(v, subtotal), nil
}

// ComputeDiscount returns the discount a voucher yields on a subtotal,
// rounded to cents. Percentage vouchers respect max_discount; no voucher
// ever discounts more than the subtotal itself.
func ComputeDiscount(v *model.Voucher, subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch v.Type {
	case model.VoucherPercentage:
		d = subtotal.Mul(decimal.NewFromFloat(v.Value)).Div(decimal.NewFromInt(100))
		if v.MaxDiscount != nil {
			if cap := decimal.NewFromFloat(*v.MaxDiscount); d.GreaterThan(cap) {
				d = cap
			}
		}
	case model.VoucherFixed:
		d = decimal.NewFromFloat(v.Value)
	default:
		return decimal.Zero
	}
	if d.GreaterThan(subtotal) {
		d = subtotal
	}
	return d.Round(2)
}
