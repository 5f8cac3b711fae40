package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"HBMartAPI/internal/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeDiscountPercentage(t *testing.T) {
	v := &model.Voucher{Type: model.VoucherPercentage, Value: 10}
	assert.Equal(t, "4.50", ComputeDiscount(v, d("45.00")).StringFixed(2))
	assert.Equal(t, "10.00", ComputeDiscount(v, d("100.00")).StringFixed(2))
}

func TestComputeDiscountPercentageCapped(t *testing.T) {
	maxDiscount := 8.0
	v := &model.Voucher{Type: model.VoucherPercentage, Value: 10, MaxDiscount: &maxDiscount}
	// 10% of 200 is 20, capped at 8.
	assert.Equal(t, "8.00", ComputeDiscount(v, d("200.00")).StringFixed(2))
	// Under the cap the raw percentage applies.
	assert.Equal(t, "4.50", ComputeDiscount(v, d("45.00")).StringFixed(2))
}

func TestComputeDiscountFixed(t *testing.T) {
	v := &model.Voucher{Type: model.VoucherFixed, Value: 10}
	assert.Equal(t, "10.00", ComputeDiscount(v, d("45.00")).StringFixed(2))
}

func TestComputeDiscountNeverExceedsSubtotal(t *testing.T) {
	v := &model.Voucher{Type: model.VoucherFixed, Value: 10}
	assert.Equal(t, "7.50", ComputeDiscount(v, d("7.50")).StringFixed(2))
}

func TestComputeDiscountRoundsToCents(t *testing.T) {
	v := &model.Voucher{Type: model.VoucherPercentage, Value: 7.5}
	// 7.5% of 33.33 = 2.49975 -> 2.50
	assert.Equal(t, "2.50", ComputeDiscount(v, d("33.33")).StringFixed(2))
}

func TestComputeDiscountUnknownTypeIsZero(t *testing.T) {
	v := &model.Voucher{Type: "mystery", Value: 50}
	assert.True(t, ComputeDiscount(v, d("45.00")).IsZero())
}
