package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"HBMartAPI/internal/model"
)

func TestDeliveryFeeBoundary(t *testing.T) {
	cases := []struct {
		subtotal string
		fee      string
	}{
		{"0.01", "5"},
		{"45.00", "5"},
		{"59.99", "5"},
		{"60.00", "0"},
		{"60.01", "0"},
		{"150.00", "0"},
	}
	for _, tc := range cases {
		fee := DeliveryFee(decimal.RequireFromString(tc.subtotal))
		assert.True(t, fee.Equal(decimal.RequireFromString(tc.fee)),
			"subtotal %s: fee %s, want %s", tc.subtotal, fee, tc.fee)
	}
}

func TestOrderTotalWithPercentageVoucher(t *testing.T) {
	// 45.00 cart with a 10% voucher: 45.00 - 4.50 + 5.00 delivery = 45.50.
	subtotal := decimal.RequireFromString("45.00")
	v := &model.Voucher{Type: model.VoucherPercentage, Value: 10}

	discount := ComputeDiscount(v, subtotal)
	fee := DeliveryFee(subtotal)
	total := subtotal.Sub(discount).Add(fee)

	assert.Equal(t, "4.50", discount.StringFixed(2))
	assert.Equal(t, "5.00", fee.StringFixed(2))
	assert.Equal(t, "45.50", total.StringFixed(2))
}

func TestFreeDeliveryKeepsDiscountedTotalExact(t *testing.T) {
	// 80.00 cart with a fixed 15 voucher: no fee, total 65.00.
	subtotal := decimal.RequireFromString("80.00")
	v := &model.Voucher{Type: model.VoucherFixed, Value: 15}

	discount := ComputeDiscount(v, subtotal)
	total := subtotal.Sub(discount).Add(DeliveryFee(subtotal))

	assert.Equal(t, "65.00", total.StringFixed(2))
}
