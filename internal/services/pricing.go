package services

import "github.com/shopspring/decimal"

var (
	freeDeliveryThreshold = decimal.NewFromInt(60)
	flatDeliveryFee       = decimal.NewFromInt(5)
)

// DeliveryFee is the flat surcharge below the free-delivery threshold.
// A subtotal of exactly 60.00 ships free.
func DeliveryFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(freeDeliveryThreshold) {
		return decimal.Zero
	}
	return flatDeliveryFee
}
