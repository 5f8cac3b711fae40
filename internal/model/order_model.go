package model

import "time"

// Order status lifecycle: Pending -> Unpaid -> Paid, with Cancelled and
// Refunded reachable from Paid through admin/refund operations only.
const (
	OrderPending   = "Pending"
	OrderUnpaid    = "Unpaid"
	OrderPaid      = "Paid"
	OrderCancelled = "Cancelled"
	OrderRefunded  = "Refunded"
)

// Order represents a row in the orders table.
type Order struct {
	OrderID        int64      `json:"order_id"`
	UserID         int64      `json:"user_id"`
	Status         string     `json:"status"`
	Subtotal       float64    `json:"subtotal"`
	DiscountAmount float64    `json:"discount_amount"`
	DeliveryFee    float64    `json:"delivery_fee"`
	Total          float64    `json:"total"`
	VoucherCode    *string    `json:"voucher_code,omitempty"`
	PaymentMethod  *string    `json:"payment_method,omitempty"`
	OutTradeNo     *string    `json:"payment_out_trade_no,omitempty"`
	ProviderRef    *string    `json:"payment_provider_ref,omitempty"`
	RefundStatus   *string    `json:"refund_status,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`

	Items []OrderItem `json:"items,omitempty"`
}

// OrderItem is a price/quantity snapshot taken at checkout time.
type OrderItem struct {
	OrderItemID int64   `json:"order_item_id"`
	OrderID     int64   `json:"order_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// CheckoutResult is returned by POST /api/orders/checkout.
type CheckoutResult struct {
	OrderID  int64   `json:"order_id"`
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Fee      float64 `json:"delivery_fee"`
	Total    float64 `json:"total"`
}
