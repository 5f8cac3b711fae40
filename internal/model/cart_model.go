package model

// CartItem is what the API exposes for one cart row (joined with products).
type CartItem struct {
	CartItemID int64   `json:"cart_item_id"`
	ProductID  int64   `json:"product_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Subtotal   float64 `json:"subtotal"`
}

// CartResponse is returned when calling GET /api/cart.
type CartResponse struct {
	Items []CartItem `json:"items"`
	Total float64    `json:"total"`
}
