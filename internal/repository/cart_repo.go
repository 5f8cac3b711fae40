package repository

import (
	"context"
	"errors"

	"HBMartAPI/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CartRepository struct {
	DB *pgxpool.Pool
}

func NewCartRepository(db *pgxpool.Pool) *CartRepository {
	return &CartRepository{DB: db}
}

// GetCart returns a user's cart items joined with current product data.
func (r *CartRepository) GetCart(ctx context.Context, userID int64) ([]model.CartItem, float64, error) {
	query := `
		SELECT ci.cart_item_id, ci.product_id, p.name, p.price, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.product_id = ci.product_id
		WHERE ci.user_id=$1 AND p.deleted_at IS NULL
		ORDER BY ci.cart_item_id ASC
	`
	rows, err := r.DB.Query(ctx, query, userID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []model.CartItem
	var total float64
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.CartItemID, &it.ProductID, &it.Name, &it.Price, &it.Quantity); err != nil {
			return nil, 0, err
		}
		it.Subtotal = it.Price * float64(it.Quantity)
		items = append(items, it)
		total += it.Subtotal
	}
	return items, total, rows.Err()
}

// AddOrIncrement inserts a cart row or bumps its quantity.
func (r *CartRepository) AddOrIncrement(ctx context.Context, userID, productID int64, qty int) error {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`
	_, err := r.DB.Exec(ctx, query, userID, productID, qty)
	return err
}

func (r *CartRepository) SetQuantity(ctx context.Context, userID, productID int64, qty int) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE cart_items SET quantity=$1 WHERE user_id=$2 AND product_id=$3
	`, qty, userID, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("cart item not found")
	}
	return nil
}

func (r *CartRepository) Remove(ctx context.Context, userID, productID int64) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1 AND product_id=$2`, userID, productID)
	return err
}

func (r *CartRepository) Clear(ctx context.Context, userID int64) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	return err
}

// ClearTx empties the cart inside the checkout transaction.
func (r *CartRepository) ClearTx(ctx context.Context, tx pgx.Tx, userID int64) error {
	_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	return err
}
