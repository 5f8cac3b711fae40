package repository

import (
	"context"
	"errors"

	"HBMartAPI/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductRepository struct {
	DB *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{DB: db}
}

// List returns all non-deleted products.
func (r *ProductRepository) List(ctx context.Context) ([]model.Product, error) {
	query := `
		SELECT product_id, name, price, quantity, image, created_at
		FROM products
		WHERE deleted_at IS NULL
		ORDER BY name ASC
	`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Price, &p.Quantity, &p.Image, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProductRepository) GetByID(ctx context.Context, productID int64) (*model.Product, error) {
	query := `
		SELECT product_id, name, price, quantity, image, created_at
		FROM products
		WHERE product_id=$1 AND deleted_at IS NULL
	`
	var p model.Product
	err := r.DB.QueryRow(ctx, query, productID).Scan(
		&p.ProductID, &p.Name, &p.Price, &p.Quantity, &p.Image, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// DecrementStockTx takes qty units off a product's stock. The quantity guard
// keeps stock from going negative; false means not enough stock.
func (r *ProductRepository) DecrementStockTx(ctx context.Context, tx pgx.Tx, productID int64, qty int) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE products
		SET quantity = quantity - $1
		WHERE product_id=$2 AND quantity >= $1
	`, qty, productID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RestoreStockForOrder puts an order's item quantities back (refund approval).
func (r *ProductRepository) RestoreStockForOrder(ctx context.Context, orderID int64) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE products p
		SET quantity = p.quantity + oi.quantity
		FROM order_items oi
		WHERE oi.order_id=$1 AND oi.product_id = p.product_id
	`, orderID)
	return err
}
