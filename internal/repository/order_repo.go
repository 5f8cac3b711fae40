package repository

import (
	"context"
	"errors"

	"HBMartAPI/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	DB *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{DB: db}
}

const orderColumns = `
	order_id, user_id, status, subtotal, discount_amount, delivery_fee, total,
	voucher_code, payment_method, payment_out_trade_no, payment_provider_ref,
	refund_status, paid_at, created_at
`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.OrderID, &o.UserID, &o.Status, &o.Subtotal, &o.DiscountAmount,
		&o.DeliveryFee, &o.Total, &o.VoucherCode, &o.PaymentMethod,
		&o.OutTradeNo, &o.ProviderRef, &o.RefundStatus, &o.PaidAt, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// CreateTx inserts the order head inside the checkout transaction.
func (r *OrderRepository) CreateTx(
	ctx context.Context,
	tx pgx.Tx,
	userID int64,
	subtotal, discount, fee, total float64,
	voucherCode *string,
) (int64, error) {
	var orderID int64
	q := `
		INSERT INTO orders
			(user_id, status, subtotal, discount_amount, delivery_fee, total, voucher_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING order_id
	`
	err := tx.QueryRow(ctx, q, userID, model.OrderPending, subtotal, discount, fee, total, voucherCode).Scan(&orderID)
	return orderID, err
}

// InsertItemsTx snapshots the cart lines into order_items.
func (r *OrderRepository) InsertItemsTx(ctx context.Context, tx pgx.Tx, orderID int64, items []model.CartItem) error {
	for _, it := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, price, quantity)
			VALUES ($1, $2, $3, $4, $5)
		`, orderID, it.ProductID, it.Name, it.Price, it.Quantity)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, orderID int64) (*model.Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id=$1`, orderID))
	if err != nil || o == nil {
		return o, err
	}
	items, err := r.getItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (r *OrderRepository) getItems(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_item_id, order_id, product_id, product_name, price, quantity
		FROM order_items WHERE order_id=$1 ORDER BY order_item_id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.OrderItemID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Price, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *OrderRepository) GetByUserID(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY order_id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// GetByOutTradeNo finds the order holding a payment correlation token.
func (r *OrderRepository) GetByOutTradeNo(ctx context.Context, outTradeNo string) (*model.Order, error) {
	return scanOrder(r.DB.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE payment_out_trade_no=$1 LIMIT 1
	`, outTradeNo))
}

// StartPayment stores the payment attempt and moves the order to Unpaid.
// A fresh attempt overwrites the previous one; a Paid order is left alone
// (zero rows, reported as false).
func (r *OrderRepository) StartPayment(ctx context.Context, orderID int64, method, outTradeNo string, providerRef *string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET status=$1,
		    payment_method=$2,
		    payment_out_trade_no=$3,
		    payment_provider_ref=$4
		WHERE order_id=$5 AND status <> $6
	`, model.OrderUnpaid, method, outTradeNo, providerRef, orderID, model.OrderPaid)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkPaid performs the single conditional Paid transition. false means
// another caller already won; the caller must not repeat side effects.
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID int64, providerTxnID *string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET status=$1,
		    paid_at=NOW(),
		    payment_provider_ref=COALESCE($2, payment_provider_ref)
		WHERE order_id=$3 AND status <> $1
	`, model.OrderPaid, providerTxnID, orderID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID int64, status string) error {
	_, err := r.DB.Exec(ctx, `UPDATE orders SET status=$1 WHERE order_id=$2`, status, orderID)
	return err
}

func (r *OrderRepository) SetRefundStatus(ctx context.Context, orderID int64, status *string) error {
	_, err := r.DB.Exec(ctx, `UPDATE orders SET refund_status=$1 WHERE order_id=$2`, status, orderID)
	return err
}
