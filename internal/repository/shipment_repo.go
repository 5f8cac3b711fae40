package repository

import (
	"context"
	"errors"

	"HBMartAPI/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ShipmentRepository struct {
	DB *pgxpool.Pool
}

func NewShipmentRepository(db *pgxpool.Pool) *ShipmentRepository {
	return &ShipmentRepository{DB: db}
}

const shipmentColumns = `
	shipment_id, order_id, tracking_number, recipient_name, recipient_address,
	recipient_phone, status, shipped_at, delivered_at, created_at
`

func scanShipment(row pgx.Row) (*model.Shipment, error) {
	var s model.Shipment
	err := row.Scan(
		&s.ShipmentID, &s.OrderID, &s.TrackingNumber, &s.RecipientName,
		&s.RecipientAddress, &s.RecipientPhone, &s.Status,
		&s.ShippedAt, &s.DeliveredAt, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *ShipmentRepository) Create(ctx context.Context, orderID int64, trackingNumber, name, address, phone string) (int64, error) {
	var id int64
	err := r.DB.QueryRow(ctx, `
		INSERT INTO shipments
			(order_id, tracking_number, recipient_name, recipient_address, recipient_phone, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING shipment_id
	`, orderID, trackingNumber, name, address, phone, model.ShipmentProcessing).Scan(&id)
	return id, err
}

func (r *ShipmentRepository) GetByID(ctx context.Context, shipmentID int64) (*model.Shipment, error) {
	return scanShipment(r.DB.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE shipment_id=$1`, shipmentID))
}

// GetByOrderID returns the latest shipment for an order.
func (r *ShipmentRepository) GetByOrderID(ctx context.Context, orderID int64) (*model.Shipment, error) {
	return scanShipment(r.DB.QueryRow(ctx, `
		SELECT `+shipmentColumns+` FROM shipments
		WHERE order_id=$1 ORDER BY created_at DESC LIMIT 1
	`, orderID))
}

func (r *ShipmentRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*model.Shipment, error) {
	return scanShipment(r.DB.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE tracking_number=$1`, trackingNumber))
}

// UpdateStatus sets the status and stamps shipped_at/delivered_at on the
// matching transitions.
func (r *ShipmentRepository) UpdateStatus(ctx context.Context, shipmentID int64, status string) error {
	q := `UPDATE shipments SET status=$1`
	switch status {
	case model.ShipmentShipped:
		q += `, shipped_at=NOW()`
	case model.ShipmentDelivered:
		q += `, delivered_at=NOW()`
	}
	q += ` WHERE shipment_id=$2`
	_, err := r.DB.Exec(ctx, q, status, shipmentID)
	return err
}

func (r *ShipmentRepository) AddTracking(ctx context.Context, shipmentID int64, status string, location *string, description string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO shipment_tracking (shipment_id, status, location, description, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, shipmentID, status, location, description)
	return err
}

func (r *ShipmentRepository) GetTracking(ctx context.Context, shipmentID int64) ([]model.ShipmentTracking, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT tracking_id, shipment_id, status, location, description, created_at
		FROM shipment_tracking
		WHERE shipment_id=$1
		ORDER BY created_at DESC
	`, shipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ShipmentTracking
	for rows.Next() {
		var t model.ShipmentTracking
		if err := rows.Scan(&t.TrackingID, &t.ShipmentID, &t.Status, &t.Location, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
