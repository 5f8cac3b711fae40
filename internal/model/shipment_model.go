package model

import "time"

// Shipment statuses, in delivery order.
const (
	ShipmentProcessing     = "Processing"
	ShipmentShipped        = "Shipped"
	ShipmentInTransit      = "In Transit"
	ShipmentOutForDelivery = "Out for Delivery"
	ShipmentDelivered      = "Delivered"
)

// Shipment represents a row in the shipments table.
type Shipment struct {
	ShipmentID       int64      `json:"shipment_id"`
	OrderID          int64      `json:"order_id"`
	TrackingNumber   string     `json:"tracking_number"`
	RecipientName    string     `json:"recipient_name"`
	RecipientAddress string     `json:"recipient_address"`
	RecipientPhone   string     `json:"recipient_phone"`
	Status           string     `json:"status"`
	ShippedAt        *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`

	Tracking []ShipmentTracking `json:"tracking,omitempty"`
}

// ShipmentTracking is one entry of a shipment's status history.
type ShipmentTracking struct {
	TrackingID  int64      `json:"tracking_id"`
	ShipmentID  int64      `json:"shipment_id"`
	Status      string     `json:"status"`
	Location    *string    `json:"location,omitempty"`
	Description string     `json:"description"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}
