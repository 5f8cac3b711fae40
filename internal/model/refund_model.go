package model

import "time"

// Refund statuses.
const (
	RefundPending   = "Pending"
	RefundApproved  = "Approved"
	RefundRejected  = "Rejected"
	RefundCompleted = "Completed"
	RefundCancelled = "Cancelled"
)

// Refund represents a row in the refunds table.
type Refund struct {
	RefundID     int64      `json:"refund_id"`
	OrderID      int64      `json:"order_id"`
	UserID       int64      `json:"user_id"`
	Amount       float64    `json:"amount"`
	Reason       string     `json:"reason"`
	Description  *string    `json:"description,omitempty"`
	Status       string     `json:"status"`
	AdminNote    *string    `json:"admin_note,omitempty"`
	RefundMethod *string    `json:"refund_method,omitempty"`
	RefundRef    *string    `json:"refund_ref,omitempty"`
	ProcessedBy  *int64     `json:"processed_by,omitempty"`
	RequestedAt  *time.Time `json:"requested_at,omitempty"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}
