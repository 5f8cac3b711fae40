package services

import "errors"

// Sentinel errors the endpoints map to HTTP status codes.
var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("access denied")
	ErrTokenMismatch = errors.New("out_trade_no not match this payable")
)
