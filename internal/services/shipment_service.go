package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"HBMartAPI/internal/model"
	"HBMartAPI/internal/repository"

	"go.uber.org/zap"
)

type ShipmentService struct {
	Repo   *repository.ShipmentRepository
	Orders *repository.OrderRepository
	Log    *zap.Logger
}

func NewShipmentService(repo *repository.ShipmentRepository, orders *repository.OrderRepository, log *zap.Logger) *ShipmentService {
	return &ShipmentService{Repo: repo, Orders: orders, Log: log}
}

func newTrackingNumber() (string, error) {
	suffix := make([]byte, 0, 4)
	for i := 0; i < 4; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(36))
		if err != nil {
			return "", err
		}
		suffix = strconv.AppendInt(suffix, n.Int64(), 36)
	}
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return strings.ToUpper("HBM" + ts + string(suffix)), nil
}

// Create opens a shipment for a paid order and writes its first tracking
// entry.
func (s *ShipmentService) Create(ctx context.Context, orderID int64, name, address, phone string) (*model.Shipment, error) {
	o, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNotFound
	}
	if o.Status != model.OrderPaid {
		return nil, fmt.Errorf("order %d is %s; only paid orders ship", orderID, o.Status)
	}

	tn, err := newTrackingNumber()
	if err != nil {
		return nil, err
	}
	shipmentID, err := s.Repo.Create(ctx, orderID, tn, name, address, phone)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.AddTracking(ctx, shipmentID, model.ShipmentProcessing, nil, "Shipment created"); err != nil {
		s.Log.Error("add tracking failed", zap.Int64("shipment_id", shipmentID), zap.Error(err))
	}

	s.Log.Info("shipment created",
		zap.Int64("shipment_id", shipmentID),
		zap.Int64("order_id", orderID),
		zap.String("tracking_number", tn),
	)
	return s.Repo.GetByID(ctx, shipmentID)
}

var shipmentFlow = map[string]int{
	model.ShipmentProcessing:     0,
	model.ShipmentShipped:        1,
	model.ShipmentInTransit:      2,
	model.ShipmentOutForDelivery: 3,
	model.ShipmentDelivered:      4,
}

// UpdateStatus advances a shipment along the delivery flow and appends a
// tracking entry. Moving backwards is rejected.
func (s *ShipmentService) UpdateStatus(ctx context.Context, shipmentID int64, status string, location *string, description string) error {
	next, ok := shipmentFlow[status]
	if !ok {
		return fmt.Errorf("unknown shipment status: %s", status)
	}
	sh, err := s.Repo.GetByID(ctx, shipmentID)
	if err != nil {
		return err
	}
	if sh == nil {
		return ErrNotFound
	}
	if next <= shipmentFlow[sh.Status] {
		return fmt.Errorf("shipment %d is already %s", shipmentID, sh.Status)
	}

	if err := s.Repo.UpdateStatus(ctx, shipmentID, status); err != nil {
		return err
	}
	if description == "" {
		description = status
	}
	return s.Repo.AddTracking(ctx, shipmentID, status, location, description)
}

// TrackForOrder returns the order's shipment with its tracking history,
// visible to the order owner or an admin.
func (s *ShipmentService) TrackForOrder(ctx context.Context, orderID, userID int64, isAdmin bool) (*model.Shipment, []model.ShipmentTracking, error) {
	o, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if o == nil {
		return nil, nil, ErrNotFound
	}
	if o.UserID != userID && !isAdmin {
		return nil, nil, ErrForbidden
	}

	sh, err := s.Repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if sh == nil {
		return nil, nil, ErrNotFound
	}
	hist, err := s.Repo.GetTracking(ctx, sh.ShipmentID)
	if err != nil {
		return nil, nil, err
	}
	return sh, hist, nil
}

// TrackByNumber is the public tracking lookup; no ownership data beyond the
// shipment's own fields is exposed.
func (s *ShipmentService) TrackByNumber(ctx context.Context, trackingNumber string) (*model.Shipment, []model.ShipmentTracking, error) {
	sh, err := s.Repo.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, nil, err
	}
	if sh == nil {
		return nil, nil, ErrNotFound
	}
	hist, err := s.Repo.GetTracking(ctx, sh.ShipmentID)
	if err != nil {
		return nil, nil, err
	}
	return sh, hist, nil
}
