package services

import (
	"context"
	"fmt"

	"HBMartAPI/internal/model"
	"HBMartAPI/internal/repository"

	"go.uber.org/zap"
)

type RefundService struct {
	Repo     *repository.RefundRepository
	Orders   *repository.OrderRepository
	Products *repository.ProductRepository
	Vouchers *repository.VoucherRepository
	Log      *zap.Logger
}

func NewRefundService(
	repo *repository.RefundRepository,
	orders *repository.OrderRepository,
	products *repository.ProductRepository,
	vouchers *repository.VoucherRepository,
	log *zap.Logger,
) *RefundService {
	return &RefundService{Repo: repo, Orders: orders, Products: products, Vouchers: vouchers, Log: log}
}

// Request opens a refund for a paid order. The refund covers the full amount
// the user actually paid (after discount, including delivery fee).
func (s *RefundService) Request(ctx context.Context, userID, orderID int64, reason string, description *string) (int64, error) {
	o, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return 0, err
	}
	if o == nil {
		return 0, ErrNotFound
	}
	if o.UserID != userID {
		return 0, ErrForbidden
	}
	if o.Status != model.OrderPaid {
		return 0, fmt.Errorf("order %d is %s; only paid orders can be refunded", orderID, o.Status)
	}
	if open, err := s.Repo.HasOpenRefund(ctx, orderID); err != nil {
		return 0, err
	} else if open {
		return 0, fmt.Errorf("order %d already has an open refund", orderID)
	}

	refundID, err := s.Repo.Create(ctx, orderID, userID, o.Total, reason, description)
	if err != nil {
		return 0, err
	}

	pending := model.RefundPending
	if err := s.Orders.SetRefundStatus(ctx, orderID, &pending); err != nil {
		s.Log.Error("set order refund status failed", zap.Int64("order_id", orderID), zap.Error(err))
	}
	return refundID, nil
}

func (s *RefundService) Get(ctx context.Context, refundID, userID int64, isAdmin bool) (*model.Refund, error) {
	f, err := s.Repo.GetByID(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrNotFound
	}
	if f.UserID != userID && !isAdmin {
		return nil, ErrForbidden
	}
	return f, nil
}

func (s *RefundService) ListForUser(ctx context.Context, userID int64) ([]model.Refund, error) {
	return s.Repo.ListByUser(ctx, userID)
}

func (s *RefundService) ListAll(ctx context.Context) ([]model.Refund, error) {
	return s.Repo.ListAll(ctx)
}

// Approve flips the order to Refunded, puts stock back and releases the
// voucher. The Pending guard on the status update makes double approval a
// no-op conflict.
func (s *RefundService) Approve(ctx context.Context, adminID, refundID int64, note *string) error {
	f, err := s.Repo.GetByID(ctx, refundID)
	if err != nil {
		return err
	}
	if f == nil {
		return ErrNotFound
	}

	ok, err := s.Repo.UpdateStatus(ctx, refundID, model.RefundApproved, model.RefundPending, adminID, note)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("refund %d is not pending", refundID)
	}

	if err := s.Orders.UpdateStatus(ctx, f.OrderID, model.OrderRefunded); err != nil {
		return err
	}
	approved := model.RefundApproved
	if err := s.Orders.SetRefundStatus(ctx, f.OrderID, &approved); err != nil {
		s.Log.Error("set order refund status failed", zap.Int64("order_id", f.OrderID), zap.Error(err))
	}
	if err := s.Products.RestoreStockForOrder(ctx, f.OrderID); err != nil {
		s.Log.Error("restore stock failed", zap.Int64("order_id", f.OrderID), zap.Error(err))
	}
	if err := s.releaseVoucher(ctx, f.OrderID); err != nil {
		s.Log.Error("release voucher failed", zap.Int64("order_id", f.OrderID), zap.Error(err))
	}

	s.Log.Info("refund approved",
		zap.Int64("refund_id", refundID),
		zap.Int64("order_id", f.OrderID),
		zap.Int64("admin_id", adminID),
	)
	return nil
}

func (s *RefundService) releaseVoucher(ctx context.Context, orderID int64) error {
	o, err := s.Orders.GetByID(ctx, orderID)
	if err != nil || o == nil || o.VoucherCode == nil {
		return err
	}
	v, err := s.Vouchers.GetByCode(ctx, *o.VoucherCode)
	if err != nil || v == nil {
		return err
	}
	// Only release if this order consumed it.
	if v.UsedOrderID == nil || *v.UsedOrderID != orderID {
		return nil
	}
	return s.Vouchers.MarkUnused(ctx, v.VoucherID)
}

func (s *RefundService) Reject(ctx context.Context, adminID, refundID int64, note *string) error {
	f, err := s.Repo.GetByID(ctx, refundID)
	if err != nil {
		return err
	}
	if f == nil {
		return ErrNotFound
	}
	ok, err := s.Repo.UpdateStatus(ctx, refundID, model.RefundRejected, model.RefundPending, adminID, note)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("refund %d is not pending", refundID)
	}
	if err := s.Orders.SetRefundStatus(ctx, f.OrderID, nil); err != nil {
		s.Log.Error("clear order refund status failed", zap.Int64("order_id", f.OrderID), zap.Error(err))
	}
	return nil
}

// Complete records that the money actually went back out, with the channel
// and an optional provider reference.
func (s *RefundService) Complete(ctx context.Context, adminID, refundID int64, method string, ref *string) error {
	ok, err := s.Repo.UpdateStatus(ctx, refundID, model.RefundCompleted, model.RefundApproved, adminID, nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("refund %d is not approved", refundID)
	}
	return s.Repo.SetMethod(ctx, refundID, method, ref)
}

func (s *RefundService) Cancel(ctx context.Context, userID, refundID int64) error {
	ok, err := s.Repo.Cancel(ctx, refundID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("refund %d is not yours to cancel or is no longer pending", refundID)
	}
	f, err := s.Repo.GetByID(ctx, refundID)
	if err == nil && f != nil {
		if err := s.Orders.SetRefundStatus(ctx, f.OrderID, nil); err != nil {
			s.Log.Error("clear order refund status failed", zap.Int64("order_id", f.OrderID), zap.Error(err))
		}
	}
	return nil
}
