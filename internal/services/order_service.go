package services

import (
	"context"
	"errors"
	"fmt"

	"HBMartAPI/internal/model"
	"HBMartAPI/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderService struct {
	Repo     *repository.OrderRepository
	Cart     *repository.CartRepository
	Products *repository.ProductRepository
	Vouchers *VoucherService
	Log      *zap.Logger
}

func NewOrderService(
	repo *repository.OrderRepository,
	cart *repository.CartRepository,
	products *repository.ProductRepository,
	vouchers *VoucherService,
	log *zap.Logger,
) *OrderService {
	return &OrderService{Repo: repo, Cart: cart, Products: products, Vouchers: vouchers, Log: log}
}

// Checkout turns the user's cart into a Pending order. Pricing runs in
// decimal; stock decrement, item snapshot, voucher consumption and cart
// clearing commit in one transaction so a failed checkout leaves nothing
// behind.
func (s *OrderService) Checkout(ctx context.Context, userID int64, voucherCode string) (*model.CheckoutResult, error) {
	items, _, err := s.Cart.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.New("cart is empty")
	}

	subtotal := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)

	var voucher *model.Voucher
	discount := decimal.Zero
	var codePtr *string
	if voucherCode != "" {
		v, d, err := s.Vouchers.Validate(ctx, voucherCode, userID, subtotal)
		if err != nil {
			return nil, err
		}
		voucher, discount = v, d
		codePtr = &v.Code
	}

	fee := DeliveryFee(subtotal)
	total := subtotal.Sub(discount).Add(fee)

	tx, err := s.Repo.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	orderID, err := s.Repo.CreateTx(ctx, tx, userID,
		subtotal.InexactFloat64(), discount.InexactFloat64(), fee.InexactFloat64(), total.InexactFloat64(),
		codePtr)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.InsertItemsTx(ctx, tx, orderID, items); err != nil {
		return nil, err
	}
	for _, it := range items {
		ok, err := s.Products.DecrementStockTx(ctx, tx, it.ProductID, it.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("not enough stock for %s", it.Name)
		}
	}
	if voucher != nil {
		ok, err := s.Vouchers.Repo.MarkUsedTx(ctx, tx, voucher.VoucherID, orderID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("voucher %s already used", voucher.Code)
		}
	}
	if err := s.Cart.ClearTx(ctx, tx, userID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.Log.Info("order created",
		zap.Int64("order_id", orderID),
		zap.Int64("user_id", userID),
		zap.String("total", total.StringFixed(2)),
	)

	return &model.CheckoutResult{
		OrderID:  orderID,
		Subtotal: subtotal.InexactFloat64(),
		Discount: discount.InexactFloat64(),
		Fee:      fee.InexactFloat64(),
		Total:    total.InexactFloat64(),
	}, nil
}

// Get returns an order, enforcing that only its owner or an admin sees it.
func (s *OrderService) Get(ctx context.Context, orderID, userID int64, isAdmin bool) (*model.Order, error) {
	o, err := s.Repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNotFound
	}
	if o.UserID != userID && !isAdmin {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *OrderService) ListForUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.Repo.GetByUserID(ctx, userID)
}

// Cancel is only allowed before payment; stock goes back on the shelf.
func (s *OrderService) Cancel(ctx context.Context, orderID, userID int64) error {
	o, err := s.Get(ctx, orderID, userID, false)
	if err != nil {
		return err
	}
	if o.Status != model.OrderPending && o.Status != model.OrderUnpaid {
		return fmt.Errorf("order %d is %s and cannot be cancelled", orderID, o.Status)
	}
	if err := s.Repo.UpdateStatus(ctx, orderID, model.OrderCancelled); err != nil {
		return err
	}
	if err := s.Products.RestoreStockForOrder(ctx, orderID); err != nil {
		s.Log.Error("restore stock after cancel failed", zap.Int64("order_id", orderID), zap.Error(err))
	}
	return nil
}
