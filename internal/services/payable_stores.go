package services

import (
	"context"
	"fmt"

	"HBMartAPI/internal/model"
	"HBMartAPI/internal/repository"

	"github.com/shopspring/decimal"
)

// OrderPayableStore adapts the order repository to the payment workflow.
type OrderPayableStore struct {
	Repo *repository.OrderRepository
}

func orderPayable(o *model.Order) *Payable {
	p := &Payable{
		Kind:    PayableOrder,
		ID:      o.OrderID,
		UserID:  o.UserID,
		Amount:  decimal.NewFromFloat(o.Total),
		Subject: fmt.Sprintf("HBMart Order #%d", o.OrderID),
		Paid:    o.Status == model.OrderPaid,
	}
	if o.PaymentMethod != nil {
		p.Method = *o.PaymentMethod
	}
	if o.OutTradeNo != nil {
		p.OutTradeNo = *o.OutTradeNo
	}
	if o.ProviderRef != nil {
		p.ProviderRef = *o.ProviderRef
	}
	return p
}

func (s *OrderPayableStore) Get(ctx context.Context, id int64) (*Payable, error) {
	o, err := s.Repo.GetByID(ctx, id)
	if err != nil || o == nil {
		return nil, err
	}
	return orderPayable(o), nil
}

func (s *OrderPayableStore) FindByToken(ctx context.Context, outTradeNo string) (*Payable, error) {
	o, err := s.Repo.GetByOutTradeNo(ctx, outTradeNo)
	if err != nil || o == nil {
		return nil, err
	}
	return orderPayable(o), nil
}

func (s *OrderPayableStore) StartPayment(ctx context.Context, id int64, method, outTradeNo string, providerRef *string) (bool, error) {
	return s.Repo.StartPayment(ctx, id, method, outTradeNo, providerRef)
}

func (s *OrderPayableStore) MarkPaid(ctx context.Context, id int64, providerTxnID *string) (bool, error) {
	return s.Repo.MarkPaid(ctx, id, providerTxnID)
}

// MembershipPayableStore adapts memberships; MarkPaid is activation, which
// also stamps the expiry window from the plan.
type MembershipPayableStore struct {
	Repo *repository.MembershipRepository
}

func membershipPayable(m *model.Membership) *Payable {
	p := &Payable{
		Kind:    PayableMembership,
		ID:      m.MembershipID,
		UserID:  m.UserID,
		Amount:  decimal.NewFromFloat(m.Plan.Price),
		Subject: "HBMart Membership: " + m.Plan.Name,
		Paid:    m.Status == model.MembershipActive,
	}
	if m.PaymentMethod != nil {
		p.Method = *m.PaymentMethod
	}
	if m.OutTradeNo != nil {
		p.OutTradeNo = *m.OutTradeNo
	}
	if m.ProviderRef != nil {
		p.ProviderRef = *m.ProviderRef
	}
	return p
}

func (s *MembershipPayableStore) Get(ctx context.Context, id int64) (*Payable, error) {
	m, err := s.Repo.GetByID(ctx, id)
	if err != nil || m == nil {
		return nil, err
	}
	return membershipPayable(m), nil
}

func (s *MembershipPayableStore) FindByToken(ctx context.Context, outTradeNo string) (*Payable, error) {
	m, err := s.Repo.GetByOutTradeNo(ctx, outTradeNo)
	if err != nil || m == nil {
		return nil, err
	}
	return membershipPayable(m), nil
}

func (s *MembershipPayableStore) StartPayment(ctx context.Context, id int64, method, outTradeNo string, providerRef *string) (bool, error) {
	return s.Repo.StartPayment(ctx, id, method, outTradeNo, providerRef)
}

func (s *MembershipPayableStore) MarkPaid(ctx context.Context, id int64, providerTxnID *string) (bool, error) {
	return s.Repo.Activate(ctx, id, providerTxnID)
}

var (
	_ PayableStore = (*OrderPayableStore)(nil)
	_ PayableStore = (*MembershipPayableStore)(nil)
)
