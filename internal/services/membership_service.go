package services

import (
	"context"
	"fmt"

	"HBMartAPI/internal/model"
	"HBMartAPI/internal/repository"

	"go.uber.org/zap"
)

type MembershipService struct {
	Repo     *repository.MembershipRepository
	Vouchers *repository.VoucherRepository
	Log      *zap.Logger
}

func NewMembershipService(repo *repository.MembershipRepository, vouchers *repository.VoucherRepository, log *zap.Logger) *MembershipService {
	return &MembershipService{Repo: repo, Vouchers: vouchers, Log: log}
}

func (s *MembershipService) ListPlans(ctx context.Context) ([]model.MembershipPlan, error) {
	return s.Repo.ListActivePlans(ctx)
}

// Subscribe creates a Pending membership for the plan; payment activates it.
func (s *MembershipService) Subscribe(ctx context.Context, userID, planID int64) (int64, error) {
	plan, err := s.Repo.GetPlanByID(ctx, planID)
	if err != nil {
		return 0, err
	}
	if plan == nil || !plan.IsActive {
		return 0, fmt.Errorf("membership plan %d not available", planID)
	}
	if active, err := s.Repo.GetActiveByUserID(ctx, userID); err != nil {
		return 0, err
	} else if active != nil {
		return 0, fmt.Errorf("you already have an active membership until %s", active.ExpiresAt.Format("2006-01-02"))
	}
	return s.Repo.Create(ctx, userID, planID)
}

func (s *MembershipService) Get(ctx context.Context, membershipID, userID int64, isAdmin bool) (*model.Membership, error) {
	m, err := s.Repo.GetByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotFound
	}
	if m.UserID != userID && !isAdmin {
		return nil, ErrForbidden
	}
	return m, nil
}

func (s *MembershipService) ListForUser(ctx context.Context, userID int64) ([]model.Membership, error) {
	return s.Repo.GetByUserID(ctx, userID)
}

func (s *MembershipService) ActiveForUser(ctx context.Context, userID int64) (*model.Membership, error) {
	return s.Repo.GetActiveByUserID(ctx, userID)
}

// OnPaid is the membership's paid effect: issue the plan's voucher batch.
// Activation itself already happened in the MarkPaid transition, so a voucher
// failure leaves an active membership and is surfaced for support follow-up.
func (s *MembershipService) OnPaid(ctx context.Context, p *Payable) (map[string]interface{}, error) {
	m, err := s.Repo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("membership %d vanished after activation", p.ID)
	}

	vouchers, err := s.Vouchers.CreateMembershipVouchers(ctx, m.UserID, m.MembershipID, m.Plan)
	extra := map[string]interface{}{"vouchers_created": len(vouchers)}
	if err != nil {
		return extra, fmt.Errorf("issuing membership vouchers: %w", err)
	}

	s.Log.Info("membership vouchers issued",
		zap.Int64("membership_id", m.MembershipID),
		zap.Int("count", len(vouchers)),
	)
	return extra, nil
}
