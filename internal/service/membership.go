package service

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/responsiv/subscribe-plugin/internal/domain/membership"
	"github.com/responsiv/subscribe-plugin/internal/domain/plan"
	"github.com/responsiv/subscribe-plugin/internal/domain/subscription"
	ierr "github.com/responsiv/subscribe-plugin/internal/errors"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

// MembershipService creates memberships and handles plan hopping.
type MembershipService interface {
	// CreateForUser finds or creates the user's membership and subscribes
	// it to the plan, raising the first invoice.
	CreateForUser(ctx context.Context, userID string, p *plan.Plan, isGuest bool) (*membership.Membership, *subscription.Service, error)

	// SwitchPlan subscribes to the new plan once the current paid term ends.
	SwitchPlan(ctx context.Context, m *membership.Membership, p *plan.Plan) (*subscription.Service, error)

	// SwitchPlanNow subscribes to the new plan immediately; the old service
	// is cancelled when the new one's invoice is paid.
	SwitchPlanNow(ctx context.Context, m *membership.Membership, p *plan.Plan) (*subscription.Service, error)

	ActiveService(ctx context.Context, m *membership.Membership) (*subscription.Service, error)
}

type membershipService struct {
	ServiceParams
}

func NewMembershipService(params ServiceParams) MembershipService {
	return &membershipService{ServiceParams: params}
}

func (s *membershipService) CreateForUser(ctx context.Context, userID string, p *plan.Plan, isGuest bool) (*membership.Membership, *subscription.Service, error) {
	if userID == "" {
		return nil, nil, ierr.NewError("membership user is required").Mark(ierr.ErrValidation)
	}
	if p == nil {
		return nil, nil, ierr.NewError("membership is missing a plan").Mark(ierr.ErrValidation)
	}

	now := s.Clock.Now()

	m, err := s.MembershipRepo.GetByUser(ctx, userID, isGuest)
	if err != nil {
		if !ierr.IsNotFound(err) {
			return nil, nil, err
		}
		m = &membership.Membership{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_MEMBERSHIP),
			UserID:      userID,
			IsThrowaway: isGuest,
			BaseModel:   types.NewBaseModel(now),
		}
		if err := s.MembershipRepo.Create(ctx, m); err != nil {
			return nil, nil, err
		}
	}

	if trialDays := effectiveTrialDays(s.Config, p); trialDays > 0 && !m.IsTrialUsed {
		allowed, err := s.trialAllowed(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		if allowed {
			m.SetTrialPeriod(now, trialDays)
		}
	}

	// Services stay throwaway until the first invoice is paid.
	lifecycle := NewLifecycleService(s.ServiceParams)
	svc, err := lifecycle.CreateForMembership(ctx, m, p, true)
	if err != nil {
		return nil, nil, err
	}

	invoiceService := NewInvoiceService(s.ServiceParams)

	if fee := effectiveMembershipPrice(s.Config, p); fee.IsPositive() {
		invoice, err := s.Ledger.Get(ctx, svc.FirstInvoiceID)
		if err != nil {
			return nil, nil, err
		}
		if _, err := invoiceService.RaiseMembershipFee(ctx, invoice, m, fee); err != nil {
			return nil, nil, err
		}
	}

	if err := s.approveInvoice(ctx, svc.FirstInvoiceID); err != nil {
		return nil, nil, err
	}

	if err := s.MembershipRepo.Update(ctx, m); err != nil {
		return nil, nil, err
	}

	s.Logger.Infow("membership created",
		"membership_id", m.ID,
		"user_id", userID,
		"plan_id", p.ID,
		"is_throwaway", isGuest,
	)

	return m, svc, nil
}

// trialAllowed enforces the card-upfront policy: when enabled, users without
// a stored payment method cannot start a trial.
func (s *membershipService) trialAllowed(ctx context.Context, userID string) (bool, error) {
	if !s.Config.Subscription.RequireCardUpfront {
		return true, nil
	}
	return s.Ledger.HasPaymentProfile(ctx, userID)
}

func (s *membershipService) SwitchPlan(ctx context.Context, m *membership.Membership, p *plan.Plan) (*subscription.Service, error) {
	active, err := s.ActiveService(ctx, m)
	if err != nil {
		return nil, err
	}

	lifecycle := NewLifecycleService(s.ServiceParams)

	svc, err := lifecycle.CreateForMembership(ctx, m, p, true)
	if err != nil {
		return nil, err
	}

	// The new plan waits for the old term to run out; the old service is
	// scheduled to cancel at the same boundary.
	if active != nil && active.ServicePeriodEnd != nil {
		svc.DelayActivatedAt = active.ServicePeriodEnd
		if err := s.ServiceRepo.Update(ctx, svc); err != nil {
			return nil, err
		}
		if err := lifecycle.CancelService(ctx, active, "Switched plan at term end", CancelOptions{AtTermEnd: true}); err != nil {
			return nil, err
		}
	}

	if err := s.approveInvoice(ctx, svc.FirstInvoiceID); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *membershipService) SwitchPlanNow(ctx context.Context, m *membership.Membership, p *plan.Plan) (*subscription.Service, error) {
	lifecycle := NewLifecycleService(s.ServiceParams)

	svc, err := lifecycle.CreateForMembership(ctx, m, p, true)
	if err != nil {
		return nil, err
	}

	if err := s.approveInvoice(ctx, svc.FirstInvoiceID); err != nil {
		return nil, err
	}
	return svc, nil
}

// ActiveService resolves the membership's in-force service, preferring the
// cached pointer and falling back to a scan.
func (s *membershipService) ActiveService(ctx context.Context, m *membership.Membership) (*subscription.Service, error) {
	if m.ActiveServiceID != "" {
		svc, err := s.ServiceRepo.Get(ctx, m.ActiveServiceID)
		if err == nil {
			return svc, nil
		}
		if !ierr.IsNotFound(err) {
			return nil, err
		}
	}

	services, err := s.ServiceRepo.ListByMembership(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	candidates := lo.Filter(services, func(svc *subscription.Service, _ int) bool {
		return s.Statuses.CodeOf(svc).IsActiveFamily()
	})

	var active *subscription.Service
	for _, svc := range candidates {
		if active == nil || afterPtr(svc.ActivatedAt, active.ActivatedAt) {
			active = svc
		}
	}
	return active, nil
}

func afterPtr(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

func (s *membershipService) approveInvoice(ctx context.Context, invoiceID string) error {
	if invoiceID == "" {
		return nil
	}
	if err := s.Ledger.MarkApproved(ctx, invoiceID); err != nil {
		return err
	}
	return s.Ledger.TouchTotals(ctx, invoiceID)
}
