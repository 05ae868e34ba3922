package service

import (
	"context"
	"time"

	"github.com/responsiv/subscribe-plugin/internal/domain/membership"
	"github.com/responsiv/subscribe-plugin/internal/domain/plan"
	"github.com/responsiv/subscribe-plugin/internal/domain/subscription"
	ierr "github.com/responsiv/subscribe-plugin/internal/errors"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

// CancelOptions controls when a cancellation takes effect.
type CancelOptions struct {
	// AtDate cancels at an exact instant.
	AtDate *time.Time
	// AtTermEnd defers the cancellation to the end of the paid term.
	AtTermEnd bool
}

// LifecycleService is the per-service state machine: activation, trial,
// grace, renewal, cancellation, completion and past due.
type LifecycleService interface {
	CreateForMembership(ctx context.Context, m *membership.Membership, p *plan.Plan, throwaway bool) (*subscription.Service, error)

	ActivateOrDelay(ctx context.Context, svc *subscription.Service, comment string) error
	Activate(ctx context.Context, svc *subscription.Service, comment string) error
	StartTrialPeriod(ctx context.Context, svc *subscription.Service, comment string) error
	StartGracePeriod(ctx context.Context, svc *subscription.Service, comment string) error

	RenewService(ctx context.Context, svc *subscription.Service, comment string) (bool, error)
	CanRenewService(ctx context.Context, svc *subscription.Service) bool

	PastDueService(ctx context.Context, svc *subscription.Service, comment string) error
	CancelService(ctx context.Context, svc *subscription.Service, comment string, opts CancelOptions) error
	CancelServiceNow(ctx context.Context, svc *subscription.Service, comment string) error
	CompleteService(ctx context.Context, svc *subscription.Service, comment string) error

	// Transition moves the service to the given status, appending a status
	// log row. Returns false without mutation for same-status transitions
	// and vetoed transitions.
	Transition(ctx context.Context, svc *subscription.Service, code types.StatusCode, comment string) (bool, error)

	StatusCode(svc *subscription.Service) types.StatusCode
	HasUnpaidInvoices(ctx context.Context, svc *subscription.Service) (bool, error)
}

type lifecycleService struct {
	ServiceParams
}

func NewLifecycleService(params ServiceParams) LifecycleService {
	return &lifecycleService{ServiceParams: params}
}

// CreateForMembership finds or creates the service for the (membership,
// plan, throwaway) tuple, raises its first invoice and starts the trial when
// the membership has an active trial window.
func (s *lifecycleService) CreateForMembership(ctx context.Context, m *membership.Membership, p *plan.Plan, throwaway bool) (*subscription.Service, error) {
	if p == nil {
		return nil, ierr.NewError("service is missing a plan").Mark(ierr.ErrValidation)
	}
	if m == nil {
		return nil, ierr.NewError("service is missing a membership").Mark(ierr.ErrValidation)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := s.Clock.Now()

	svc, err := s.ServiceRepo.FindByMembershipAndPlan(ctx, m.ID, p.ID, throwaway)
	if err != nil {
		if !ierr.IsNotFound(err) {
			return nil, err
		}
		svc = &subscription.Service{
			ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SERVICE),
			MembershipID: m.ID,
			PlanID:       p.ID,
			IsThrowaway:  throwaway,
			BaseModel:    types.NewBaseModel(now),
		}
		if err := s.ServiceRepo.Create(ctx, svc); err != nil {
			return nil, err
		}
	}

	// Snapshot the plan onto the service so later plan edits never change
	// this subscription.
	svc.Name = p.Name
	svc.Price = p.Price
	svc.SetupPrice = p.SetupPrice
	svc.TrialDays = effectiveTrialDays(s.Config, p)
	svc.GraceDays = effectiveGraceDays(s.Config, p)

	invoiceService := NewInvoiceService(s.ServiceParams)

	invoice, err := invoiceService.RaiseServiceInvoice(ctx, svc)
	if err != nil {
		return nil, err
	}
	if err := s.Ledger.ClearItems(ctx, invoice.ID); err != nil {
		return nil, err
	}

	if p.SetupPrice.IsPositive() {
		if _, err := invoiceService.RaiseServiceSetupFee(ctx, invoice, svc, p.SetupPrice); err != nil {
			return nil, err
		}
	}

	item, err := invoiceService.RaiseServiceInvoiceItem(ctx, invoice, svc)
	if err != nil {
		return nil, err
	}

	svc.FirstInvoiceID = invoice.ID
	svc.FirstInvoiceItemID = item.ID

	if m.IsTrialActive(now) {
		if err := s.StartTrialPeriod(ctx, svc, "Trial started on signup"); err != nil {
			return nil, err
		}
		return svc, nil
	}

	if _, err := s.Transition(ctx, svc, types.StatusNew, "Service created"); err != nil {
		return nil, err
	}
	svc.NextAssessmentAt = &now
	if err := s.ServiceRepo.Update(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// ActivateOrDelay activates the service immediately when its computed
// billing start has arrived, otherwise parks it in pending until that date.
func (s *lifecycleService) ActivateOrDelay(ctx context.Context, svc *subscription.Service, comment string) error {
	p, err := s.PlanRepo.Get(ctx, svc.PlanID)
	if err != nil {
		return err
	}

	now := s.Clock.Now()
	activateAt := now
	if svc.DelayActivatedAt != nil {
		activateAt = *svc.DelayActivatedAt
	}

	currentBillingDate, err := p.PeriodStart(activateAt)
	if err != nil {
		return err
	}

	if !currentBillingDate.After(now) {
		return s.Activate(ctx, svc, comment)
	}

	svc.DelayActivatedAt = &currentBillingDate
	svc.IsActive = false

	if _, err := s.Transition(ctx, svc, types.StatusPending, comment); err != nil {
		return err
	}
	if err := s.ServiceRepo.Update(ctx, svc); err != nil {
		return err
	}

	s.Events.Fire(ctx, EventServiceActivatedLater, svc)
	return nil
}

// Activate starts the service's first paid period.
func (s *lifecycleService) Activate(ctx context.Context, svc *subscription.Service, comment string) error {
	p, err := s.PlanRepo.Get(ctx, svc.PlanID)
	if err != nil {
		return err
	}

	now := s.Clock.Now()
	activateAt := now
	if svc.DelayActivatedAt != nil {
		activateAt = *svc.DelayActivatedAt
	}

	currentBillingDate, err := p.PeriodStart(activateAt)
	if err != nil {
		return err
	}
	nextBillingDate, err := p.PeriodEnd(currentBillingDate)
	if err != nil {
		return err
	}

	svc.CurrentPeriodStart = &currentBillingDate
	svc.ServicePeriodStart = &currentBillingDate
	svc.CurrentPeriodEnd = nextBillingDate
	svc.ServicePeriodEnd = nextBillingDate
	if svc.OriginalPeriodStart == nil {
		svc.OriginalPeriodStart = &currentBillingDate
		svc.OriginalPeriodEnd = nextBillingDate
	}
	svc.ActivatedAt = &now
	svc.DelayActivatedAt = nil
	svc.IsActive = true
	svc.CountRenewal = 1

	if _, err := s.Transition(ctx, svc, types.StatusActive, comment); err != nil {
		return err
	}
	if err := s.ServiceRepo.Update(ctx, svc); err != nil {
		return err
	}

	if err := s.setMembershipActiveService(ctx, svc); err != nil {
		return err
	}

	s.Events.Fire(ctx, EventServiceActivated, svc)
	return nil
}

// StartTrialPeriod puts the service on the membership's trial window.
func (s *lifecycleService) StartTrialPeriod(ctx context.Context, svc *subscription.Service, comment string) error {
	m, err := s.MembershipRepo.Get(ctx, svc.MembershipID)
	if err != nil {
		return err
	}
	if m.TrialPeriodStart == nil || m.TrialPeriodEnd == nil {
		return ierr.NewError("membership has no trial window").
			WithHint("Compute the membership trial period before starting a trial").
			Mark(ierr.ErrInvalidOperation)
	}

	if _, err := s.Transition(ctx, svc, types.StatusTrial, comment); err != nil {
		return err
	}

	svc.IsActive = true
	svc.CurrentPeriodStart = m.TrialPeriodStart
	svc.CurrentPeriodEnd = m.TrialPeriodEnd
	if err := s.ServiceRepo.Update(ctx, svc); err != nil {
		return err
	}

	if err := s.setMembershipActiveService(ctx, svc); err != nil {
		return err
	}

	s.Events.Fire(ctx, EventMembershipTrialStarted, svc)
	return nil
}

// StartGracePeriod extends access past the paid term by the grace days.
func (s *lifecycleService) StartGracePeriod(ctx context.Context, svc *subscription.Service, comment string) error {
	if svc.ServicePeriodEnd == nil {
		return ierr.NewError("service has no period end to grace from").
			Mark(ierr.ErrInvalidOperation)
	}

	if _, err := s.Transition(ctx, svc, types.StatusGrace, comment); err != nil {
		return err
	}

	graceStart := *svc.ServicePeriodEnd
	graceEnd := graceStart.AddDate(0, 0, svc.GraceDays)

	svc.CurrentPeriodStart = &graceStart
	svc.CurrentPeriodEnd = &graceEnd
	if err := s.ServiceRepo.Update(ctx, svc); err != nil {
		return err
	}

	s.Events.Fire(ctx, EventMembershipGraceStarted, svc)
	return nil
}

// RenewService advances the paid term by one plan period. The guard failing
// is not an error: the caller gets false and nothing changes.
func (s *lifecycleService) RenewService(ctx context.Context, svc *subscription.Service, comment string) (bool, error) {
	if !s.CanRenewService(ctx, svc) {
		return false, nil
	}

	p, err := s.PlanRepo.Get(ctx, svc.PlanID)
	if err != nil {
		return false, err
	}

	now := s.Clock.Now()
	startDate := *svc.ServicePeriodEnd
	endDate, err := p.PeriodEnd(startDate)
	if err != nil {
		return false, err
	}

	svc.CurrentPeriodStart = &startDate
	svc.ServicePeriodStart = &startDate
	svc.CurrentPeriodEnd = endDate
	svc.ServicePeriodEnd = endDate
	svc.CountRenewal++

	if err := s.ServiceRepo.Update(ctx, svc); err != nil {
		return false, err
	}

	// Only flip back to active when the renewal lands inside the new period.
	if endDate != nil && endDate.After(now) {
		if _, err := s.Transition(ctx, svc, types.StatusActive, comment); err != nil {
			return false, err
		}
	}

	return true, nil
}

// CanRenewService reports whether the service has a next period to renew
// into.
func (s *lifecycleService) CanRenewService(ctx context.Context, svc *subscription.Service) bool {
	if svc.CurrentPeriodEnd == nil || svc.ServicePeriodEnd == nil {
		return false
	}
	if svc.IsCancelled() {
		return false
	}
	if s.StatusCode(svc) == types.StatusTrial {
		return false
	}

	p, err := s.PlanRepo.Get(ctx, svc.PlanID)
	if err != nil {
		return false
	}
	if !p.IsRenewable() {
		return false
	}

	end, err := p.PeriodEnd(*svc.ServicePeriodEnd)
	if err != nil || end == nil {
		return false
	}
	return true
}

// PastDueService parks the service pending manual recovery and voids its
// unpaid invoices.
func (s *lifecycleService) PastDueService(ctx context.Context, svc *subscription.Service, comment string) error {
	if _, err := s.Transition(ctx, svc, types.StatusPastDue, comment); err != nil {
		return err
	}

	now := s.Clock.Now()
	svc.CancelledAt = &now
	svc.DelayCancelledAt = nil
	svc.IsActive = false
	if err := s.ServiceRepo.Update(ctx, svc); err != nil {
		return err
	}

	if err := s.clearMembershipActiveService(ctx, svc); err != nil {
		return err
	}

	s.Events.Fire(ctx, EventServicePastDue, svc)

	return NewInvoiceService(s.ServiceParams).VoidUnpaidService(ctx, svc)
}

// CancelService cancels the service, possibly at a future date. A future
// effective date only schedules the cancellation; the worker applies it when
// the date arrives.
func (s *lifecycleService) CancelService(ctx context.Context, svc *subscription.Service, comment string, opts CancelOptions) error {
	now := s.Clock.Now()

	atDate := opts.AtDate
	if opts.AtTermEnd && svc.ServicePeriodEnd != nil {
		atDate = svc.ServicePeriodEnd
	}

	if atDate != nil && atDate.After(now) {
		svc.DelayCancelledAt = atDate
		return s.ServiceRepo.Update(ctx, svc)
	}

	if _, err := s.Transition(ctx, svc, types.StatusCancelled, comment); err != nil {
		return err
	}

	svc.CancelledAt = &now
	svc.DelayCancelledAt = nil
	svc.IsActive = false
	svc.ClearPeriods()
	if err := s.ServiceRepo.Update(ctx, svc); err != nil {
		return err
	}

	// End an active trial prematurely so no sibling service can ride it.
	m, err := s.MembershipRepo.Get(ctx, svc.MembershipID)
	if err != nil {
		return err
	}
	if m.IsTrialActive(now) {
		m.TrialPeriodEnd = &now
		if err := s.MembershipRepo.Update(ctx, m); err != nil {
			return err
		}
	}

	if err := s.clearMembershipActiveService(ctx, svc); err != nil {
		return err
	}

	s.Events.Fire(ctx, EventServiceCancelled, svc)

	return NewInvoiceService(s.ServiceParams).VoidUnpaidService(ctx, svc)
}

func (s *lifecycleService) CancelServiceNow(ctx context.Context, svc *subscription.Service, comment string) error {
	return s.CancelService(ctx, svc, comment, CancelOptions{AtTermEnd: false})
}

// CompleteService ends the service cleanly after its final renewal period.
func (s *lifecycleService) CompleteService(ctx context.Context, svc *subscription.Service, comment string) error {
	if _, err := s.Transition(ctx, svc, types.StatusComplete, comment); err != nil {
		return err
	}

	now := s.Clock.Now()
	svc.ExpiredAt = &now
	svc.IsActive = false
	svc.ClearPeriods()
	if err := s.ServiceRepo.Update(ctx, svc); err != nil {
		return err
	}

	if err := s.clearMembershipActiveService(ctx, svc); err != nil {
		return err
	}

	s.Events.Fire(ctx, EventServiceCompleted, svc)
	return nil
}

// Transition implements the status ledger write path: no-op on same status,
// cancelable before hooks, an append-only log row, then a minimal status
// update that bypasses full-model save side effects.
func (s *lifecycleService) Transition(ctx context.Context, svc *subscription.Service, code types.StatusCode, comment string) (bool, error) {
	status, err := s.Statuses.GetByCode(code)
	if err != nil {
		return false, err
	}

	if svc.StatusID == status.ID {
		return false, nil
	}

	previousStatusID := svc.StatusID
	if !s.Events.AllowTransition(ctx, svc, status, previousStatusID) {
		s.Logger.Debugw("status transition vetoed",
			"service_id", svc.ID,
			"to_status", status.Code,
		)
		return false, nil
	}

	now := s.Clock.Now()
	record := &subscription.StatusLog{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_STATUS_LOG),
		StatusID:     status.ID,
		ServiceID:    svc.ID,
		MembershipID: svc.MembershipID,
		Comment:      comment,
		CreatedAt:    now,
	}
	if err := s.StatusLogRepo.Create(ctx, record); err != nil {
		return false, err
	}

	if err := s.ServiceRepo.UpdateStatus(ctx, svc.ID, status.ID, now); err != nil {
		return false, err
	}
	svc.StatusID = status.ID
	svc.StatusUpdatedAt = &now

	s.Logger.Infow("service status changed",
		"service_id", svc.ID,
		"membership_id", svc.MembershipID,
		"status", status.Code,
		"comment", comment,
	)

	return true, nil
}

func (s *lifecycleService) StatusCode(svc *subscription.Service) types.StatusCode {
	return s.Statuses.CodeOf(svc)
}

func (s *lifecycleService) HasUnpaidInvoices(ctx context.Context, svc *subscription.Service) (bool, error) {
	invoices, err := s.Ledger.ListUnpaidByRelated(ctx, types.ServiceRef(svc.ID))
	if err != nil {
		return false, err
	}
	return len(invoices) > 0, nil
}

func (s *lifecycleService) setMembershipActiveService(ctx context.Context, svc *subscription.Service) error {
	m, err := s.MembershipRepo.Get(ctx, svc.MembershipID)
	if err != nil {
		return err
	}
	if m.ActiveServiceID == svc.ID {
		return nil
	}
	m.ActiveServiceID = svc.ID
	return s.MembershipRepo.Update(ctx, m)
}

func (s *lifecycleService) clearMembershipActiveService(ctx context.Context, svc *subscription.Service) error {
	m, err := s.MembershipRepo.Get(ctx, svc.MembershipID)
	if err != nil {
		return err
	}
	if m.ActiveServiceID != svc.ID {
		return nil
	}
	m.ActiveServiceID = ""
	return s.MembershipRepo.Update(ctx, m)
}
