package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/responsiv/subscribe-plugin/internal/domain/membership"
	"github.com/responsiv/subscribe-plugin/internal/domain/subscription"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

const (
	PhaseMemberships = "memberships"
	PhaseAutoBilling = "billing"

	idleMessage = "There are no outstanding activities to perform."
)

// Worker sweeps memberships and attempts automatic billing. One activity is
// performed per run, so a busy system drains gradually instead of doing
// everything in a single pass.
type Worker interface {
	// Process runs the requested phases, or both in random order when none
	// are named, and returns a summary of the activity performed.
	Process(ctx context.Context, phases ...string) string
}

type worker struct {
	ServiceParams

	// A manual trigger can land while the scheduled run is in flight, so
	// runs are serialized.
	mu sync.Mutex

	isReady    bool
	logMessage string
	now        time.Time
}

func NewWorker(params ServiceParams) Worker {
	return &worker{ServiceParams: params}
}

func (w *worker) Process(ctx context.Context, phases ...string) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.isReady = true
	w.logMessage = idleMessage
	w.now = w.Clock.Now()

	if len(phases) == 0 {
		phases = lo.Shuffle([]string{PhaseMemberships, PhaseAutoBilling})
	}

	for _, phase := range phases {
		if !w.isReady {
			break
		}
		switch phase {
		case PhaseMemberships:
			w.processMemberships(ctx)
		case PhaseAutoBilling:
			w.processAutoBilling(ctx)
		default:
			w.Logger.Warnw("unknown worker phase", "phase", phase)
		}
	}

	return w.logMessage
}

// processMemberships services memberships whose last sweep is older than the
// staleness window, oldest first.
func (w *worker) processMemberships(ctx context.Context) {
	cutoff := w.now.Add(-w.Config.Worker.StalenessWindow)
	limit := w.Config.Worker.MembershipBatchSize

	memberships, err := w.MembershipRepo.ListProcessable(ctx, cutoff, limit)
	if err != nil {
		w.Logger.Errorw("failed to list processable memberships", "error", err)
		return
	}

	count := 0
	for _, m := range memberships {
		w.processMembership(ctx, m)
		count++

		if err := w.MembershipRepo.UpdateLastProcessAt(ctx, m.ID, w.now); err != nil {
			w.Logger.Errorw("failed to stamp membership",
				"membership_id", m.ID,
				"error", err,
			)
		}
	}

	if count > 0 {
		w.logActivity(fmt.Sprintf("Processed services for %d membership(s)", count))
	}
}

func (w *worker) processMembership(ctx context.Context, m *membership.Membership) {
	defer func() {
		if r := recover(); r != nil {
			w.Logger.Errorw("panic while processing membership",
				"membership_id", m.ID,
				"panic", r,
			)
		}
	}()

	services, err := w.ServiceRepo.ListByMembership(ctx, m.ID)
	if err != nil {
		w.Logger.Errorw("failed to list membership services",
			"membership_id", m.ID,
			"error", err,
		)
		return
	}

	lifecycle := NewLifecycleService(w.ServiceParams)

	for _, svc := range services {
		if _, err := w.checkService(ctx, lifecycle, svc); err != nil {
			w.Logger.Errorw("failed to check service",
				"service_id", svc.ID,
				"membership_id", m.ID,
				"error", err,
			)
		}
	}
}

// checkService walks a service through the sweep checks, stopping at the
// first one that applies.
func (w *worker) checkService(ctx context.Context, lifecycle LifecycleService, svc *subscription.Service) (bool, error) {
	if lifecycle.StatusCode(svc).IsTerminal() {
		return true, nil
	}
	if done, err := w.checkServiceCancelled(ctx, lifecycle, svc); done || err != nil {
		return done, err
	}
	if done, err := w.checkServiceDelayed(ctx, lifecycle, svc); done || err != nil {
		return done, err
	}
	if done, err := w.checkRenewalPeriod(ctx, lifecycle, svc); done || err != nil {
		return done, err
	}
	if done, err := w.checkPeriodEnded(ctx, lifecycle, svc); done || err != nil {
		return done, err
	}
	return w.checkAdvanceInvoice(ctx, lifecycle, svc)
}

func (w *worker) checkServiceCancelled(ctx context.Context, lifecycle LifecycleService, svc *subscription.Service) (bool, error) {
	if svc.CancelledAt != nil {
		return true, nil
	}

	if svc.DelayCancelledAt != nil && !svc.DelayCancelledAt.After(w.now) {
		err := lifecycle.CancelServiceNow(ctx, svc, "Cancelled on delayed cancellation date")
		return true, err
	}

	return false, nil
}

func (w *worker) checkServiceDelayed(ctx context.Context, lifecycle LifecycleService, svc *subscription.Service) (bool, error) {
	if svc.DelayActivatedAt == nil {
		return false, nil
	}

	if svc.DelayActivatedAt.After(w.now) {
		return true, nil
	}

	err := lifecycle.Activate(ctx, svc, "Activated on delayed activation date")
	return true, err
}

func (w *worker) checkRenewalPeriod(ctx context.Context, lifecycle LifecycleService, svc *subscription.Service) (bool, error) {
	p, err := w.PlanRepo.Get(ctx, svc.PlanID)
	if err != nil {
		return false, err
	}

	if p.RenewalPeriod <= 0 || svc.CountRenewal < p.RenewalPeriod {
		return false, nil
	}

	err = lifecycle.CompleteService(ctx, svc, "Renewal period reached")
	return true, err
}

func (w *worker) checkPeriodEnded(ctx context.Context, lifecycle LifecycleService, svc *subscription.Service) (bool, error) {
	if !svc.HasPeriodEnded(w.now) {
		return false, nil
	}

	switch lifecycle.StatusCode(svc) {
	case types.StatusGrace:
		return true, lifecycle.PastDueService(ctx, svc, "Grace ended")

	case types.StatusTrial:
		return true, lifecycle.PastDueService(ctx, svc, "Trial ended")

	case types.StatusActive:
		hasUnpaid, err := lifecycle.HasUnpaidInvoices(ctx, svc)
		if err != nil {
			return true, err
		}
		if hasUnpaid {
			return true, nil
		}
		if lifecycle.CanRenewService(ctx, svc) {
			invoices := NewInvoiceService(w.ServiceParams)
			_, err := invoices.RaiseServiceRenewalInvoice(ctx, svc)
			return true, err
		}
		return true, lifecycle.CompleteService(ctx, svc, "Does not renew")
	}

	return true, nil
}

// checkAdvanceInvoice raises the renewal invoice ahead of the period end so
// the user has time to pay before service lapses.
func (w *worker) checkAdvanceInvoice(ctx context.Context, lifecycle LifecycleService, svc *subscription.Service) (bool, error) {
	if lifecycle.StatusCode(svc) != types.StatusActive ||
		svc.HasPeriodEnded(w.now) ||
		!lifecycle.CanRenewService(ctx, svc) {
		return false, nil
	}

	p, err := w.PlanRepo.Get(ctx, svc.PlanID)
	if err != nil {
		return false, err
	}

	advanceDays := effectiveAdvanceDays(w.Config, p)
	if advanceDays <= 0 || svc.ServicePeriodEnd == nil {
		return false, nil
	}

	hasUnpaid, err := lifecycle.HasUnpaidInvoices(ctx, svc)
	if err != nil || hasUnpaid {
		return false, err
	}

	fromDate := svc.ServicePeriodEnd.AddDate(0, 0, -advanceDays)

	// Advance days can exceed a short period.
	if svc.ServicePeriodStart != nil && fromDate.Before(*svc.ServicePeriodStart) {
		fromDate = *svc.ServicePeriodStart
	}

	if !w.now.After(fromDate) {
		return false, nil
	}

	invoices := NewInvoiceService(w.ServiceParams)
	if _, err := invoices.RaiseServiceRenewalInvoice(ctx, svc); err != nil {
		return true, err
	}
	return true, nil
}

// processAutoBilling charges stored payment methods for active services whose
// paid period has run out.
func (w *worker) processAutoBilling(ctx context.Context) {
	active, err := w.Statuses.GetByCode(types.StatusActive)
	if err != nil {
		w.Logger.Errorw("active status missing", "error", err)
		return
	}

	limit := w.Config.Worker.BillingBatchSize

	services, err := w.ServiceRepo.ListAutoBillingCandidates(ctx, active.ID, w.now, limit)
	if err != nil {
		w.Logger.Errorw("failed to list billing candidates", "error", err)
		return
	}

	lifecycle := NewLifecycleService(w.ServiceParams)
	eng := NewEngine(w.ServiceParams)

	billed := map[string]struct{}{}
	for _, svc := range services {
		hasUnpaid, err := lifecycle.HasUnpaidInvoices(ctx, svc)
		if err != nil {
			w.Logger.Errorw("failed to check unpaid invoices",
				"service_id", svc.ID,
				"error", err,
			)
			continue
		}
		if !hasUnpaid && !svc.HasServicePeriodEnded(w.now) {
			continue
		}

		if err := eng.AttemptRenewService(ctx, svc); err != nil {
			w.Logger.Errorw("automatic billing failed",
				"service_id", svc.ID,
				"error", err,
			)
			continue
		}
		billed[svc.MembershipID] = struct{}{}
	}

	if len(billed) > 0 {
		w.logActivity(fmt.Sprintf("Processed billing for %d membership(s)", len(billed)))
	}
}

func (w *worker) logActivity(message string) {
	w.logMessage = message
	w.isReady = false
}
