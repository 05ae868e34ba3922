package service

import (
	"context"

	"github.com/responsiv/subscribe-plugin/internal/domain/ledger"
	"github.com/responsiv/subscribe-plugin/internal/domain/subscription"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

// Engine reacts to ledger payment events and drives the service lifecycle
// forward. It is the single subscriber to the ledger's paid notification.
type Engine interface {
	// Register subscribes the engine to the ledger's paid notifications.
	Register()

	InvoicePaid(ctx context.Context, invoice *ledger.Invoice) error
	ReceivePayment(ctx context.Context, svc *subscription.Service, invoice *ledger.Invoice, comment string) error

	// AttemptRenewService raises the renewal invoice and tries to pay it
	// automatically, routing declines to grace or past due.
	AttemptRenewService(ctx context.Context, svc *subscription.Service) error
}

type engine struct {
	ServiceParams
}

func NewEngine(params ServiceParams) Engine {
	return &engine{ServiceParams: params}
}

func (e *engine) Register() {
	e.Ledger.OnInvoicePaid(e.InvoicePaid)
}

// InvoicePaid routes a payment notification to the service it concerns.
// Invoices related to other entities are ignored.
func (e *engine) InvoicePaid(ctx context.Context, invoice *ledger.Invoice) error {
	if invoice == nil || invoice.Related.Kind != types.RelatedKindService {
		return nil
	}

	svc, err := e.ServiceRepo.Get(ctx, invoice.Related.ID)
	if err != nil {
		return err
	}

	return e.ReceivePayment(ctx, svc, invoice, "Payment received")
}

// ReceivePayment applies a received payment to the service's state machine.
func (e *engine) ReceivePayment(ctx context.Context, svc *subscription.Service, invoice *ledger.Invoice, comment string) error {
	lifecycle := NewLifecycleService(e.ServiceParams)
	statusCode := lifecycle.StatusCode(svc)
	now := e.Clock.Now()

	e.Logger.Infow("payment received",
		"service_id", svc.ID,
		"invoice_id", invoice.ID,
		"status", statusCode,
	)

	// A paid service is never thrown away.
	if svc.IsThrowaway {
		svc.IsThrowaway = false
		if err := e.ServiceRepo.Update(ctx, svc); err != nil {
			return err
		}
		if invoice.IsThrowaway {
			if err := e.Ledger.SetThrowaway(ctx, invoice.ID, false); err != nil {
				return err
			}
		}
	}

	switch statusCode {
	case types.StatusTrial:
		p, err := e.PlanRepo.Get(ctx, svc.PlanID)
		if err != nil {
			return err
		}
		// Trial payments can fold the remaining trial days into the first
		// period, so billing starts when the trial would have ended.
		if isTrialInclusive(e.Config, p) && svc.CurrentPeriodEnd != nil {
			svc.DelayActivatedAt = svc.CurrentPeriodEnd
		}
		if err := lifecycle.Activate(ctx, svc, comment); err != nil {
			return err
		}
		return e.cancelReplacedServices(ctx, svc)

	case types.StatusNew:
		if err := lifecycle.ActivateOrDelay(ctx, svc, comment); err != nil {
			return err
		}
		if lifecycle.StatusCode(svc) == types.StatusActive {
			return e.cancelReplacedServices(ctx, svc)
		}
		return nil

	case types.StatusGrace:
		if _, err := lifecycle.RenewService(ctx, svc, comment); err != nil {
			return err
		}
		// The payment may only cover an already elapsed period; bill the
		// next one immediately.
		if svc.HasServicePeriodEnded(now) {
			return e.AttemptRenewService(ctx, svc)
		}
		return nil

	case types.StatusActive:
		// Early payments on an advance invoice roll the term forward right
		// away; the renewal guard filters out everything else.
		_, err := lifecycle.RenewService(ctx, svc, comment)
		return err

	case types.StatusPastDue:
		// Manual recovery: a fresh payment on a failed service restores it
		// without the automatic renewal path.
		if svc.CountFail > 0 {
			svc.CancelledAt = nil
			svc.IsActive = true
			svc.NextAssessmentAt = &now
			if _, err := lifecycle.Transition(ctx, svc, types.StatusActive, comment); err != nil {
				return err
			}
			return e.ServiceRepo.Update(ctx, svc)
		}
		return nil
	}

	return nil
}

func (e *engine) AttemptRenewService(ctx context.Context, svc *subscription.Service) error {
	invoiceService := NewInvoiceService(e.ServiceParams)
	lifecycle := NewLifecycleService(e.ServiceParams)

	invoice, err := invoiceService.RaiseServiceRenewalInvoice(ctx, svc)
	if err != nil {
		return err
	}

	if invoice.IsPaid() || invoiceService.AttemptAutomaticPayment(ctx, invoice) {
		return nil
	}

	svc.CountFail++
	if err := e.ServiceRepo.Update(ctx, svc); err != nil {
		return err
	}

	if done, err := e.applyDunningEscalation(ctx, lifecycle, svc); done || err != nil {
		return err
	}

	if svc.GraceDays > 0 {
		return lifecycle.StartGracePeriod(ctx, svc, "Automatic payment failed")
	}
	return lifecycle.PastDueService(ctx, svc, "Automatic payment failed")
}

// applyDunningEscalation routes a failed renewal through the plan's dunning
// path for the current failure count. A path naming a target status replaces
// the default grace handling.
func (e *engine) applyDunningEscalation(ctx context.Context, lifecycle LifecycleService, svc *subscription.Service) (bool, error) {
	p, err := e.PlanRepo.Get(ctx, svc.PlanID)
	if err != nil {
		return false, err
	}
	if p.DunningPlanID == "" {
		return false, nil
	}

	dunningPlan, err := e.DunningRepo.Get(ctx, p.DunningPlanID)
	if err != nil {
		return false, err
	}

	path := dunningPlan.PathForAttempt(svc.CountFail)
	if path == nil {
		return false, nil
	}

	e.Logger.Infow("dunning escalation",
		"service_id", svc.ID,
		"failed_attempts", svc.CountFail,
		"path", path.Description(),
	)

	switch path.TargetStatus {
	case types.StatusCancelled:
		return true, lifecycle.CancelServiceNow(ctx, svc, "Dunning escalation")
	case types.StatusPastDue:
		return true, lifecycle.PastDueService(ctx, svc, "Dunning escalation")
	}
	return false, nil
}

// cancelReplacedServices cancels every other in-force service of the same
// membership once a newly paid service activates. This is how a plan switch
// retires the old plan.
func (e *engine) cancelReplacedServices(ctx context.Context, svc *subscription.Service) error {
	lifecycle := NewLifecycleService(e.ServiceParams)

	services, err := e.ServiceRepo.ListByMembership(ctx, svc.MembershipID)
	if err != nil {
		return err
	}

	for _, other := range services {
		if other.ID == svc.ID {
			continue
		}
		if !lifecycle.StatusCode(other).IsActiveFamily() {
			continue
		}
		if err := lifecycle.CancelServiceNow(ctx, other, "Switched plan"); err != nil {
			return err
		}
	}

	// Cancelling a sibling clears the membership pointer; make sure it ends
	// up on the service that just activated.
	m, err := e.MembershipRepo.Get(ctx, svc.MembershipID)
	if err != nil {
		return err
	}
	if m.ActiveServiceID != svc.ID {
		m.ActiveServiceID = svc.ID
		return e.MembershipRepo.Update(ctx, m)
	}
	return nil
}
