package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/responsiv/subscribe-plugin/internal/domain/ledger"
	"github.com/responsiv/subscribe-plugin/internal/domain/membership"
	"github.com/responsiv/subscribe-plugin/internal/domain/subscription"
	ierr "github.com/responsiv/subscribe-plugin/internal/errors"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

// InvoiceService is the billing orchestrator: it raises invoices and line
// items against the external ledger and attempts automatic payments.
type InvoiceService interface {
	RaiseServiceInvoice(ctx context.Context, svc *subscription.Service) (*ledger.Invoice, error)
	RaiseServiceInvoiceItem(ctx context.Context, invoice *ledger.Invoice, svc *subscription.Service) (*ledger.InvoiceItem, error)
	RaiseServiceSetupFee(ctx context.Context, invoice *ledger.Invoice, svc *subscription.Service, price decimal.Decimal) (*ledger.InvoiceItem, error)
	RaiseMembershipFee(ctx context.Context, invoice *ledger.Invoice, m *membership.Membership, price decimal.Decimal) (*ledger.InvoiceItem, error)
	RaiseServiceRenewalInvoice(ctx context.Context, svc *subscription.Service) (*ledger.Invoice, error)

	// AttemptAutomaticPayment settles a zero invoice outright, otherwise
	// charges the stored payment method. A false return is a decline; the
	// caller decides between grace and past due.
	AttemptAutomaticPayment(ctx context.Context, invoice *ledger.Invoice) bool

	PriceForService(ctx context.Context, svc *subscription.Service) (decimal.Decimal, error)
	VoidUnpaidService(ctx context.Context, svc *subscription.Service) error
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{ServiceParams: params}
}

// RaiseServiceInvoice finds or creates the single unpaid invoice for the
// service's user, linked to the service.
func (s *invoiceService) RaiseServiceInvoice(ctx context.Context, svc *subscription.Service) (*ledger.Invoice, error) {
	if svc.ID == "" {
		return nil, ierr.NewError("create the service before raising invoices").
			Mark(ierr.ErrInvalidOperation)
	}

	m, err := s.MembershipRepo.Get(ctx, svc.MembershipID)
	if err != nil {
		return nil, err
	}
	if m.UserID == "" {
		return nil, ierr.NewError("service is missing a user").Mark(ierr.ErrValidation)
	}

	related := types.ServiceRef(svc.ID)
	invoice, err := s.Ledger.FindOrCreateUnpaidInvoice(ctx, m.UserID, related, svc.IsThrowaway)
	if err != nil {
		return nil, err
	}

	if invoice.IsThrowaway != svc.IsThrowaway {
		if err := s.Ledger.SetThrowaway(ctx, invoice.ID, svc.IsThrowaway); err != nil {
			return nil, err
		}
		invoice.IsThrowaway = svc.IsThrowaway
	}

	// The renewal invoice is due when the paid term runs out.
	if svc.ServicePeriodEnd != nil {
		if err := s.Ledger.SetDueDate(ctx, invoice.ID, svc.ServicePeriodEnd); err != nil {
			return nil, err
		}
		invoice.DueAt = svc.ServicePeriodEnd
	}

	return invoice, nil
}

// RaiseServiceInvoiceItem adds the plan-price line item, reusing an existing
// one for the same invoice and service rather than duplicating.
func (s *invoiceService) RaiseServiceInvoiceItem(ctx context.Context, invoice *ledger.Invoice, svc *subscription.Service) (*ledger.InvoiceItem, error) {
	related := types.ServiceRef(svc.ID)

	item, err := s.Ledger.FindItemByRelated(ctx, invoice.ID, related)
	if err != nil {
		return nil, err
	}
	if item != nil {
		return item, nil
	}

	price, err := s.PriceForService(ctx, svc)
	if err != nil {
		return nil, err
	}

	return s.Ledger.AddItem(ctx, invoice.ID, price, svc.Name, related)
}

func (s *invoiceService) RaiseServiceSetupFee(ctx context.Context, invoice *ledger.Invoice, svc *subscription.Service, price decimal.Decimal) (*ledger.InvoiceItem, error) {
	return s.Ledger.AddItem(ctx, invoice.ID, price, "Set up fee", types.RelatedRef{})
}

// RaiseMembershipFee adds the one-off membership fee, idempotent per
// invoice and membership.
func (s *invoiceService) RaiseMembershipFee(ctx context.Context, invoice *ledger.Invoice, m *membership.Membership, price decimal.Decimal) (*ledger.InvoiceItem, error) {
	related := types.MembershipRef(m.ID)

	item, err := s.Ledger.FindItemByRelated(ctx, invoice.ID, related)
	if err != nil {
		return nil, err
	}
	if item != nil {
		return item, nil
	}

	return s.Ledger.AddItem(ctx, invoice.ID, price, "Membership fee", related)
}

// RaiseServiceRenewalInvoice raises the invoice and its line item, approves
// it and recomputes the totals.
func (s *invoiceService) RaiseServiceRenewalInvoice(ctx context.Context, svc *subscription.Service) (*ledger.Invoice, error) {
	invoice, err := s.RaiseServiceInvoice(ctx, svc)
	if err != nil {
		return nil, err
	}

	if _, err := s.RaiseServiceInvoiceItem(ctx, invoice, svc); err != nil {
		return nil, err
	}

	if err := s.Ledger.MarkApproved(ctx, invoice.ID); err != nil {
		return nil, err
	}
	if err := s.Ledger.TouchTotals(ctx, invoice.ID); err != nil {
		return nil, err
	}

	return s.Ledger.Get(ctx, invoice.ID)
}

func (s *invoiceService) AttemptAutomaticPayment(ctx context.Context, invoice *ledger.Invoice) bool {
	if !invoice.Total.IsPositive() {
		if err := s.Ledger.SubmitManualPayment(ctx, invoice.ID, "Invoice total is zero"); err != nil {
			s.Logger.Errorw("zero total payment failed",
				"invoice_id", invoice.ID,
				"error", err,
			)
			return false
		}
		return true
	}

	paid, err := s.Ledger.AttemptProfilePayment(ctx, invoice)
	if err != nil {
		// A gateway failure counts as a decline; the lifecycle routes it to
		// grace or past due, it is never surfaced.
		s.Logger.Infow("automatic payment failed",
			"invoice_id", invoice.ID,
			"error", err,
		)
		return false
	}
	return paid
}

// PriceForService resolves the plan price for the service's next invoice,
// honoring schedule overrides and prorating the first invoice.
func (s *invoiceService) PriceForService(ctx context.Context, svc *subscription.Service) (decimal.Decimal, error) {
	p, err := s.PlanRepo.Get(ctx, svc.PlanID)
	if err != nil {
		return decimal.Zero, err
	}

	periodNumber := svc.CountRenewal + 1
	price, overridden := p.SchedulePrice(periodNumber)
	if !overridden {
		price = svc.Price
		if price.IsZero() {
			price = p.Price
		}
	}

	// The first invoice is prorated; renewals bill the full period.
	if svc.CountRenewal > 0 {
		return price, nil
	}

	startDate := s.Clock.Now()

	// With an active trial the paid period begins when the trial ends.
	if effectiveTrialDays(s.Config, p) > 0 {
		m, err := s.MembershipRepo.Get(ctx, svc.MembershipID)
		if err != nil {
			return decimal.Zero, err
		}
		if m.IsTrialActive(startDate) && m.TrialPeriodEnd != nil {
			startDate = *m.TrialPeriodEnd
		}
	}

	return p.AdjustPrice(price, startDate), nil
}

func (s *invoiceService) VoidUnpaidService(ctx context.Context, svc *subscription.Service) error {
	invoices, err := s.Ledger.ListUnpaidByRelated(ctx, types.ServiceRef(svc.ID))
	if err != nil {
		return err
	}

	for _, invoice := range invoices {
		if err := s.Ledger.Void(ctx, invoice.ID); err != nil {
			return err
		}
	}
	return nil
}
