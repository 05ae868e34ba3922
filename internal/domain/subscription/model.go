package subscription

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/responsiv/subscribe-plugin/internal/errors"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

// Service is one plan-bound subscription belonging to a membership. Plan
// fields are snapshotted at creation so later plan edits never change an
// existing subscription.
type Service struct {
	ID           string `json:"id"`
	MembershipID string `json:"membership_id"`
	PlanID       string `json:"plan_id"`

	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	SetupPrice decimal.Decimal `json:"setup_price"`

	StatusID string `json:"status_id"`

	// Current period is the billing window in effect, reused for trial and
	// grace windows. Service period is the paid term, independent of grace.
	CurrentPeriodStart  *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd    *time.Time `json:"current_period_end,omitempty"`
	ServicePeriodStart  *time.Time `json:"service_period_start,omitempty"`
	ServicePeriodEnd    *time.Time `json:"service_period_end,omitempty"`
	OriginalPeriodStart *time.Time `json:"original_period_start,omitempty"`
	OriginalPeriodEnd   *time.Time `json:"original_period_end,omitempty"`

	CountRenewal int `json:"count_renewal"`
	CountFail    int `json:"count_fail"`

	IsActive    bool `json:"is_active"`
	IsThrowaway bool `json:"is_throwaway"`

	DelayActivatedAt *time.Time `json:"delay_activated_at,omitempty"`
	DelayCancelledAt *time.Time `json:"delay_cancelled_at,omitempty"`
	ActivatedAt      *time.Time `json:"activated_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	ExpiredAt        *time.Time `json:"expired_at,omitempty"`
	StatusUpdatedAt  *time.Time `json:"status_updated_at,omitempty"`
	NextAssessmentAt *time.Time `json:"next_assessment_at,omitempty"`

	TrialDays int `json:"trial_days"`
	GraceDays int `json:"grace_days"`

	// First invoice raised for this service, reused until it is paid.
	FirstInvoiceID     string `json:"first_invoice_id,omitempty"`
	FirstInvoiceItemID string `json:"first_invoice_item_id,omitempty"`

	types.BaseModel
}

func (s *Service) Validate() error {
	if s.MembershipID == "" {
		return ierr.NewError("service membership is required").Mark(ierr.ErrValidation)
	}
	if s.PlanID == "" {
		return ierr.NewError("service plan is required").Mark(ierr.ErrValidation)
	}
	return nil
}

// HasPeriodEnded reports whether the current billing window has elapsed.
func (s *Service) HasPeriodEnded(now time.Time) bool {
	return s.CurrentPeriodEnd != nil && !s.CurrentPeriodEnd.After(now)
}

// HasServicePeriodEnded reports whether the paid term has elapsed.
func (s *Service) HasServicePeriodEnded(now time.Time) bool {
	return s.ServicePeriodEnd != nil && !s.ServicePeriodEnd.After(now)
}

// IsCancelled reports whether a cancellation has taken effect.
func (s *Service) IsCancelled() bool {
	return s.CancelledAt != nil
}

// ClearPeriods nulls every period field, used when the service reaches a
// terminal state.
func (s *Service) ClearPeriods() {
	s.CurrentPeriodStart = nil
	s.CurrentPeriodEnd = nil
	s.ServicePeriodStart = nil
	s.ServicePeriodEnd = nil
	s.OriginalPeriodStart = nil
	s.OriginalPeriodEnd = nil
}
