package plan

import (
	"github.com/shopspring/decimal"

	ierr "github.com/responsiv/subscribe-plugin/internal/errors"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

// Plan is an immutable billing-policy descriptor. Services snapshot the
// fields they need at creation, so editing a plan never changes an existing
// subscription.
type Plan struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`

	Price           decimal.Decimal `json:"price"`
	SetupPrice      decimal.Decimal `json:"setup_price"`
	MembershipPrice decimal.Decimal `json:"membership_price"`

	// RenewalPeriod is the maximum number of completed billing cycles.
	// Zero means unlimited.
	RenewalPeriod int `json:"renewal_period"`

	// TrialDays and GraceDays override the configured defaults when set.
	// Nil means "use the default"; an explicit zero disables the period.
	TrialDays *int `json:"trial_days,omitempty"`
	GraceDays *int `json:"grace_days,omitempty"`

	PlanType        types.PlanType        `json:"plan_type"`
	DayInterval     int                   `json:"day_interval"`
	MonthInterval   int                   `json:"month_interval"`
	MonthDay        int                   `json:"month_day"`
	YearInterval    int                   `json:"year_interval"`
	MonthlyBehavior types.MonthlyBehavior `json:"monthly_behavior"`

	// InvoiceAdvanceDays overrides the configured default when positive.
	InvoiceAdvanceDays int `json:"invoice_advance_days"`

	DunningPlanID string `json:"dunning_plan_id,omitempty"`

	// Schedules are optional price overrides keyed by renewal-period number.
	Schedules []*Schedule `json:"schedules,omitempty"`

	types.BaseModel
}

// Schedule is a price override for a specific renewal period of a plan.
type Schedule struct {
	ID           string          `json:"id"`
	PlanID       string          `json:"plan_id"`
	PeriodNumber int             `json:"period_number"`
	Price        decimal.Decimal `json:"price"`

	types.BaseModel
}

// Validate checks the plan's cadence configuration.
func (p *Plan) Validate() error {
	if p.Name == "" {
		return ierr.NewError("plan name is required").Mark(ierr.ErrValidation)
	}
	if err := p.PlanType.Validate(); err != nil {
		return err
	}
	if p.PlanType == types.PlanTypeMonthly {
		if err := p.MonthlyBehavior.Validate(); err != nil {
			return err
		}
		if p.MonthDay < 0 || p.MonthDay > 31 {
			return ierr.NewErrorf("invalid plan month day: %d", p.MonthDay).
				WithHint("Month day must be between 1 and 31").
				Mark(ierr.ErrValidation)
		}
	}
	if p.RenewalPeriod < 0 {
		return ierr.NewError("renewal period cannot be negative").Mark(ierr.ErrValidation)
	}
	return nil
}

// IsRenewable reports whether the plan has renewal cycles at all.
func (p *Plan) IsRenewable() bool {
	return p.PlanType != types.PlanTypeLifetime
}

// PriceForPeriod returns the plan price for the given renewal period,
// honoring schedule overrides.
func (p *Plan) PriceForPeriod(periodNumber int) decimal.Decimal {
	if price, ok := p.SchedulePrice(periodNumber); ok {
		return price
	}
	return p.Price
}

// SchedulePrice returns the schedule override for the period, if one exists.
func (p *Plan) SchedulePrice(periodNumber int) (decimal.Decimal, bool) {
	for _, s := range p.Schedules {
		if s.PeriodNumber == periodNumber {
			return s.Price, true
		}
	}
	return decimal.Zero, false
}

func (p *Plan) dayInterval() int {
	if p.DayInterval <= 0 {
		return 1
	}
	return p.DayInterval
}

func (p *Plan) monthInterval() int {
	if p.MonthInterval <= 0 {
		return 1
	}
	return p.MonthInterval
}

func (p *Plan) yearInterval() int {
	if p.YearInterval <= 0 {
		return 1
	}
	return p.YearInterval
}
