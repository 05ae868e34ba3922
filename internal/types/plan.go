package types

import (
	ierr "github.com/responsiv/subscribe-plugin/internal/errors"
)

// PlanType is the billing cadence of a plan.
type PlanType string

const (
	PlanTypeDaily    PlanType = "daily"
	PlanTypeMonthly  PlanType = "monthly"
	PlanTypeYearly   PlanType = "yearly"
	PlanTypeLifetime PlanType = "lifetime"
)

func (p PlanType) Validate() error {
	switch p {
	case PlanTypeDaily, PlanTypeMonthly, PlanTypeYearly, PlanTypeLifetime:
		return nil
	}
	return ierr.NewErrorf("invalid plan type: %s", p).
		WithHint("Plan type must be one of daily, monthly, yearly, lifetime").
		Mark(ierr.ErrValidation)
}

func (p PlanType) String() string {
	return string(p)
}

// MonthlyBehavior controls how monthly plans align billing periods to the
// plan's anchor day of month.
type MonthlyBehavior string

const (
	// MonthlyBehaviorSignup bills on the day of month the service started.
	MonthlyBehaviorSignup MonthlyBehavior = "signup"
	// MonthlyBehaviorProrate bills on the anchor day and prorates the first
	// partial period.
	MonthlyBehaviorProrate MonthlyBehavior = "prorate"
	// MonthlyBehaviorFreeDays bills on the anchor day of the next month,
	// granting the days until then for free.
	MonthlyBehaviorFreeDays MonthlyBehavior = "free_days"
	// MonthlyBehaviorNoStart delays the period start to the anchor day.
	MonthlyBehaviorNoStart MonthlyBehavior = "no_start"
)

func (m MonthlyBehavior) Validate() error {
	switch m {
	case MonthlyBehaviorSignup, MonthlyBehaviorProrate, MonthlyBehaviorFreeDays, MonthlyBehaviorNoStart:
		return nil
	}
	return ierr.NewErrorf("invalid monthly behavior: %s", m).
		WithHint("Monthly behavior must be one of signup, prorate, free_days, no_start").
		Mark(ierr.ErrValidation)
}

func (m MonthlyBehavior) String() string {
	return string(m)
}
