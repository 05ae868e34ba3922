package plan

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/responsiv/subscribe-plugin/internal/errors"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

// This file is the billing period calculator: pure functions over a plan and
// a reference instant. All monthly math anchors on the plan's month day,
// clamped to a valid calendar day via ClampDay.

// DaysInMonth returns the number of days in the month containing t.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// ClampDay resolves a configured day-of-month against a concrete month.
// Days up to 28 are always valid; otherwise walk downward until the day
// exists in that month.
func ClampDay(day int, month time.Month, year int) int {
	if day <= 28 {
		return day
	}
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	for day > 28 && day > daysInMonth {
		day--
	}
	return day
}

// anchorDay is the plan's billing day resolved for the month containing t.
func (p *Plan) anchorDay(t time.Time) int {
	return ClampDay(p.MonthDay, t.Month(), t.Year())
}

// onDay returns t moved to the given day of its month, keeping clock time.
func onDay(t time.Time, day int) time.Time {
	return time.Date(t.Year(), t.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// anchorOfMonthsAhead returns the plan's anchor day, n months after the month
// containing t, clamped to that month.
func (p *Plan) anchorOfMonthsAhead(t time.Time, n int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	day := ClampDay(p.MonthDay, firstOfTarget.Month(), firstOfTarget.Year())
	return onDay(firstOfTarget, day)
}

// PeriodStart computes the billing period start for a service activating at
// the given instant. Only monthly plans with the no_start behavior snap the
// start forward to the anchor day; every other cadence starts immediately.
func (p *Plan) PeriodStart(activateAt time.Time) (time.Time, error) {
	if err := p.PlanType.Validate(); err != nil {
		return time.Time{}, err
	}
	if p.PlanType != types.PlanTypeMonthly {
		return activateAt, nil
	}
	if err := p.MonthlyBehavior.Validate(); err != nil {
		return time.Time{}, err
	}
	if p.MonthlyBehavior != types.MonthlyBehaviorNoStart {
		return activateAt, nil
	}

	anchor := p.anchorDay(activateAt)
	if activateAt.Day() <= anchor {
		return onDay(activateAt, anchor), nil
	}
	return p.anchorOfMonthsAhead(activateAt, p.monthInterval()), nil
}

// PeriodEnd computes the end of the billing period beginning at start.
// Lifetime plans return nil: the period never ends.
func (p *Plan) PeriodEnd(start time.Time) (*time.Time, error) {
	switch p.PlanType {
	case types.PlanTypeLifetime:
		return nil, nil

	case types.PlanTypeDaily:
		end := start.AddDate(0, 0, p.dayInterval())
		return &end, nil

	case types.PlanTypeYearly:
		end := start.AddDate(p.yearInterval(), 0, 0)
		return &end, nil

	case types.PlanTypeMonthly:
		return p.monthlyPeriodEnd(start)
	}

	return nil, ierr.NewErrorf("invalid plan type: %s", p.PlanType).
		WithHint("Plan type must be one of daily, monthly, yearly, lifetime").
		Mark(ierr.ErrValidation)
}

func (p *Plan) monthlyPeriodEnd(start time.Time) (*time.Time, error) {
	switch p.MonthlyBehavior {
	case types.MonthlyBehaviorSignup:
		// Same day of month as the start, clamped for short months.
		end := p.monthsAheadSameDay(start, p.monthInterval())
		return &end, nil

	case types.MonthlyBehaviorProrate:
		anchor := p.anchorDay(start)
		if start.Day() < anchor {
			end := onDay(start, anchor)
			return &end, nil
		}
		end := p.anchorOfMonthsAhead(start, p.monthInterval())
		return &end, nil

	case types.MonthlyBehaviorFreeDays, types.MonthlyBehaviorNoStart:
		end := p.anchorOfMonthsAhead(start, p.monthInterval())
		return &end, nil
	}

	return nil, ierr.NewErrorf("invalid monthly behavior: %s", p.MonthlyBehavior).
		WithHint("Monthly behavior must be one of signup, prorate, free_days, no_start").
		Mark(ierr.ErrValidation)
}

// monthsAheadSameDay adds n months keeping the start's day of month, clamped
// so Jan 31 plus one month lands on Feb 28 rather than overflowing to March.
func (p *Plan) monthsAheadSameDay(start time.Time, n int) time.Time {
	firstOfTarget := time.Date(start.Year(), start.Month()+time.Month(n), 1, start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), start.Location())
	day := ClampDay(start.Day(), firstOfTarget.Month(), firstOfTarget.Year())
	return onDay(firstOfTarget, day)
}

// DaysInCycle returns the length in days of the billing cycle the reference
// date falls in. Before the anchor day the cycle began on the previous
// month's anchor, so the previous month's length applies; on or after the
// anchor the current month's length applies.
func (p *Plan) DaysInCycle(ref time.Time) int {
	anchor := p.anchorDay(ref)
	if ref.Day() < anchor {
		prev := ref.AddDate(0, 0, -ref.Day())
		return DaysInMonth(prev)
	}
	return DaysInMonth(ref)
}

// DaysUntilBilling returns how many days remain until the next anchor day.
func (p *Plan) DaysUntilBilling(ref time.Time) int {
	anchor := p.anchorDay(ref)
	if ref.Day() <= anchor {
		return anchor - ref.Day()
	}
	return DaysInMonth(ref) - ref.Day() + anchor
}

// AdjustPrice prorates a price for the partial cycle between the reference
// date and the next anchor day. Only monthly prorate plans adjust; every
// other configuration returns the price unchanged. On the anchor day itself
// the full price applies.
func (p *Plan) AdjustPrice(price decimal.Decimal, ref time.Time) decimal.Decimal {
	if p.PlanType != types.PlanTypeMonthly || p.MonthlyBehavior != types.MonthlyBehaviorProrate {
		return price
	}

	billableDays := p.DaysUntilBilling(ref)
	if billableDays == 0 {
		return price
	}

	cycleDays := p.DaysInCycle(ref)
	return price.
		Div(decimal.NewFromInt(int64(cycleDays))).
		Mul(decimal.NewFromInt(int64(billableDays))).
		Round(2)
}
