package service

import (
	"github.com/shopspring/decimal"

	"github.com/responsiv/subscribe-plugin/internal/config"
	"github.com/responsiv/subscribe-plugin/internal/domain/plan"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

// Plan settings fall back to the configured defaults when the plan leaves
// them unset.

func effectiveTrialDays(cfg *config.Configuration, p *plan.Plan) int {
	if p.TrialDays != nil {
		return *p.TrialDays
	}
	return cfg.Subscription.TrialDays
}

func effectiveGraceDays(cfg *config.Configuration, p *plan.Plan) int {
	if p.GraceDays != nil {
		return *p.GraceDays
	}
	return cfg.Subscription.GraceDays
}

func effectiveMembershipPrice(cfg *config.Configuration, p *plan.Plan) decimal.Decimal {
	if p.MembershipPrice.IsPositive() {
		return p.MembershipPrice
	}
	return cfg.Subscription.MembershipPrice
}

func effectiveAdvanceDays(cfg *config.Configuration, p *plan.Plan) int {
	if p.InvoiceAdvanceDays > 0 {
		return p.InvoiceAdvanceDays
	}
	return cfg.Subscription.InvoiceAdvanceDays
}

// isTrialInclusive decides whether paying during a trial folds the remaining
// trial days into the first period. Prorated monthly plans always do, since
// their first period is anchored; otherwise the configured policy applies.
func isTrialInclusive(cfg *config.Configuration, p *plan.Plan) bool {
	if p.PlanType == types.PlanTypeMonthly && p.MonthlyBehavior == types.MonthlyBehaviorProrate {
		return true
	}
	return cfg.Subscription.IsTrialInclusive
}
