package service

import (
	"github.com/responsiv/subscribe-plugin/internal/config"
	"github.com/responsiv/subscribe-plugin/internal/domain/dunning"
	"github.com/responsiv/subscribe-plugin/internal/domain/ledger"
	"github.com/responsiv/subscribe-plugin/internal/domain/membership"
	"github.com/responsiv/subscribe-plugin/internal/domain/plan"
	"github.com/responsiv/subscribe-plugin/internal/domain/subscription"
	"github.com/responsiv/subscribe-plugin/internal/logger"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

// ServiceParams bundles the dependencies shared by every service. Services
// embed it and pick what they need, so wiring stays in one place.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Clock  types.Clock
	Events *Publisher

	PlanRepo       plan.Repository
	MembershipRepo membership.Repository
	ServiceRepo    subscription.Repository
	StatusLogRepo  subscription.StatusLogRepository
	DunningRepo    dunning.Repository
	Statuses       *subscription.StatusSet

	Ledger ledger.Ledger
}
