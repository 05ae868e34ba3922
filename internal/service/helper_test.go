package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/responsiv/subscribe-plugin/internal/config"
	"github.com/responsiv/subscribe-plugin/internal/domain/ledger"
	"github.com/responsiv/subscribe-plugin/internal/domain/membership"
	"github.com/responsiv/subscribe-plugin/internal/domain/plan"
	"github.com/responsiv/subscribe-plugin/internal/domain/subscription"
	"github.com/responsiv/subscribe-plugin/internal/logger"
	"github.com/responsiv/subscribe-plugin/internal/testutil"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

// testStack wires the full service layer against in-memory stores with a
// settable clock.
type testStack struct {
	params ServiceParams

	clock  *testutil.Clock
	ledger *testutil.InMemoryLedger

	plans       *testutil.InMemoryPlanStore
	memberships *testutil.InMemoryMembershipStore
	services    *testutil.InMemoryServiceStore
	statusLogs  *testutil.InMemoryStatusLogStore
	dunnings    *testutil.InMemoryDunningStore

	membershipService MembershipService
	lifecycle         LifecycleService
	invoices          InvoiceService
	engine            Engine
	worker            Worker
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	clock := testutil.NewClock(time.Date(2017, 10, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.GetDefaultConfig()

	stack := &testStack{
		clock:       clock,
		ledger:      testutil.NewInMemoryLedger(clock),
		plans:       testutil.NewInMemoryPlanStore(),
		memberships: testutil.NewInMemoryMembershipStore(),
		services:    testutil.NewInMemoryServiceStore(),
		statusLogs:  testutil.NewInMemoryStatusLogStore(),
		dunnings:    testutil.NewInMemoryDunningStore(),
	}

	stack.params = ServiceParams{
		Logger:         logger.GetLogger(),
		Config:         cfg,
		Clock:          clock,
		Events:         NewPublisher(),
		PlanRepo:       stack.plans,
		MembershipRepo: stack.memberships,
		ServiceRepo:    stack.services,
		StatusLogRepo:  stack.statusLogs,
		DunningRepo:    stack.dunnings,
		Statuses:       subscription.SeedStatuses(),
		Ledger:         stack.ledger,
	}

	stack.membershipService = NewMembershipService(stack.params)
	stack.lifecycle = NewLifecycleService(stack.params)
	stack.invoices = NewInvoiceService(stack.params)
	stack.engine = NewEngine(stack.params)
	stack.worker = NewWorker(stack.params)

	stack.engine.Register()

	return stack
}

func (ts *testStack) createPlan(t *testing.T, p *plan.Plan) *plan.Plan {
	t.Helper()
	if p.ID == "" {
		p.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN)
	}
	p.BaseModel = types.NewBaseModel(ts.clock.Now())
	require.NoError(t, ts.plans.Create(context.Background(), p))
	return p
}

// monthlySignupPlan mirrors the stock testing plan: 10.00 a month, no trial,
// 14 day grace.
func monthlySignupPlan() *plan.Plan {
	return &plan.Plan{
		Code:            "testing",
		Name:            "Testing",
		Price:           decimal.NewFromInt(10),
		TrialDays:       intPtr(0),
		GraceDays:       intPtr(14),
		PlanType:        types.PlanTypeMonthly,
		MonthInterval:   1,
		MonthlyBehavior: types.MonthlyBehaviorSignup,
	}
}

func intPtr(v int) *int {
	return &v
}

// generateMembership signs a user up to the plan and returns the unpaid
// first invoice alongside the created records.
func (ts *testStack) generateMembership(t *testing.T, p *plan.Plan) (*membership.Membership, *subscription.Service, *ledger.Invoice) {
	t.Helper()

	m, svc, err := ts.membershipService.CreateForUser(context.Background(), "user_1", p, false)
	require.NoError(t, err)
	require.NotNil(t, svc)

	invoice, err := ts.ledger.Get(context.Background(), svc.FirstInvoiceID)
	require.NoError(t, err)

	return m, svc, invoice
}

// generatePaidMembership signs up and settles the first invoice.
func (ts *testStack) generatePaidMembership(t *testing.T, p *plan.Plan) (*membership.Membership, *subscription.Service, *ledger.Invoice) {
	t.Helper()

	m, svc, invoice := ts.generateMembership(t, p)
	require.NoError(t, ts.ledger.SubmitManualPayment(context.Background(), invoice.ID, "Testing"))

	return ts.reload(t, m, svc, invoice)
}

func (ts *testStack) reload(t *testing.T, m *membership.Membership, svc *subscription.Service, invoice *ledger.Invoice) (*membership.Membership, *subscription.Service, *ledger.Invoice) {
	t.Helper()

	reloadedMembership, err := ts.memberships.Get(context.Background(), m.ID)
	require.NoError(t, err)
	reloadedService, err := ts.services.Get(context.Background(), svc.ID)
	require.NoError(t, err)
	reloadedInvoice, err := ts.ledger.Get(context.Background(), invoice.ID)
	require.NoError(t, err)

	return reloadedMembership, reloadedService, reloadedInvoice
}

func (ts *testStack) statusCode(svc *subscription.Service) types.StatusCode {
	return ts.params.Statuses.CodeOf(svc)
}

func (ts *testStack) resetProcessedAt(t *testing.T, m *membership.Membership) {
	t.Helper()
	past := ts.clock.Now().Add(-24 * time.Hour)
	require.NoError(t, ts.memberships.UpdateLastProcessAt(context.Background(), m.ID, past))
}

func (ts *testStack) workerProcess(t *testing.T) {
	t.Helper()
	require.Equal(t,
		"Processed services for 1 membership(s)",
		ts.worker.Process(context.Background(), PhaseMemberships),
	)
}

func (ts *testStack) workerProcessBilling(t *testing.T) {
	t.Helper()
	require.Equal(t,
		"Processed billing for 1 membership(s)",
		ts.worker.Process(context.Background(), PhaseAutoBilling),
	)
}
