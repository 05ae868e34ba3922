package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/responsiv/subscribe-plugin/internal/types"
)

func TestWorkflow_Active_FromSignup(t *testing.T) {
	ts := newTestStack(t)

	p := monthlySignupPlan()
	p.Price = decimal.NewFromInt(100)
	ts.createPlan(t, p)

	signup := ts.clock.Now()
	m, svc, invoice := ts.generatePaidMembership(t, p)

	assert.Equal(t, types.StatusActive, ts.statusCode(svc))
	require.NotNil(t, svc.ServicePeriodStart)
	require.NotNil(t, svc.ServicePeriodEnd)
	assert.Equal(t, signup, *svc.ServicePeriodStart)
	assert.Equal(t, signup.AddDate(0, 1, 0), *svc.ServicePeriodEnd)
	assert.True(t, invoice.Total.Equal(decimal.NewFromInt(100)))
	_ = m
}

// The first prorated invoice covers signup to the anchor day; the renewal
// invoice goes back to the full price.
func TestWorkflow_Active_Prorated(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	signup := ts.clock.Now()

	p := monthlySignupPlan()
	p.MonthlyBehavior = types.MonthlyBehaviorProrate
	p.MonthDay = signup.AddDate(0, 0, 10).Day()
	p.Price = decimal.NewFromInt(100)
	ts.createPlan(t, p)

	m, svc, invoice := ts.generatePaidMembership(t, p)

	expectedPrice := p.AdjustPrice(decimal.NewFromInt(100), signup)

	assert.Equal(t, 1, svc.CountRenewal)
	assert.Len(t, ts.ledger.Invoices(), 1)
	require.NotNil(t, svc.ServicePeriodStart)
	require.NotNil(t, svc.ServicePeriodEnd)
	assert.Equal(t, signup, *svc.ServicePeriodStart)
	assert.Equal(t, signup.AddDate(0, 0, 10), *svc.ServicePeriodEnd)
	assert.True(t, invoice.Total.Equal(expectedPrice),
		"total %s, expected %s", invoice.Total, expectedPrice)

	// Bump past the anchor day, raise the next invoice.
	ts.workerProcess(t)
	ts.clock.AdvanceDays(11)
	ts.workerProcess(t)
	ts.workerProcessBilling(t)

	m, svc, invoice = ts.reload(t, m, svc, invoice)

	// Next invoice is back to the full price.
	next, err := ts.invoices.RaiseServiceInvoice(ctx, svc)
	require.NoError(t, err)
	assert.Len(t, ts.ledger.Invoices(), 2)
	assert.Equal(t, types.InvoiceStatusApproved, next.Status)
	assert.True(t, next.Total.Equal(decimal.NewFromInt(100)),
		"total %s, expected 100", next.Total)
	_ = m
	_ = invoice
}

// A trial window that outlives the anchor day pushes the first paid period
// out to the following month's anchor.
func TestWorkflow_Trial_Active_ProratedAcrossAnchor(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()
	ts.params.Config.Subscription.IsTrialInclusive = false

	signup := ts.clock.Now()

	p := monthlySignupPlan()
	p.MonthlyBehavior = types.MonthlyBehaviorProrate
	p.MonthDay = signup.AddDate(0, 0, 10).Day()
	p.TrialDays = intPtr(14)
	p.Price = decimal.NewFromInt(100)
	ts.createPlan(t, p)

	m, svc, invoice := ts.generateMembership(t, p)

	assert.Equal(t, types.StatusTrial, ts.statusCode(svc))
	assert.True(t, svc.IsActive)
	require.NotNil(t, svc.CurrentPeriodEnd)
	assert.Equal(t, signup.AddDate(0, 0, 14), *svc.CurrentPeriodEnd)

	now := ts.clock.AdvanceDays(5)

	require.NoError(t, ts.ledger.SubmitManualPayment(ctx, invoice.ID, "Testing"))

	m, svc, invoice = ts.reload(t, m, svc, invoice)

	expectedPrice := p.AdjustPrice(decimal.NewFromInt(100), now.AddDate(0, 0, 9))

	assert.Len(t, ts.ledger.Invoices(), 1)
	assert.True(t, invoice.Total.Equal(expectedPrice),
		"total %s, expected %s", invoice.Total, expectedPrice)

	// The paid period runs from the trial end to the next anchor day.
	require.NotNil(t, svc.ServicePeriodEnd)
	assert.Equal(t, now.AddDate(0, 1, 5), *svc.ServicePeriodEnd)
	_ = m
}
