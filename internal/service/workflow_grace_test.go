package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/responsiv/subscribe-plugin/internal/types"
)

// A paid membership cannot be billed automatically, then is paid manually
// during the grace period.
func TestWorkflow_Active_Grace_Active(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	p := ts.createPlan(t, monthlySignupPlan())
	m, svc, invoice := ts.generatePaidMembership(t, p)

	assert.True(t, invoice.IsPaid())
	assert.Equal(t, types.StatusActive, ts.statusCode(svc))
	assert.Equal(t, 1, svc.CountRenewal)
	assert.True(t, svc.IsActive)

	// Period runs out without payment.
	ts.workerProcess(t)
	ts.clock.AdvanceDays(32)
	ts.workerProcess(t)
	ts.workerProcessBilling(t)

	m, svc, invoice = ts.reload(t, m, svc, invoice)

	assert.Len(t, ts.ledger.Invoices(), 2)
	assert.Equal(t, types.StatusGrace, ts.statusCode(svc))
	assert.True(t, svc.IsActive)
	assert.Equal(t, 1, svc.CountFail)

	// Pay the outstanding invoice.
	outstanding, err := ts.invoices.RaiseServiceInvoice(ctx, svc)
	require.NoError(t, err)
	assert.True(t, outstanding.IsUnpaid())

	require.NoError(t, ts.ledger.SubmitManualPayment(ctx, outstanding.ID, "Testing"))

	m, svc, invoice = ts.reload(t, m, svc, invoice)

	assert.Equal(t, types.StatusActive, ts.statusCode(svc))
	assert.Equal(t, 2, svc.CountRenewal)
	assert.True(t, svc.IsActive)
	_ = m
}

// The grace period lapses without payment and the service falls past due.
func TestWorkflow_Active_Grace_PastDue(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	p := ts.createPlan(t, monthlySignupPlan())
	m, svc, invoice := ts.generatePaidMembership(t, p)

	assert.Equal(t, types.StatusActive, ts.statusCode(svc))

	ts.workerProcess(t)
	ts.clock.AdvanceMonths(1)
	ts.workerProcess(t)

	hasUnpaid, err := ts.lifecycle.HasUnpaidInvoices(ctx, svc)
	require.NoError(t, err)
	assert.True(t, hasUnpaid)
	assert.Len(t, ts.ledger.Invoices(), 2)

	ts.workerProcessBilling(t)

	m, svc, invoice = ts.reload(t, m, svc, invoice)

	assert.Equal(t, types.StatusGrace, ts.statusCode(svc))
	assert.True(t, svc.IsActive)

	// 14 day grace runs out.
	ts.clock.AdvanceDays(15)
	ts.workerProcess(t)

	m, svc, invoice = ts.reload(t, m, svc, invoice)

	assert.Equal(t, types.StatusPastDue, ts.statusCode(svc))
	assert.False(t, svc.IsActive)
	assert.NotNil(t, svc.CancelledAt)

	// The outstanding invoice was voided.
	unpaid, err := ts.ledger.ListUnpaidByRelated(ctx, types.ServiceRef(svc.ID))
	require.NoError(t, err)
	assert.Empty(t, unpaid)
	_ = m
}

// A grace period longer than the subscription period keeps the subscriber in
// grace after each payment until they catch up.
func TestWorkflow_Active_Grace_Grace(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	p := monthlySignupPlan()
	p.GraceDays = intPtr(90)
	ts.createPlan(t, p)

	signup := ts.clock.Now()
	m, svc, invoice := ts.generatePaidMembership(t, p)

	// Let the first period run out unpaid.
	ts.clock.AdvanceMonths(1)
	ts.workerProcess(t)
	ts.workerProcessBilling(t)

	m, svc, invoice = ts.reload(t, m, svc, invoice)

	assert.Equal(t, types.StatusGrace, ts.statusCode(svc))
	assert.Equal(t, 1, svc.CountRenewal)
	assert.True(t, svc.IsActive)
	require.NotNil(t, svc.ServicePeriodEnd)
	assert.Equal(t, signup.AddDate(0, 1, 0), *svc.ServicePeriodEnd)
	assert.Equal(t, signup.AddDate(0, 1, 90), *svc.CurrentPeriodEnd)

	// Two more service periods pass inside the grace window.
	ts.clock.AdvanceDays(62)
	ts.workerProcess(t)

	m, svc, invoice = ts.reload(t, m, svc, invoice)
	assert.Equal(t, types.StatusGrace, ts.statusCode(svc))
	assert.True(t, svc.IsActive)

	// Each payment advances one period; the paid term is still behind, so
	// the service stays in grace with a reset window.
	outstanding, err := ts.invoices.RaiseServiceInvoice(ctx, svc)
	require.NoError(t, err)
	require.NoError(t, ts.ledger.SubmitManualPayment(ctx, outstanding.ID, "Testing"))

	m, svc, invoice = ts.reload(t, m, svc, invoice)
	assert.Equal(t, types.StatusGrace, ts.statusCode(svc))
	assert.Equal(t, 2, svc.CountRenewal)
	assert.True(t, svc.IsActive)
	assert.Equal(t, signup.AddDate(0, 2, 0), *svc.ServicePeriodEnd)
	assert.Equal(t, signup.AddDate(0, 2, 90), *svc.CurrentPeriodEnd)

	outstanding, err = ts.invoices.RaiseServiceInvoice(ctx, svc)
	require.NoError(t, err)
	require.NoError(t, ts.ledger.SubmitManualPayment(ctx, outstanding.ID, "Testing"))

	m, svc, invoice = ts.reload(t, m, svc, invoice)
	assert.Equal(t, types.StatusGrace, ts.statusCode(svc))
	assert.Equal(t, 3, svc.CountRenewal)
	assert.Equal(t, signup.AddDate(0, 3, 0), *svc.ServicePeriodEnd)
	assert.Equal(t, signup.AddDate(0, 3, 90), *svc.CurrentPeriodEnd)

	// The final payment brings the paid term past now; back to active.
	outstanding, err = ts.invoices.RaiseServiceInvoice(ctx, svc)
	require.NoError(t, err)
	require.NoError(t, ts.ledger.SubmitManualPayment(ctx, outstanding.ID, "Testing"))

	m, svc, invoice = ts.reload(t, m, svc, invoice)
	assert.Equal(t, types.StatusActive, ts.statusCode(svc))
	assert.Equal(t, 4, svc.CountRenewal)
	assert.True(t, svc.IsActive)
	assert.Equal(t, signup.AddDate(0, 4, 0), *svc.ServicePeriodEnd)
	assert.Equal(t, signup.AddDate(0, 4, 0), *svc.CurrentPeriodEnd)
	_ = m
	_ = invoice
}
