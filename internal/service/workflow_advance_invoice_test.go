package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/responsiv/subscribe-plugin/internal/types"
)

// An invoice raised ahead of the period end and paid early rolls the paid
// term forward immediately.
func TestWorkflow_Active_Invoice_PayEarly(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	ts.params.Config.Subscription.InvoiceAdvanceDays = 7

	p := ts.createPlan(t, monthlySignupPlan())

	signup := ts.clock.Now()
	m, svc, invoice := ts.generatePaidMembership(t, p)

	assert.Equal(t, types.StatusActive, ts.statusCode(svc))

	// Day 15, outside the advance window.
	ts.clock.AdvanceDays(15)
	ts.workerProcess(t)
	assert.Len(t, ts.ledger.Invoices(), 1)

	// Day 25, inside the window: the renewal invoice appears early.
	ts.clock.AdvanceDays(10)
	ts.workerProcess(t)
	assert.Len(t, ts.ledger.Invoices(), 2)

	m, svc, invoice = ts.reload(t, m, svc, invoice)
	require.NotNil(t, svc.ServicePeriodEnd)
	assert.Equal(t, signup.AddDate(0, 1, 0), *svc.ServicePeriodEnd)

	hasUnpaid, err := ts.lifecycle.HasUnpaidInvoices(ctx, svc)
	require.NoError(t, err)
	assert.True(t, hasUnpaid)

	// The early invoice is due the day the paid term expires.
	outstanding, err := ts.invoices.RaiseServiceInvoice(ctx, svc)
	require.NoError(t, err)
	require.NotNil(t, outstanding.DueAt)
	assert.Equal(t, *svc.ServicePeriodEnd, *outstanding.DueAt)

	// Paying early advances the term now.
	require.NoError(t, ts.ledger.SubmitManualPayment(ctx, outstanding.ID, "Testing"))

	m, svc, invoice = ts.reload(t, m, svc, invoice)

	hasUnpaid, err = ts.lifecycle.HasUnpaidInvoices(ctx, svc)
	require.NoError(t, err)
	assert.False(t, hasUnpaid)
	assert.Equal(t, types.StatusActive, ts.statusCode(svc))
	assert.Equal(t, 2, svc.CountRenewal)
	assert.Equal(t, signup.AddDate(0, 2, 0), *svc.ServicePeriodEnd)
	_ = m
	_ = invoice
}

// The advance invoice goes unpaid and the service drops into grace after the
// period ends.
func TestWorkflow_Active_Invoice_PayLate(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	ts.params.Config.Subscription.InvoiceAdvanceDays = 7

	p := ts.createPlan(t, monthlySignupPlan())

	signup := ts.clock.Now()
	m, svc, invoice := ts.generatePaidMembership(t, p)

	ts.clock.AdvanceDays(15)
	ts.workerProcess(t)
	assert.Len(t, ts.ledger.Invoices(), 1)

	ts.clock.AdvanceDays(10)
	ts.workerProcess(t)
	assert.Len(t, ts.ledger.Invoices(), 2)

	// Into the next month without payment.
	ts.clock.AdvanceDays(10)
	ts.workerProcess(t)
	ts.workerProcessBilling(t)

	m, svc, invoice = ts.reload(t, m, svc, invoice)

	assert.Len(t, ts.ledger.Invoices(), 2)
	assert.Equal(t, types.StatusGrace, ts.statusCode(svc))
	assert.True(t, svc.IsActive)
	require.NotNil(t, svc.CurrentPeriodEnd)
	assert.Equal(t, signup.AddDate(0, 1, 14), *svc.CurrentPeriodEnd)

	hasUnpaid, err := ts.lifecycle.HasUnpaidInvoices(ctx, svc)
	require.NoError(t, err)
	assert.True(t, hasUnpaid)
	_ = m
	_ = invoice
}
