package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/responsiv/subscribe-plugin/internal/types"
)

// A paying subscriber cancels early. The service runs to the end of the paid
// term before the cancellation lands.
func TestWorkflow_Active_Cancelled(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	p := ts.createPlan(t, monthlySignupPlan())

	signup := ts.clock.Now()
	m, svc, invoice := ts.generatePaidMembership(t, p)

	assert.Equal(t, types.StatusActive, ts.statusCode(svc))
	assert.Equal(t, 1, svc.CountRenewal)
	assert.True(t, svc.IsActive)

	// 15 days later the subscriber cancels at term end.
	ts.workerProcess(t)
	ts.clock.AdvanceDays(15)
	ts.workerProcess(t)

	m, svc, invoice = ts.reload(t, m, svc, invoice)

	require.NoError(t, ts.lifecycle.CancelService(ctx, svc, "No good", CancelOptions{AtTermEnd: true}))

	require.NotNil(t, svc.DelayCancelledAt)
	assert.Equal(t, signup.AddDate(0, 1, 0), *svc.DelayCancelledAt)
	assert.Nil(t, svc.CancelledAt)

	// The next day nothing has changed.
	ts.clock.AdvanceDays(1)
	ts.workerProcess(t)

	m, svc, invoice = ts.reload(t, m, svc, invoice)
	assert.Equal(t, types.StatusActive, ts.statusCode(svc))
	assert.True(t, svc.IsActive)

	// Well past the term end the cancellation has landed.
	ts.clock.AdvanceMonths(15)
	ts.workerProcess(t)

	m, svc, invoice = ts.reload(t, m, svc, invoice)

	assert.Equal(t, types.StatusCancelled, ts.statusCode(svc))
	assert.False(t, svc.IsActive)
	assert.NotNil(t, svc.CancelledAt)
	assert.Nil(t, svc.CurrentPeriodEnd)
	assert.Empty(t, m.ActiveServiceID)
	_ = invoice
}

// Cancelling during grace takes effect immediately because the paid term is
// already over.
func TestWorkflow_Active_Grace_Cancelled(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	p := ts.createPlan(t, monthlySignupPlan())
	m, svc, invoice := ts.generatePaidMembership(t, p)

	ts.workerProcess(t)
	now := ts.clock.AdvanceDays(32)
	ts.workerProcess(t)
	ts.workerProcessBilling(t)

	m, svc, invoice = ts.reload(t, m, svc, invoice)

	assert.Len(t, ts.ledger.Invoices(), 2)
	assert.Equal(t, types.StatusGrace, ts.statusCode(svc))
	assert.True(t, svc.IsActive)

	require.NoError(t, ts.lifecycle.CancelService(ctx, svc, "No good", CancelOptions{AtTermEnd: true}))

	m, svc, invoice = ts.reload(t, m, svc, invoice)

	assert.Equal(t, types.StatusCancelled, ts.statusCode(svc))
	assert.True(t, svc.IsCancelled())
	assert.False(t, svc.IsActive)
	assert.Nil(t, svc.DelayCancelledAt)
	require.NotNil(t, svc.CancelledAt)
	assert.Equal(t, now, *svc.CancelledAt)

	// The outstanding renewal invoice was voided.
	unpaid, err := ts.ledger.ListUnpaidByRelated(ctx, types.ServiceRef(svc.ID))
	require.NoError(t, err)
	assert.Empty(t, unpaid)
	_ = m
	_ = invoice
}

// A future-dated cancellation only schedules itself.
func TestCancelServiceAtDate(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	p := ts.createPlan(t, monthlySignupPlan())
	_, svc, _ := ts.generatePaidMembership(t, p)

	at := ts.clock.Now().AddDate(0, 0, 10)
	require.NoError(t, ts.lifecycle.CancelService(ctx, svc, "Scheduled", CancelOptions{AtDate: &at}))

	assert.Equal(t, types.StatusActive, ts.statusCode(svc))
	require.NotNil(t, svc.DelayCancelledAt)
	assert.Equal(t, at, *svc.DelayCancelledAt)

	// Once the date passes the worker applies it.
	ts.clock.AdvanceDays(11)
	ts.workerProcess(t)

	reloaded, err := ts.services.Get(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, ts.statusCode(reloaded))
}
