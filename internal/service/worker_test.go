package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/responsiv/subscribe-plugin/internal/testutil"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

func TestWorkerIdle(t *testing.T) {
	ts := newTestStack(t)

	assert.Equal(t, "There are no outstanding activities to perform.",
		ts.worker.Process(context.Background()))
}

func TestWorkerUnknownPhase(t *testing.T) {
	ts := newTestStack(t)

	assert.Equal(t, "There are no outstanding activities to perform.",
		ts.worker.Process(context.Background(), "bogus"))
}

// A run stops after its first activity so a busy system drains gradually.
func TestWorkerOneActivityPerRun(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	p := ts.createPlan(t, monthlySignupPlan())
	m, svc, invoice := ts.generatePaidMembership(t, p)

	ts.clock.AdvanceMonths(1)
	ts.clock.AdvanceDays(2)

	// The membership sweep raises the renewal invoice and ends the run
	// before billing gets a turn.
	assert.Equal(t, "Processed services for 1 membership(s)",
		ts.worker.Process(ctx, PhaseMemberships, PhaseAutoBilling))

	m, svc, invoice = ts.reload(t, m, svc, invoice)
	assert.Equal(t, types.StatusActive, ts.statusCode(svc))

	hasUnpaid, err := ts.lifecycle.HasUnpaidInvoices(ctx, svc)
	require.NoError(t, err)
	assert.True(t, hasUnpaid)

	// The next run skips the freshly stamped membership and reaches billing.
	assert.Equal(t, "Processed billing for 1 membership(s)",
		ts.worker.Process(ctx, PhaseMemberships, PhaseAutoBilling))

	m, svc, invoice = ts.reload(t, m, svc, invoice)
	assert.Equal(t, types.StatusGrace, ts.statusCode(svc))
	_ = m
	_ = invoice
}

// Memberships swept within the staleness window are left alone until the
// window passes or the stamp is reset.
func TestWorkerStalenessWindow(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	p := ts.createPlan(t, monthlySignupPlan())
	m, _, _ := ts.generatePaidMembership(t, p)

	ts.workerProcess(t)

	assert.Equal(t, "There are no outstanding activities to perform.",
		ts.worker.Process(ctx, PhaseMemberships))

	ts.resetProcessedAt(t, m)
	ts.workerProcess(t)
}

// A plan with a renewal limit completes once the service has renewed that
// many times.
func TestWorkerRenewalPeriodCompletes(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	p := monthlySignupPlan()
	p.RenewalPeriod = 1
	ts.createPlan(t, p)

	m, svc, invoice := ts.generatePaidMembership(t, p)
	assert.Equal(t, 1, svc.CountRenewal)

	ts.clock.AdvanceDays(1)
	ts.workerProcess(t)

	m, svc, invoice = ts.reload(t, m, svc, invoice)

	assert.Equal(t, types.StatusComplete, ts.statusCode(svc))
	assert.False(t, svc.IsActive)
	assert.Nil(t, svc.ServicePeriodStart)
	assert.Nil(t, svc.ServicePeriodEnd)
	require.NotNil(t, svc.ExpiredAt)
	assert.Empty(t, m.ActiveServiceID)

	logs, err := ts.statusLogs.ListByService(ctx, svc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, "Renewal period reached", logs[len(logs)-1].Comment)
	_ = invoice
}

// A completed service is left alone by later sweeps.
func TestWorkerCompletedServiceUntouched(t *testing.T) {
	ts := newTestStack(t)

	p := monthlySignupPlan()
	p.RenewalPeriod = 1
	ts.createPlan(t, p)

	m, svc, invoice := ts.generatePaidMembership(t, p)

	ts.clock.AdvanceDays(1)
	ts.workerProcess(t)

	m, svc, invoice = ts.reload(t, m, svc, invoice)
	require.Equal(t, types.StatusComplete, ts.statusCode(svc))
	require.NotNil(t, svc.ExpiredAt)
	expiredAt := *svc.ExpiredAt

	recorder := testutil.NewEventRecorder()
	ts.params.Events.Subscribe(func(ctx context.Context, event Event) {
		recorder.Record(event.Name)
	})

	ts.clock.AdvanceDays(1)
	ts.resetProcessedAt(t, m)
	ts.workerProcess(t)

	m, svc, invoice = ts.reload(t, m, svc, invoice)
	assert.Equal(t, types.StatusComplete, ts.statusCode(svc))
	require.NotNil(t, svc.ExpiredAt)
	assert.Equal(t, expiredAt, *svc.ExpiredAt)
	assert.Empty(t, recorder.Names())
	_ = invoice
}

func TestWorkerConcurrentRuns(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "There are no outstanding activities to perform.",
				ts.worker.Process(ctx))
		}()
	}
	wg.Wait()
}
