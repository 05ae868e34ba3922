package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/responsiv/subscribe-plugin/internal/domain/subscription"
	"github.com/responsiv/subscribe-plugin/internal/testutil"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

func TestLifecycleNotifications(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	recorder := testutil.NewEventRecorder()
	ts.params.Events.Subscribe(func(ctx context.Context, event Event) {
		recorder.Record(event.Name)
	})

	p := ts.createPlan(t, monthlySignupPlan())
	_, svc, _ := ts.generatePaidMembership(t, p)

	assert.Contains(t, recorder.Names(), EventServiceActivated)

	recorder.Reset()
	require.NoError(t, ts.lifecycle.CancelServiceNow(ctx, svc, "Testing"))
	assert.Equal(t, []string{EventServiceCancelled}, recorder.Names())
}

func TestTrialNotification(t *testing.T) {
	ts := newTestStack(t)

	recorder := testutil.NewEventRecorder()
	ts.params.Events.Subscribe(func(ctx context.Context, event Event) {
		recorder.Record(event.Name)
	})

	p := monthlySignupPlan()
	p.TrialDays = intPtr(7)
	ts.createPlan(t, p)

	ts.generateMembership(t, p)

	assert.Equal(t, []string{EventMembershipTrialStarted}, recorder.Names())
}

// A before hook returning false blocks the transition without error.
func TestBeforeTransitionVeto(t *testing.T) {
	ts := newTestStack(t)
	ctx := context.Background()

	p := ts.createPlan(t, monthlySignupPlan())
	_, svc, _ := ts.generatePaidMembership(t, p)

	ts.params.Events.SubscribeBeforeTransition(func(ctx context.Context, service *subscription.Service, next *subscription.Status, previousStatusID string) bool {
		return false
	})

	changed, err := ts.lifecycle.Transition(ctx, svc, types.StatusGrace, "Testing")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, types.StatusActive, ts.statusCode(svc))
}
