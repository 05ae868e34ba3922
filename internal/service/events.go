package service

import (
	"context"

	"github.com/responsiv/subscribe-plugin/internal/domain/subscription"
)

// Notification hook names fired by the lifecycle service.
const (
	EventServiceActivated       = "serviceActivated"
	EventServiceActivatedLater  = "serviceActivatedLater"
	EventMembershipTrialStarted = "membershipTrialStarted"
	EventMembershipGraceStarted = "membershipGraceStarted"
	EventServicePastDue         = "servicePastDue"
	EventServiceCancelled       = "serviceCancelled"
	EventServiceCompleted       = "serviceCompleted"
)

// Event is one fired notification, carrying the service it concerns.
type Event struct {
	Name    string
	Service *subscription.Service
}

// Listener receives lifecycle notifications. Fire-and-forget: return values
// are deliberately absent so listeners cannot affect the state machine.
type Listener func(ctx context.Context, event Event)

// BeforeTransitionHook can veto a status transition by returning false.
type BeforeTransitionHook func(ctx context.Context, service *subscription.Service, next *subscription.Status, previousStatusID string) bool

// Publisher is an explicit observer list. It replaces a global event bus so
// tests can assert exactly which notifications fired.
type Publisher struct {
	listeners   []Listener
	beforeHooks []BeforeTransitionHook
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

// Subscribe registers a notification listener.
func (p *Publisher) Subscribe(listener Listener) {
	p.listeners = append(p.listeners, listener)
}

// SubscribeBeforeTransition registers a cancelable transition hook.
func (p *Publisher) SubscribeBeforeTransition(hook BeforeTransitionHook) {
	p.beforeHooks = append(p.beforeHooks, hook)
}

// Fire delivers an event to every listener.
func (p *Publisher) Fire(ctx context.Context, name string, service *subscription.Service) {
	event := Event{Name: name, Service: service}
	for _, listener := range p.listeners {
		listener(ctx, event)
	}
}

// AllowTransition runs the before hooks; any false vetoes the transition.
func (p *Publisher) AllowTransition(ctx context.Context, service *subscription.Service, next *subscription.Status, previousStatusID string) bool {
	for _, hook := range p.beforeHooks {
		if !hook(ctx, service, next, previousStatusID) {
			return false
		}
	}
	return true
}
