package subscription

import (
	"context"
	"time"
)

// Repository provides access to service storage
type Repository interface {
	Create(ctx context.Context, service *Service) error
	Get(ctx context.Context, id string) (*Service, error)
	Update(ctx context.Context, service *Service) error
	Delete(ctx context.Context, id string) error

	// FindByMembershipAndPlan returns the existing service for the tuple, or
	// a not-found error. Used for throwaway dedup at creation.
	FindByMembershipAndPlan(ctx context.Context, membershipID, planID string, isThrowaway bool) (*Service, error)

	// ListByMembership returns every service of a membership, oldest first.
	ListByMembership(ctx context.Context, membershipID string) ([]*Service, error)

	// UpdateStatus persists only status_id and status_updated_at, bypassing
	// full-model save side effects.
	UpdateStatus(ctx context.Context, serviceID, statusID string, at time.Time) error

	// ListAutoBillingCandidates returns up to limit services in the given
	// status whose service_period_end is at or before the cutoff.
	ListAutoBillingCandidates(ctx context.Context, statusID string, cutoff time.Time, limit int) ([]*Service, error)
}

// StatusLogRepository provides access to the append-only transition log
type StatusLogRepository interface {
	Create(ctx context.Context, log *StatusLog) error
	ListByService(ctx context.Context, serviceID string) ([]*StatusLog, error)
}
