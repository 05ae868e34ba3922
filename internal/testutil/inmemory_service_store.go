package testutil

import (
	"context"
	"time"

	"github.com/responsiv/subscribe-plugin/internal/domain/subscription"
	ierr "github.com/responsiv/subscribe-plugin/internal/errors"
)

// InMemoryServiceStore implements subscription.Repository
type InMemoryServiceStore struct {
	*InMemoryStore[*subscription.Service]
}

func NewInMemoryServiceStore() *InMemoryServiceStore {
	return &InMemoryServiceStore{
		InMemoryStore: NewInMemoryStore[*subscription.Service](),
	}
}

func (s *InMemoryServiceStore) Create(ctx context.Context, svc *subscription.Service) error {
	if svc == nil {
		return ierr.NewError("service is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, svc.ID, svc)
}

func (s *InMemoryServiceStore) Get(ctx context.Context, id string) (*subscription.Service, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryServiceStore) Update(ctx context.Context, svc *subscription.Service) error {
	if svc == nil {
		return ierr.NewError("service is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, svc.ID, svc)
}

func (s *InMemoryServiceStore) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemoryServiceStore) FindByMembershipAndPlan(ctx context.Context, membershipID, planID string, isThrowaway bool) (*subscription.Service, error) {
	for _, svc := range s.InMemoryStore.List(ctx) {
		if svc.MembershipID == membershipID &&
			svc.PlanID == planID &&
			svc.IsThrowaway == isThrowaway {
			return svc, nil
		}
	}
	return nil, ierr.NewError("service not found").Mark(ierr.ErrNotFound)
}

func (s *InMemoryServiceStore) ListByMembership(ctx context.Context, membershipID string) ([]*subscription.Service, error) {
	var result []*subscription.Service
	for _, svc := range s.InMemoryStore.List(ctx) {
		if svc.MembershipID == membershipID {
			result = append(result, svc)
		}
	}
	return result, nil
}

func (s *InMemoryServiceStore) UpdateStatus(ctx context.Context, serviceID, statusID string, at time.Time) error {
	svc, err := s.InMemoryStore.Get(ctx, serviceID)
	if err != nil {
		return err
	}
	stamped := at
	svc.StatusID = statusID
	svc.StatusUpdatedAt = &stamped
	return s.InMemoryStore.Update(ctx, serviceID, svc)
}

func (s *InMemoryServiceStore) ListAutoBillingCandidates(ctx context.Context, statusID string, cutoff time.Time, limit int) ([]*subscription.Service, error) {
	var result []*subscription.Service
	for _, svc := range s.InMemoryStore.List(ctx) {
		if svc.StatusID != statusID {
			continue
		}
		if svc.ServicePeriodEnd == nil || svc.ServicePeriodEnd.After(cutoff) {
			continue
		}
		result = append(result, svc)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// InMemoryStatusLogStore implements subscription.StatusLogRepository
type InMemoryStatusLogStore struct {
	*InMemoryStore[*subscription.StatusLog]
}

func NewInMemoryStatusLogStore() *InMemoryStatusLogStore {
	return &InMemoryStatusLogStore{
		InMemoryStore: NewInMemoryStore[*subscription.StatusLog](),
	}
}

func (s *InMemoryStatusLogStore) Create(ctx context.Context, log *subscription.StatusLog) error {
	if log == nil {
		return ierr.NewError("status log is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, log.ID, log)
}

func (s *InMemoryStatusLogStore) ListByService(ctx context.Context, serviceID string) ([]*subscription.StatusLog, error) {
	var result []*subscription.StatusLog
	for _, log := range s.InMemoryStore.List(ctx) {
		if log.ServiceID == serviceID {
			result = append(result, log)
		}
	}
	return result, nil
}
