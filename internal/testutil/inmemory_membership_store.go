package testutil

import (
	"context"
	"time"

	"github.com/responsiv/subscribe-plugin/internal/domain/membership"
	ierr "github.com/responsiv/subscribe-plugin/internal/errors"
)

// InMemoryMembershipStore implements membership.Repository
type InMemoryMembershipStore struct {
	*InMemoryStore[*membership.Membership]
}

func NewInMemoryMembershipStore() *InMemoryMembershipStore {
	return &InMemoryMembershipStore{
		InMemoryStore: NewInMemoryStore[*membership.Membership](),
	}
}

func (s *InMemoryMembershipStore) Create(ctx context.Context, m *membership.Membership) error {
	if m == nil {
		return ierr.NewError("membership is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, m.ID, m)
}

func (s *InMemoryMembershipStore) Get(ctx context.Context, id string) (*membership.Membership, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryMembershipStore) GetByUser(ctx context.Context, userID string, isThrowaway bool) (*membership.Membership, error) {
	for _, m := range s.InMemoryStore.List(ctx) {
		if m.UserID == userID && m.IsThrowaway == isThrowaway {
			return m, nil
		}
	}
	return nil, ierr.NewErrorf("membership for user %s not found", userID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryMembershipStore) Update(ctx context.Context, m *membership.Membership) error {
	if m == nil {
		return ierr.NewError("membership is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, m.ID, m)
}

func (s *InMemoryMembershipStore) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemoryMembershipStore) ListProcessable(ctx context.Context, cutoff time.Time, limit int) ([]*membership.Membership, error) {
	var result []*membership.Membership
	for _, m := range s.InMemoryStore.List(ctx) {
		if m.LastProcessAt != nil && !m.LastProcessAt.Before(cutoff) {
			continue
		}
		result = append(result, m)
	}

	// Oldest sweep first, never-swept memberships ahead of the rest.
	for i := 1; i < len(result); i++ {
		for j := i; j > 0 && processBefore(result[j], result[j-1]); j-- {
			result[j], result[j-1] = result[j-1], result[j]
		}
	}

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func processBefore(a, b *membership.Membership) bool {
	if a.LastProcessAt == nil {
		return b.LastProcessAt != nil
	}
	if b.LastProcessAt == nil {
		return false
	}
	return a.LastProcessAt.Before(*b.LastProcessAt)
}

func (s *InMemoryMembershipStore) UpdateLastProcessAt(ctx context.Context, id string, at time.Time) error {
	m, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}
	stamped := at
	m.LastProcessAt = &stamped
	return s.InMemoryStore.Update(ctx, id, m)
}
