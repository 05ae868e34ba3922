package testutil

import (
	"context"

	"github.com/responsiv/subscribe-plugin/internal/domain/dunning"
	ierr "github.com/responsiv/subscribe-plugin/internal/errors"
)

// InMemoryDunningStore implements dunning.Repository
type InMemoryDunningStore struct {
	*InMemoryStore[*dunning.DunningPlan]
}

func NewInMemoryDunningStore() *InMemoryDunningStore {
	return &InMemoryDunningStore{
		InMemoryStore: NewInMemoryStore[*dunning.DunningPlan](),
	}
}

func (s *InMemoryDunningStore) Create(ctx context.Context, p *dunning.DunningPlan) error {
	if p == nil {
		return ierr.NewError("dunning plan is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, p.ID, p)
}

func (s *InMemoryDunningStore) Get(ctx context.Context, id string) (*dunning.DunningPlan, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryDunningStore) List(ctx context.Context) ([]*dunning.DunningPlan, error) {
	return s.InMemoryStore.List(ctx), nil
}

func (s *InMemoryDunningStore) Update(ctx context.Context, p *dunning.DunningPlan) error {
	if p == nil {
		return ierr.NewError("dunning plan is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, p.ID, p)
}

func (s *InMemoryDunningStore) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}
