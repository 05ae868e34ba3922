package dunning

import "context"

// Repository provides access to dunning plan storage
type Repository interface {
	Create(ctx context.Context, plan *DunningPlan) error
	Get(ctx context.Context, id string) (*DunningPlan, error)
	List(ctx context.Context) ([]*DunningPlan, error)
	Update(ctx context.Context, plan *DunningPlan) error
	Delete(ctx context.Context, id string) error
}
