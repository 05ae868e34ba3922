package membership

import (
	"context"
	"time"
)

// Repository provides access to membership storage
type Repository interface {
	Create(ctx context.Context, membership *Membership) error
	Get(ctx context.Context, id string) (*Membership, error)
	GetByUser(ctx context.Context, userID string, isThrowaway bool) (*Membership, error)
	Update(ctx context.Context, membership *Membership) error
	Delete(ctx context.Context, id string) error

	// ListProcessable returns up to limit memberships whose last_process_at
	// is null or before the cutoff, oldest first.
	ListProcessable(ctx context.Context, cutoff time.Time, limit int) ([]*Membership, error)

	// UpdateLastProcessAt stamps last_process_at directly, without touching
	// the updated_at timestamp.
	UpdateLastProcessAt(ctx context.Context, id string, at time.Time) error
}
