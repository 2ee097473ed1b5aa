package pushsubscription

import (
	"context"

	"github.com/kazz187/labtrack/internal/checklist"
)

type Repository interface {
	Create(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	Update(ctx context.Context, s *Subscription) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Subscription, error)
	// ListByUser returns the subscriptions one user registered.
	ListByUser(ctx context.Context, userID string) ([]*Subscription, error)
	// ListWanting returns the subscriptions alerted about status.
	ListWanting(ctx context.Context, status checklist.Status) ([]*Subscription, error)
	FindByEndpoint(ctx context.Context, endpoint string) (*Subscription, error)
}
