package staff

import "context"

type Repository interface {
	Create(ctx context.Context, m *Member) error
	Get(ctx context.Context, id string) (*Member, error)
	// List filters by role when role is non-empty; activeOnly drops inactive members.
	List(ctx context.Context, role Role, activeOnly bool) ([]*Member, error)
	Update(ctx context.Context, m *Member) error
	Delete(ctx context.Context, id string) error
}
