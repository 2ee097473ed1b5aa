package provider

import (
	"context"

	"github.com/kazz187/labtrack/pkg/date"
)

type Repository interface {
	Create(ctx context.Context, a *Assignment) error
	Get(ctx context.Context, id string) (*Assignment, error)
	// List returns assignments with from <= Date <= to; zero bounds are open.
	List(ctx context.Context, from, to date.Date) ([]*Assignment, error)
	Update(ctx context.Context, a *Assignment) error
	Delete(ctx context.Context, id string) error
}
