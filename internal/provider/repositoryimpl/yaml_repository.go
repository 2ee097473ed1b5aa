package repositoryimpl

import (
	"context"
	"sort"

	"github.com/kazz187/labtrack/internal/provider"
	"github.com/kazz187/labtrack/pkg/date"
	"github.com/kazz187/labtrack/pkg/docstore"
	"github.com/kazz187/labtrack/pkg/storage"
)

const assignmentsPrefix = "provider_assignments"

var shiftOrder = map[provider.Shift]int{
	provider.ShiftDay:     0,
	provider.ShiftNight:   1,
	provider.ShiftWeekend: 2,
}

type YAMLRepository struct {
	docs *docstore.Collection[provider.Assignment]
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		docs: docstore.NewCollection(s, assignmentsPrefix, "provider assignment", func(a *provider.Assignment) string { return a.ID }),
	}
}

func (r *YAMLRepository) Create(ctx context.Context, a *provider.Assignment) error {
	return r.docs.Create(ctx, a)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*provider.Assignment, error) {
	return r.docs.Get(ctx, id)
}

func (r *YAMLRepository) List(ctx context.Context, from, to date.Date) ([]*provider.Assignment, error) {
	all, err := r.docs.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*provider.Assignment, 0, len(all))
	for _, a := range all {
		if a.Date.Within(from, to) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return shiftOrder[out[i].Shift] < shiftOrder[out[j].Shift]
	})
	return out, nil
}

func (r *YAMLRepository) Update(ctx context.Context, a *provider.Assignment) error {
	return r.docs.Update(ctx, a)
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	return r.docs.Delete(ctx, id)
}
