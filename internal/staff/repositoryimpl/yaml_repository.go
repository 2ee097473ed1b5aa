package repositoryimpl

import (
	"context"
	"sort"

	"github.com/kazz187/labtrack/internal/staff"
	"github.com/kazz187/labtrack/pkg/docstore"
	"github.com/kazz187/labtrack/pkg/storage"
)

const staffPrefix = "staff"

type YAMLRepository struct {
	docs *docstore.Collection[staff.Member]
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		docs: docstore.NewCollection(s, staffPrefix, "staff member", func(m *staff.Member) string { return m.ID }),
	}
}

func (r *YAMLRepository) Create(ctx context.Context, m *staff.Member) error {
	return r.docs.Create(ctx, m)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*staff.Member, error) {
	return r.docs.Get(ctx, id)
}

func (r *YAMLRepository) List(ctx context.Context, role staff.Role, activeOnly bool) ([]*staff.Member, error) {
	all, err := r.docs.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*staff.Member, 0, len(all))
	for _, m := range all {
		if role != "" && m.Role != role {
			continue
		}
		if activeOnly && !m.Active {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *YAMLRepository) Update(ctx context.Context, m *staff.Member) error {
	return r.docs.Update(ctx, m)
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	return r.docs.Delete(ctx, id)
}
