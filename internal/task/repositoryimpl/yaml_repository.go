package repositoryimpl

import (
	"context"
	"sort"

	"github.com/kazz187/labtrack/internal/task"
	"github.com/kazz187/labtrack/pkg/docstore"
	"github.com/kazz187/labtrack/pkg/storage"
)

const tasksPrefix = "tasks"

type YAMLRepository struct {
	docs *docstore.Collection[task.Task]
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		docs: docstore.NewCollection(s, tasksPrefix, "task", func(t *task.Task) string { return t.ID }),
	}
}

func (r *YAMLRepository) Create(ctx context.Context, t *task.Task) error {
	return r.docs.Create(ctx, t)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	return r.docs.Get(ctx, id)
}

// List returns matching tasks, newest first.
func (r *YAMLRepository) List(ctx context.Context, f task.Filter) ([]*task.Task, error) {
	all, err := r.docs.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*task.Task, 0, len(all))
	for _, t := range all {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *YAMLRepository) Update(ctx context.Context, t *task.Task) error {
	return r.docs.Update(ctx, t)
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	return r.docs.Delete(ctx, id)
}
