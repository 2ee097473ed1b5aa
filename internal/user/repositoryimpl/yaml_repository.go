package repositoryimpl

import (
	"context"
	"sort"
	"strings"

	"github.com/kazz187/labtrack/internal/user"
	"github.com/kazz187/labtrack/pkg/docstore"
	"github.com/kazz187/labtrack/pkg/storage"
)

const usersPrefix = "users"

type YAMLRepository struct {
	docs *docstore.Collection[user.User]
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		docs: docstore.NewCollection(s, usersPrefix, "user", func(u *user.User) string { return u.ID }),
	}
}

func (r *YAMLRepository) Create(ctx context.Context, u *user.User) error {
	return r.docs.Create(ctx, u)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*user.User, error) {
	return r.docs.Get(ctx, id)
}

func (r *YAMLRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.docs.Find(ctx, func(u *user.User) bool {
		return strings.EqualFold(u.Username, username)
	})
}

func (r *YAMLRepository) List(ctx context.Context) ([]*user.User, error) {
	users, err := r.docs.All(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (r *YAMLRepository) Update(ctx context.Context, u *user.User) error {
	return r.docs.Update(ctx, u)
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	return r.docs.Delete(ctx, id)
}
