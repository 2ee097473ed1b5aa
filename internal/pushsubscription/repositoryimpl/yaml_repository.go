package repositoryimpl

import (
	"context"

	"github.com/kazz187/labtrack/internal/checklist"
	"github.com/kazz187/labtrack/internal/pushsubscription"
	"github.com/kazz187/labtrack/pkg/docstore"
	"github.com/kazz187/labtrack/pkg/storage"
)

const subscriptionsPrefix = "push_subscriptions"

type YAMLRepository struct {
	docs *docstore.Collection[pushsubscription.Subscription]
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		docs: docstore.NewCollection(s, subscriptionsPrefix, "push subscription", func(sub *pushsubscription.Subscription) string { return sub.ID }),
	}
}

func (r *YAMLRepository) Create(ctx context.Context, sub *pushsubscription.Subscription) error {
	return r.docs.Create(ctx, sub)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*pushsubscription.Subscription, error) {
	return r.docs.Get(ctx, id)
}

func (r *YAMLRepository) Update(ctx context.Context, sub *pushsubscription.Subscription) error {
	return r.docs.Update(ctx, sub)
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	return r.docs.Delete(ctx, id)
}

func (r *YAMLRepository) List(ctx context.Context) ([]*pushsubscription.Subscription, error) {
	return r.docs.All(ctx)
}

func (r *YAMLRepository) ListByUser(ctx context.Context, userID string) ([]*pushsubscription.Subscription, error) {
	return r.filter(ctx, func(sub *pushsubscription.Subscription) bool { return sub.UserID == userID })
}

func (r *YAMLRepository) ListWanting(ctx context.Context, status checklist.Status) ([]*pushsubscription.Subscription, error) {
	return r.filter(ctx, func(sub *pushsubscription.Subscription) bool { return sub.Wants(status) })
}

func (r *YAMLRepository) FindByEndpoint(ctx context.Context, endpoint string) (*pushsubscription.Subscription, error) {
	return r.docs.Find(ctx, func(sub *pushsubscription.Subscription) bool {
		return sub.Endpoint == endpoint
	})
}

func (r *YAMLRepository) filter(ctx context.Context, keep func(*pushsubscription.Subscription) bool) ([]*pushsubscription.Subscription, error) {
	all, err := r.docs.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*pushsubscription.Subscription, 0, len(all))
	for _, sub := range all {
		if keep(sub) {
			out = append(out, sub)
		}
	}
	return out, nil
}
