package repositoryimpl

import (
	"context"
	"sort"

	"github.com/kazz187/labtrack/internal/station"
	"github.com/kazz187/labtrack/pkg/docstore"
	"github.com/kazz187/labtrack/pkg/storage"
)

const stationsPrefix = "stations"

type YAMLRepository struct {
	docs *docstore.Collection[station.Station]
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		docs: docstore.NewCollection(s, stationsPrefix, "station", func(st *station.Station) string { return st.ID }),
	}
}

func (r *YAMLRepository) Create(ctx context.Context, s *station.Station) error {
	return r.docs.Create(ctx, s)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*station.Station, error) {
	return r.docs.Get(ctx, id)
}

func (r *YAMLRepository) List(ctx context.Context, status station.Status, stationType station.Type) ([]*station.Station, error) {
	all, err := r.docs.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*station.Station, 0, len(all))
	for _, s := range all {
		if status != "" && s.Status != status {
			continue
		}
		if stationType != "" && s.Type != stationType {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *YAMLRepository) Update(ctx context.Context, s *station.Station) error {
	return r.docs.Update(ctx, s)
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	return r.docs.Delete(ctx, id)
}
