package station

import "context"

type Repository interface {
	Create(ctx context.Context, s *Station) error
	Get(ctx context.Context, id string) (*Station, error)
	List(ctx context.Context, status Status, stationType Type) ([]*Station, error)
	Update(ctx context.Context, s *Station) error
	Delete(ctx context.Context, id string) error
}

// UsageChecker reports whether open tasks still reference a station.
type UsageChecker interface {
	StationInUse(ctx context.Context, stationID string) (bool, error)
}
