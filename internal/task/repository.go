package task

import "context"

// Filter selects tasks by their stored fields. Empty fields match anything.
// Status and completion date are derived, so they are filtered by the
// service after re-derivation.
type Filter struct {
	OrderType  string
	Priority   Priority
	StationID  string
	AssigneeID string
}

func (f Filter) Match(t *Task) bool {
	if f.OrderType != "" && t.OrderType != f.OrderType {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.StationID != "" && t.StationID != f.StationID {
		return false
	}
	if f.AssigneeID != "" && t.AssigneeID != f.AssigneeID {
		return false
	}
	return true
}

type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, f Filter) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
}
