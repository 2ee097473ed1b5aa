// Package checklist derives a task's lifecycle status and progress from its
// checklist, and maintains the automatic checklist items expected for each
// order type.
package checklist

import "time"

// Item is one line of a task's checklist. Text identifies the item across
// edits; only Completed changes after creation.
type Item struct {
	Text      string    `yaml:"text" json:"text"`
	Completed bool      `yaml:"completed" json:"completed"`
	CreatedAt time.Time `yaml:"created_at" json:"createdAt"`
}

type Status string

const (
	StatusPending      Status = "Pending"
	StatusInProgress   Status = "In Progress"
	StatusCompleted    Status = "Completed"
	StatusDisconnected Status = "Disconnected"
)

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusCompleted, StatusDisconnected}
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusDisconnected:
		return true
	default:
		return false
	}
}

// Clone returns a copy of items that shares no backing array with the input.
func Clone(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
