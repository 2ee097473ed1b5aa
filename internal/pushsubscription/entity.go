// Package pushsubscription stores the browsers that receive task alerts.
package pushsubscription

import (
	"slices"
	"time"

	"github.com/kazz187/labtrack/internal/checklist"
)

// AlertStatuses are the derived task statuses a browser can be alerted about.
var AlertStatuses = []checklist.Status{checklist.StatusDisconnected, checklist.StatusCompleted}

// Subscription is one browser endpoint registered by a lab user.
type Subscription struct {
	ID        string `yaml:"id"`
	UserID    string `yaml:"user_id"`
	Endpoint  string `yaml:"endpoint"`
	P256dhKey string `yaml:"p256dh_key"`
	AuthKey   string `yaml:"auth_key"`
	// Statuses narrows the alerts; empty means every alert status.
	Statuses []checklist.Status `yaml:"statuses,omitempty"`

	// Consecutive failed deliveries; reset by a successful one.
	Failures        int       `yaml:"failures,omitempty"`
	LastDeliveredAt time.Time `yaml:"last_delivered_at,omitempty"`
	CreatedAt       time.Time `yaml:"created_at"`
}

// Wants reports whether the subscription is alerted when a task reaches status.
func (s *Subscription) Wants(status checklist.Status) bool {
	if !slices.Contains(AlertStatuses, status) {
		return false
	}
	return len(s.Statuses) == 0 || slices.Contains(s.Statuses, status)
}
