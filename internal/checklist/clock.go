package checklist

import (
	"time"

	"github.com/kazz187/labtrack/pkg/date"
)

// Clock supplies the current time. CompletedOn and annotations read it
// instead of the process clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reports wall time in Location (UTC when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// FixedClock always reports T.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time {
	return c.T
}

// Today returns the calendar date of c.Now() in the clock's location.
func Today(c Clock) date.Date {
	return date.Of(c.Now())
}
