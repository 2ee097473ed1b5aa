package checklist

import "math"

// Progress returns the completed share of items as a rounded percentage.
// An empty checklist is 0%.
func Progress(items []Item) int {
	if len(items) == 0 {
		return 0
	}
	completed := 0
	for _, it := range items {
		if it.Completed {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(len(items))))
}

// Disconnected reports whether the completed items contain both a disconnect
// step and a closeout step. The two may be different items.
func Disconnected(m Matcher, items []Item) bool {
	var disconnect, closeout bool
	for _, it := range items {
		if !it.Completed {
			continue
		}
		text := Normalize(it.Text)
		if text == "" {
			continue
		}
		if m.IsDisconnectStep(text) {
			disconnect = true
		}
		if m.IsCloseoutStep(text) {
			closeout = true
		}
		if disconnect && closeout {
			return true
		}
	}
	return false
}

// Derive computes the authoritative status and progress for items.
// Precedence: Disconnected, then Completed, In Progress, Pending.
func Derive(m Matcher, items []Item) (Status, int) {
	progress := Progress(items)
	switch {
	case Disconnected(m, items):
		return StatusDisconnected, progress
	case progress == 100:
		return StatusCompleted, progress
	case progress > 0:
		return StatusInProgress, progress
	default:
		return StatusPending, progress
	}
}
