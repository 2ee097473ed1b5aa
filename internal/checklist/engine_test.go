package checklist

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/labtrack/pkg/date"
)

const testCatalog = `
order_types:
  - name: Routine EEG
    items: [Hook-Up, Place Charge & Chart, Disconnect]
  - name: Ambulatory EEG
    items: [Hook-Up, Download Study]
`

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *FixedClock) {
	t.Helper()
	catalog, err := ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	clock := &FixedClock{T: time.Date(2024, time.March, 4, 14, 15, 0, 0, time.UTC)}
	return NewEngine(catalog, append([]Option{WithClock(clock)}, opts...)...), clock
}

func texts(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Text
	}
	return out
}

func TestApplyAutomaticAppendsMissingLabels(t *testing.T) {
	e, clock := newTestEngine(t)
	existing := []Item{
		{Text: "Hook-Up (3/1/24 at 8:00 AM)", Completed: true},
		{Text: "Call family"},
	}

	got := e.ApplyAutomatic("", "Routine EEG", existing)

	want := []string{
		"Hook-Up (3/1/24 at 8:00 AM)",
		"Call family",
		"Place Charge & Chart (3/4/24 at 2:15 PM)",
		"Disconnect (3/4/24 at 2:15 PM)",
	}
	if diff := cmp.Diff(want, texts(got)); diff != "" {
		t.Errorf("checklist mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, got[0].Completed)
	assert.False(t, got[2].Completed)
	assert.Equal(t, clock.T, got[3].CreatedAt)
	assert.Len(t, existing, 2, "input must not be modified")
}

func TestApplyAutomaticIsIdempotent(t *testing.T) {
	e, clock := newTestEngine(t)
	once := e.ApplyAutomatic("", "Routine EEG", nil)
	clock.T = clock.T.Add(time.Hour)
	twice := e.ApplyAutomatic("Routine EEG", "Routine EEG", once)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second application changed the checklist (-once +twice):\n%s", diff)
	}
}

func TestApplyAutomaticUnknownOrderType(t *testing.T) {
	e, _ := newTestEngine(t)
	existing := []Item{{Text: "Custom"}}
	assert.Equal(t, existing, e.ApplyAutomatic("", "Nope", existing))
	assert.Empty(t, e.ApplyAutomatic("", "", nil))
}

func TestApplyAutomaticOrderTypeChange(t *testing.T) {
	routine := []Item{
		{Text: "Hook-Up (3/1/24 at 8:00 AM)", Completed: true},
		{Text: "Place Charge & Chart (3/1/24 at 8:00 AM)", Completed: true},
		{Text: "Disconnect (3/1/24 at 8:00 AM)"},
		{Text: "Custom note"},
	}

	t.Run("default keeps stale items", func(t *testing.T) {
		e, _ := newTestEngine(t)
		got := e.ApplyAutomatic("Routine EEG", "Ambulatory EEG", routine)
		assert.Equal(t, []string{
			"Hook-Up (3/1/24 at 8:00 AM)",
			"Place Charge & Chart (3/1/24 at 8:00 AM)",
			"Disconnect (3/1/24 at 8:00 AM)",
			"Custom note",
			"Download Study (3/4/24 at 2:15 PM)",
		}, texts(got))
	})

	t.Run("prune stale drops unchecked automatic items only", func(t *testing.T) {
		e, _ := newTestEngine(t, WithPrunePolicy(PruneStale))
		got := e.ApplyAutomatic("Routine EEG", "Ambulatory EEG", routine)
		assert.Equal(t, []string{
			"Hook-Up (3/1/24 at 8:00 AM)",
			"Place Charge & Chart (3/1/24 at 8:00 AM)",
			"Custom note",
			"Download Study (3/4/24 at 2:15 PM)",
		}, texts(got))
	})
}

func TestRecomputeCompletedOnLifecycle(t *testing.T) {
	e, clock := newTestEngine(t)
	list := make([]Item, 100)
	for i := range list {
		list[i] = Item{Text: "step", Completed: i < 99}
	}

	s := e.Recompute(State{}, list)
	assert.Equal(t, StatusInProgress, s.Status)
	assert.Equal(t, 99, s.Progress)
	assert.True(t, s.CompletedOn.IsZero())

	done := Clone(list)
	done[99].Completed = true
	s = e.Recompute(s, done)
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, date.Date{Year: 2024, Month: time.March, Day: 4}, s.CompletedOn)

	// A later edit that keeps the task complete does not move the date.
	clock.T = clock.T.AddDate(0, 0, 2)
	s = e.Recompute(s, done)
	assert.Equal(t, date.Date{Year: 2024, Month: time.March, Day: 4}, s.CompletedOn)

	partial := Clone(done)
	for i := 80; i < 100; i++ {
		partial[i].Completed = false
	}
	s = e.Recompute(s, partial)
	assert.Equal(t, 80, s.Progress)
	assert.True(t, s.CompletedOn.IsZero())
}

func TestRecomputeUsesClockLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	e, clock := newTestEngine(t)
	clock.T = time.Date(2024, time.March, 5, 2, 30, 0, 0, time.UTC).In(ny)

	s := e.Recompute(State{}, items(true))
	assert.Equal(t, date.Date{Year: 2024, Month: time.March, Day: 4}, s.CompletedOn)
}

func TestRecomputeDisconnectedClearsCompletedOn(t *testing.T) {
	e, _ := newTestEngine(t)
	list := []Item{
		{Text: "Disconnect", Completed: true},
		{Text: "Place End Time in Chart & Inform Reading Provider", Completed: true},
	}
	s := e.Recompute(State{CompletedOn: date.Date{Year: 2024, Month: time.March, Day: 1}}, list)
	assert.Equal(t, StatusDisconnected, s.Status)
	assert.Equal(t, 100, s.Progress)
	assert.True(t, s.CompletedOn.IsZero())
}

func TestViewIgnoresStoredStatus(t *testing.T) {
	e, _ := newTestEngine(t)
	list := items(true, false)
	a := e.View(State{Checklist: list, Status: StatusCompleted, Progress: 100})
	b := e.View(State{Checklist: list, Status: StatusPending})
	assert.Equal(t, StatusInProgress, a.Status)
	assert.Equal(t, a, b)
}

func TestViewKeepsCompletedOnWithoutAssigningOne(t *testing.T) {
	e, _ := newTestEngine(t)
	on := date.Date{Year: 2024, Month: time.March, Day: 1}
	assert.Equal(t, on, e.View(State{Checklist: items(true), CompletedOn: on}).CompletedOn)
	assert.True(t, e.View(State{Checklist: items(true)}).CompletedOn.IsZero())
}
