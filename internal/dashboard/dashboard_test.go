package dashboard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/labtrack/internal/checklist"
	"github.com/kazz187/labtrack/internal/dashboard"
	"github.com/kazz187/labtrack/internal/provider"
	"github.com/kazz187/labtrack/internal/staff"
	"github.com/kazz187/labtrack/internal/station"
	stationimpl "github.com/kazz187/labtrack/internal/station/repositoryimpl"
	"github.com/kazz187/labtrack/internal/task"
	"github.com/kazz187/labtrack/pkg/date"
	"github.com/kazz187/labtrack/pkg/storage"
)

type fakeTasks struct {
	tasks []*task.Task
	err   error
}

func (f fakeTasks) All(context.Context, task.Filter) ([]*task.Task, error) {
	return f.tasks, f.err
}

type fakeOnDuty struct {
	day date.Date
}

func (f *fakeOnDuty) OnDuty(_ context.Context, day date.Date) ([]provider.OnDutyEntry, error) {
	f.day = day
	return []provider.OnDutyEntry{{
		Assignment: &provider.Assignment{ID: "a1", Date: day, Shift: provider.ShiftDay, ProviderID: "p1"},
		Provider:   &staff.Member{ID: "p1", Name: "Dr. Lee", Role: staff.RoleReadingProvider},
	}}, nil
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.March, 4, 14, 0, 0, 0, time.UTC)
	today := date.Of(now)

	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	stations := stationimpl.NewYAMLRepository(s)
	require.NoError(t, stations.Create(ctx, &station.Station{ID: "s1", Name: "Cart 1", Status: station.StatusAvailable}))
	require.NoError(t, stations.Create(ctx, &station.Station{ID: "s2", Name: "Cart 2", Status: station.StatusMaintenance}))

	tasks := fakeTasks{tasks: []*task.Task{
		{ID: "t1", Title: "old stat", Priority: task.PrioritySTAT, OrderType: "Routine EEG", Status: checklist.StatusPending, StationID: "s1", CreatedAt: now.Add(-3 * time.Hour)},
		{ID: "t2", Title: "new stat", Priority: task.PrioritySTAT, OrderType: "Routine EEG", Status: checklist.StatusInProgress, CreatedAt: now.Add(-30 * time.Minute)},
		{ID: "t3", Title: "done stat", Priority: task.PrioritySTAT, OrderType: "Wada Test", Status: checklist.StatusCompleted, CompletedOn: today, CreatedAt: now.Add(-5 * time.Hour)},
		{ID: "t4", Title: "routine", Priority: task.PriorityRoutine, OrderType: "Wada Test", Status: checklist.StatusCompleted, CompletedOn: today.AddDays(-1), CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "t5", Title: "disc", Priority: task.PriorityUrgent, OrderType: "Ambulatory EEG", Status: checklist.StatusDisconnected, StationID: "s2", CreatedAt: now.Add(-2 * time.Hour)},
	}}
	onDuty := &fakeOnDuty{}
	srv := dashboard.NewServer(tasks, stations, onDuty, &checklist.FixedClock{T: now})

	sum, err := srv.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, today, sum.Date)
	assert.Equal(t, today, onDuty.day)
	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, map[checklist.Status]int{
		checklist.StatusPending:      1,
		checklist.StatusInProgress:   1,
		checklist.StatusCompleted:    2,
		checklist.StatusDisconnected: 1,
	}, sum.ByStatus)
	assert.Equal(t, map[task.Priority]int{task.PriorityRoutine: 1, task.PriorityUrgent: 1, task.PrioritySTAT: 3}, sum.ByPriority)
	assert.Equal(t, map[string]int{"Routine EEG": 2, "Wada Test": 2, "Ambulatory EEG": 1}, sum.ByOrderType)
	assert.Equal(t, 1, sum.CompletedToday)

	require.Len(t, sum.OverdueStat, 1)
	assert.Equal(t, "t1", sum.OverdueStat[0].ID)
	assert.Equal(t, 180, sum.OverdueStat[0].AgeMinutes)

	assert.Equal(t, map[station.Status]int{station.StatusAvailable: 1, station.StatusMaintenance: 1}, sum.StationsByStatus)
	assert.Equal(t, 1, sum.StationsInUse)
	require.Len(t, sum.ReadingProviders, 1)
	assert.Equal(t, "Dr. Lee", sum.ReadingProviders[0].Provider.Name)
}

func TestSummaryPropagatesErrors(t *testing.T) {
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	boom := errors.New("boom")
	srv := dashboard.NewServer(fakeTasks{err: boom}, stationimpl.NewYAMLRepository(s), &fakeOnDuty{}, &checklist.FixedClock{T: time.Now()})

	_, err = srv.Summary(context.Background())
	assert.ErrorIs(t, err, boom)
}
