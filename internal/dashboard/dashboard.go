// Package dashboard aggregates the lab's current workload for the home screen.
package dashboard

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sourcegraph/conc/pool"

	"github.com/kazz187/labtrack/internal/checklist"
	"github.com/kazz187/labtrack/internal/provider"
	"github.com/kazz187/labtrack/internal/station"
	"github.com/kazz187/labtrack/internal/task"
	"github.com/kazz187/labtrack/pkg/date"
	"github.com/kazz187/labtrack/pkg/rest"
)

// StatOverdueAfter is how long a STAT task may stay open before it is flagged.
const StatOverdueAfter = time.Hour

type TaskLister interface {
	All(ctx context.Context, f task.Filter) ([]*task.Task, error)
}

type OnDutyLookup interface {
	OnDuty(ctx context.Context, day date.Date) ([]provider.OnDutyEntry, error)
}

type OverdueTask struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Room       string           `json:"room"`
	Status     checklist.Status `json:"status"`
	CreatedAt  time.Time        `json:"createdAt"`
	AgeMinutes int              `json:"ageMinutes"`
}

type Summary struct {
	Date             date.Date                `json:"date"`
	Total            int                      `json:"total"`
	ByStatus         map[checklist.Status]int `json:"byStatus"`
	ByPriority       map[task.Priority]int    `json:"byPriority"`
	ByOrderType      map[string]int           `json:"byOrderType"`
	CompletedToday   int                      `json:"completedToday"`
	OverdueStat      []OverdueTask            `json:"overdueStat"`
	StationsByStatus map[station.Status]int   `json:"stationsByStatus"`
	StationsInUse    int                      `json:"stationsInUse"`
	ReadingProviders []provider.OnDutyEntry   `json:"readingProviders"`
}

type Server struct {
	tasks     TaskLister
	stations  station.Repository
	providers OnDutyLookup
	clock     checklist.Clock
}

func NewServer(tasks TaskLister, stations station.Repository, providers OnDutyLookup, clock checklist.Clock) *Server {
	return &Server{tasks: tasks, stations: stations, providers: providers, clock: clock}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/dashboard", rest.Handle(func(r *http.Request) (any, error) {
		return s.Summary(r.Context())
	}))
}

// Summary loads tasks, stations and the provider schedule concurrently and
// aggregates them.
func (s *Server) Summary(ctx context.Context) (*Summary, error) {
	now := s.clock.Now()
	today := date.Of(now)

	var (
		tasks    []*task.Task
		stations []*station.Station
		onDuty   []provider.OnDutyEntry
	)
	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		tasks, err = s.tasks.All(ctx, task.Filter{})
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		stations, err = s.stations.List(ctx, "", "")
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		onDuty, err = s.providers.OnDuty(ctx, today)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	sum := &Summary{
		Date:             today,
		Total:            len(tasks),
		ByStatus:         make(map[checklist.Status]int, 4),
		ByPriority:       make(map[task.Priority]int, 3),
		ByOrderType:      make(map[string]int),
		OverdueStat:      []OverdueTask{},
		StationsByStatus: make(map[station.Status]int, 4),
		ReadingProviders: onDuty,
	}
	for _, st := range checklist.Statuses() {
		sum.ByStatus[st] = 0
	}
	for _, pr := range task.Priorities() {
		sum.ByPriority[pr] = 0
	}

	busy := make(map[string]struct{})
	for _, t := range tasks {
		sum.ByStatus[t.Status]++
		sum.ByPriority[t.Priority]++
		sum.ByOrderType[t.OrderType]++
		if t.Status == checklist.StatusCompleted && t.CompletedOn == today {
			sum.CompletedToday++
		}
		if t.Open() && t.StationID != "" {
			busy[t.StationID] = struct{}{}
		}
		if t.Priority == task.PrioritySTAT && t.Open() && now.Sub(t.CreatedAt) > StatOverdueAfter {
			sum.OverdueStat = append(sum.OverdueStat, OverdueTask{
				ID:         t.ID,
				Title:      t.Title,
				Room:       t.Room,
				Status:     t.Status,
				CreatedAt:  t.CreatedAt,
				AgeMinutes: int(now.Sub(t.CreatedAt) / time.Minute),
			})
		}
	}
	sort.Slice(sum.OverdueStat, func(i, j int) bool {
		return sum.OverdueStat[i].CreatedAt.Before(sum.OverdueStat[j].CreatedAt)
	})

	for _, st := range stations {
		sum.StationsByStatus[st.Status]++
		if _, ok := busy[st.ID]; ok {
			sum.StationsInUse++
		}
	}
	if sum.ReadingProviders == nil {
		sum.ReadingProviders = []provider.OnDutyEntry{}
	}
	return sum, nil
}
