package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/labtrack/internal/checklist"
	"github.com/kazz187/labtrack/internal/eventbus"
	"github.com/kazz187/labtrack/internal/staff"
	"github.com/kazz187/labtrack/internal/station"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/date"
	"github.com/kazz187/labtrack/pkg/docstore"
)

var _ station.UsageChecker = (*Service)(nil)

// Service owns every write to a task. Each write runs the checklist engine
// before it is stored, and each read re-derives from the stored checklist.
type Service struct {
	repo      Repository
	engine    *checklist.Engine
	eventBus  *eventbus.Bus
	stations  station.Repository
	staffRepo staff.Repository

	// serializes read-modify-write cycles within this process
	mu sync.Mutex
}

func NewService(repo Repository, engine *checklist.Engine, eventBus *eventbus.Bus, stations station.Repository, staffRepo staff.Repository) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		eventBus:  eventBus,
		stations:  stations,
		staffRepo: staffRepo,
	}
}

func (s *Service) Engine() *checklist.Engine { return s.engine }

// ItemInput is a checklist entry supplied by a client.
type ItemInput struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type CreateInput struct {
	Title             string      `json:"title"`
	PatientName       string      `json:"patientName"`
	MRN               string      `json:"mrn"`
	Room              string      `json:"room"`
	OrderType         string      `json:"orderType"`
	Priority          Priority    `json:"priority"`
	StationID         string      `json:"stationId"`
	AssigneeID        string      `json:"assigneeId"`
	ReadingProviderID string      `json:"readingProviderId"`
	Notes             string      `json:"notes"`
	Checklist         []ItemInput `json:"checklist"`
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Title             *string   `json:"title"`
	PatientName       *string   `json:"patientName"`
	MRN               *string   `json:"mrn"`
	Room              *string   `json:"room"`
	OrderType         *string   `json:"orderType"`
	Priority          *Priority `json:"priority"`
	StationID         *string   `json:"stationId"`
	AssigneeID        *string   `json:"assigneeId"`
	ReadingProviderID *string   `json:"readingProviderId"`
	Notes             *string   `json:"notes"`
}

// ItemUpdate edits one checklist item. A new text keeps the item's
// original timestamp annotation.
type ItemUpdate struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

// Query selects tasks for List. Status and the completion range apply to the
// derived values.
type Query struct {
	Filter
	Status        checklist.Status
	CompletedFrom date.Date
	CompletedTo   date.Date
	Limit         int
	Offset        int
}

func (s *Service) Create(ctx context.Context, in CreateInput, createdBy string) (*Task, error) {
	now := s.engine.Clock().Now()
	t := &Task{
		ID:                ulid.Make().String(),
		Title:             strings.TrimSpace(in.Title),
		PatientName:       strings.TrimSpace(in.PatientName),
		MRN:               strings.TrimSpace(in.MRN),
		Room:              strings.TrimSpace(in.Room),
		OrderType:         strings.TrimSpace(in.OrderType),
		Priority:          in.Priority,
		StationID:         in.StationID,
		AssigneeID:        in.AssigneeID,
		ReadingProviderID: in.ReadingProviderID,
		Notes:             in.Notes,
		CreatedBy:         createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if t.Priority == "" {
		t.Priority = PriorityRoutine
	}
	if err := s.validate(ctx, t); err != nil {
		return nil, err
	}

	items := make([]checklist.Item, 0, len(in.Checklist))
	for i, it := range in.Checklist {
		text := strings.TrimSpace(it.Text)
		if text == "" {
			return nil, cerr.NewInvalidArgumentError("invalid task", map[string]string{
				fmt.Sprintf("checklist[%d].text", i): "is required",
			})
		}
		items = append(items, checklist.Item{Text: checklist.EnsureAnnotated(text, now), Completed: it.Completed, CreatedAt: now})
	}
	items = s.engine.ApplyAutomatic("", t.OrderType, items)
	t.SetState(s.engine.Recompute(checklist.State{}, items))

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.eventBus.PublishNew(eventbus.TaskCreated, t.ID, map[string]string{
		"title":  t.Title,
		"status": string(t.Status),
	})
	slog.InfoContext(ctx, "task created", "task_id", t.ID, "order_type", t.OrderType, "status", t.Status)
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Task, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.view(t)
	return t, nil
}

// List returns one page of matching tasks and the total number of matches.
func (s *Service) List(ctx context.Context, q Query) ([]*Task, int, error) {
	all, err := s.All(ctx, q.Filter)
	if err != nil {
		return nil, 0, err
	}
	matched := make([]*Task, 0, len(all))
	for _, t := range all {
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if !q.CompletedFrom.IsZero() || !q.CompletedTo.IsZero() {
			if t.CompletedOn.IsZero() || !t.CompletedOn.Within(q.CompletedFrom, q.CompletedTo) {
				continue
			}
		}
		matched = append(matched, t)
	}
	return docstore.Page(matched, q.Limit, q.Offset), len(matched), nil
}

// All returns every task matching f with derived fields refreshed.
func (s *Service) All(ctx context.Context, f Filter) ([]*Task, error) {
	tasks, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		s.view(t)
	}
	return tasks, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Task, error) {
	return s.mutate(ctx, id, func(t *Task) ([]checklist.Item, error) {
		prevOrderType := t.OrderType
		if in.Title != nil {
			t.Title = strings.TrimSpace(*in.Title)
		}
		if in.PatientName != nil {
			t.PatientName = strings.TrimSpace(*in.PatientName)
		}
		if in.MRN != nil {
			t.MRN = strings.TrimSpace(*in.MRN)
		}
		if in.Room != nil {
			t.Room = strings.TrimSpace(*in.Room)
		}
		if in.OrderType != nil {
			t.OrderType = strings.TrimSpace(*in.OrderType)
		}
		if in.Priority != nil {
			t.Priority = *in.Priority
		}
		if in.StationID != nil {
			t.StationID = *in.StationID
		}
		if in.AssigneeID != nil {
			t.AssigneeID = *in.AssigneeID
		}
		if in.ReadingProviderID != nil {
			t.ReadingProviderID = *in.ReadingProviderID
		}
		if in.Notes != nil {
			t.Notes = *in.Notes
		}
		if err := s.validate(ctx, t); err != nil {
			return nil, err
		}
		if t.OrderType == prevOrderType {
			return t.Checklist, nil
		}
		return s.engine.ApplyAutomatic(prevOrderType, t.OrderType, t.Checklist), nil
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.eventBus.PublishNew(eventbus.TaskDeleted, id, nil)
	slog.InfoContext(ctx, "task deleted", "task_id", id)
	return nil
}

// AddItem appends a custom checklist item annotated with the current time.
func (s *Service) AddItem(ctx context.Context, id string, text string) (*Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, cerr.NewInvalidArgumentError("invalid checklist item", map[string]string{"text": "is required"})
	}
	return s.mutate(ctx, id, func(t *Task) ([]checklist.Item, error) {
		now := s.engine.Clock().Now()
		items := checklist.Clone(t.Checklist)
		return append(items, checklist.Item{Text: checklist.Annotate(text, now), CreatedAt: now}), nil
	})
}

func (s *Service) UpdateItem(ctx context.Context, id string, index int, in ItemUpdate) (*Task, error) {
	return s.mutate(ctx, id, func(t *Task) ([]checklist.Item, error) {
		if err := checkIndex(t, index); err != nil {
			return nil, err
		}
		items := checklist.Clone(t.Checklist)
		it := &items[index]
		if in.Text != nil {
			text := strings.TrimSpace(*in.Text)
			if text == "" {
				return nil, cerr.NewInvalidArgumentError("invalid checklist item", map[string]string{"text": "is required"})
			}
			it.Text = checklist.StripAnnotation(text) + checklist.AnnotationOf(it.Text)
		}
		if in.Completed != nil {
			it.Completed = *in.Completed
		}
		return items, nil
	})
}

func (s *Service) RemoveItem(ctx context.Context, id string, index int) (*Task, error) {
	return s.mutate(ctx, id, func(t *Task) ([]checklist.Item, error) {
		if err := checkIndex(t, index); err != nil {
			return nil, err
		}
		items := make([]checklist.Item, 0, len(t.Checklist)-1)
		items = append(items, t.Checklist[:index]...)
		return append(items, t.Checklist[index+1:]...), nil
	})
}

// ReplaceChecklist stores the given items. Items whose text matches an
// existing item keep that item's creation time; other unannotated texts are
// annotated with the current time.
func (s *Service) ReplaceChecklist(ctx context.Context, id string, in []ItemInput) (*Task, error) {
	return s.mutate(ctx, id, func(t *Task) ([]checklist.Item, error) {
		created := make(map[string]time.Time, len(t.Checklist))
		for _, it := range t.Checklist {
			created[it.Text] = it.CreatedAt
		}
		now := s.engine.Clock().Now()
		violations := map[string]string{}
		items := make([]checklist.Item, 0, len(in))
		for i, it := range in {
			text := strings.TrimSpace(it.Text)
			if text == "" {
				violations[fmt.Sprintf("checklist[%d].text", i)] = "is required"
				continue
			}
			at, ok := created[text]
			if !ok {
				at = now
				text = checklist.EnsureAnnotated(text, now)
			}
			items = append(items, checklist.Item{Text: text, Completed: it.Completed, CreatedAt: at})
		}
		if len(violations) > 0 {
			return nil, cerr.NewInvalidArgumentError("invalid checklist", violations)
		}
		return items, nil
	})
}

// StationInUse reports whether a pending or in-progress task references the
// station.
func (s *Service) StationInUse(ctx context.Context, stationID string) (bool, error) {
	tasks, err := s.All(ctx, Filter{StationID: stationID})
	if err != nil {
		return false, err
	}
	for _, t := range tasks {
		if t.Open() {
			return true, nil
		}
	}
	return false, nil
}

// mutate loads a task, lets fn produce its next checklist, recomputes the
// derived state, stores it and publishes the resulting events.
func (s *Service) mutate(ctx context.Context, id string, fn func(t *Task) ([]checklist.Item, error)) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.view(t)
	prevStatus := t.Status

	items, err := fn(t)
	if err != nil {
		return nil, err
	}
	t.SetState(s.engine.Recompute(t.State(), items))
	t.UpdatedAt = s.engine.Clock().Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.eventBus.PublishNew(eventbus.TaskUpdated, t.ID, map[string]string{"status": string(t.Status)})
	if t.Status != prevStatus {
		s.eventBus.PublishNew(eventbus.TaskStatusChanged, t.ID, map[string]string{
			"title": t.Title,
			"from":  string(prevStatus),
			"to":    string(t.Status),
		})
		slog.InfoContext(ctx, "task status changed", "task_id", t.ID, "from", prevStatus, "to", t.Status)
	}
	return t, nil
}

func (s *Service) view(t *Task) {
	t.SetState(s.engine.View(t.State()))
}

func (s *Service) validate(ctx context.Context, t *Task) error {
	violations := map[string]string{}
	if t.Title == "" {
		violations["title"] = "is required"
	}
	if t.OrderType == "" {
		violations["orderType"] = "is required"
	}
	if !t.Priority.Valid() {
		violations["priority"] = "must be Routine, Urgent or STAT"
	}
	if t.StationID != "" {
		if _, err := s.stations.Get(ctx, t.StationID); err != nil {
			if !cerr.IsCode(err, cerr.NotFound) {
				return err
			}
			violations["stationId"] = "unknown station"
		}
	}
	if t.AssigneeID != "" {
		if _, err := s.staffRepo.Get(ctx, t.AssigneeID); err != nil {
			if !cerr.IsCode(err, cerr.NotFound) {
				return err
			}
			violations["assigneeId"] = "unknown staff member"
		}
	}
	if t.ReadingProviderID != "" {
		m, err := s.staffRepo.Get(ctx, t.ReadingProviderID)
		switch {
		case cerr.IsCode(err, cerr.NotFound):
			violations["readingProviderId"] = "unknown staff member"
		case err != nil:
			return err
		case m.Role != staff.RoleReadingProvider:
			violations["readingProviderId"] = "staff member is not a reading provider"
		}
	}
	if len(violations) > 0 {
		return cerr.NewInvalidArgumentError("invalid task", violations)
	}
	return nil
}

func checkIndex(t *Task, index int) error {
	if index < 0 || index >= len(t.Checklist) {
		return cerr.NewError(cerr.NotFound, fmt.Sprintf("checklist item %d not found", index), nil)
	}
	return nil
}
