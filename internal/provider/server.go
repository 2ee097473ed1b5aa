package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/labtrack/internal/auth"
	"github.com/kazz187/labtrack/internal/checklist"
	"github.com/kazz187/labtrack/internal/staff"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/date"
	"github.com/kazz187/labtrack/pkg/rest"
)

type Server struct {
	repo      Repository
	staffRepo staff.Repository
	clock     checklist.Clock
}

func NewServer(repo Repository, staffRepo staff.Repository, clock checklist.Clock) *Server {
	return &Server{repo: repo, staffRepo: staffRepo, clock: clock}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/providers/assignments", rest.Handle(s.list))
	r.Get("/providers/today", rest.Handle(s.today))
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(auth.RoleAdmin))
		r.Post("/providers/assignments", rest.Create(s.create))
		r.Patch("/providers/assignments/{id}", rest.Handle(s.update))
		r.Delete("/providers/assignments/{id}", rest.Handle(s.delete))
	})
}

// OnDutyEntry pairs an assignment with the roster entry it points at.
type OnDutyEntry struct {
	Assignment *Assignment   `json:"assignment"`
	Provider   *staff.Member `json:"provider,omitempty"`
}

// OnDuty returns the assignments for day with their providers resolved.
func (s *Server) OnDuty(ctx context.Context, day date.Date) ([]OnDutyEntry, error) {
	assignments, err := s.repo.List(ctx, day, day)
	if err != nil {
		return nil, err
	}
	out := make([]OnDutyEntry, 0, len(assignments))
	for _, a := range assignments {
		entry := OnDutyEntry{Assignment: a}
		if m, err := s.staffRepo.Get(ctx, a.ProviderID); err == nil {
			entry.Provider = m
		} else if !cerr.IsCode(err, cerr.NotFound) {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *Server) list(r *http.Request) (any, error) {
	from, err := rest.QueryDate(r, "from")
	if err != nil {
		return nil, err
	}
	to, err := rest.QueryDate(r, "to")
	if err != nil {
		return nil, err
	}
	return s.repo.List(r.Context(), from, to)
}

func (s *Server) today(r *http.Request) (any, error) {
	return s.OnDuty(r.Context(), checklist.Today(s.clock))
}

type assignmentRequest struct {
	Date       *date.Date `json:"date"`
	Shift      *Shift     `json:"shift"`
	ProviderID *string    `json:"providerId"`
	Notes      *string    `json:"notes"`
}

func (s *Server) apply(ctx context.Context, req *assignmentRequest, a *Assignment) error {
	if req.Date != nil {
		a.Date = *req.Date
	}
	if req.Shift != nil {
		a.Shift = *req.Shift
	}
	if req.ProviderID != nil {
		a.ProviderID = *req.ProviderID
	}
	if req.Notes != nil {
		a.Notes = *req.Notes
	}
	violations := map[string]string{}
	if a.Date.IsZero() {
		violations["date"] = "is required"
	}
	if !a.Shift.Valid() {
		violations["shift"] = "must be Day, Night or Weekend"
	}
	if a.ProviderID == "" {
		violations["providerId"] = "is required"
	} else {
		m, err := s.staffRepo.Get(ctx, a.ProviderID)
		switch {
		case cerr.IsCode(err, cerr.NotFound):
			violations["providerId"] = "unknown staff member"
		case err != nil:
			return err
		case m.Role != staff.RoleReadingProvider:
			violations["providerId"] = "staff member is not a reading provider"
		}
	}
	if len(violations) > 0 {
		return cerr.NewInvalidArgumentError("invalid assignment", violations)
	}

	existing, err := s.repo.List(ctx, a.Date, a.Date)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.ID != a.ID && e.Shift == a.Shift {
			return cerr.NewError(cerr.AlreadyExists, "shift already has a reading provider", nil)
		}
	}
	return nil
}

func (s *Server) create(r *http.Request) (any, error) {
	var req assignmentRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	now := time.Now()
	a := &Assignment{ID: ulid.Make().String(), Shift: ShiftDay, CreatedAt: now, UpdatedAt: now}
	if err := s.apply(r.Context(), &req, a); err != nil {
		return nil, err
	}
	if err := s.repo.Create(r.Context(), a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Server) update(r *http.Request) (any, error) {
	var req assignmentRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	a, err := s.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if err := s.apply(r.Context(), &req, a); err != nil {
		return nil, err
	}
	a.UpdatedAt = time.Now()
	if err := s.repo.Update(r.Context(), a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Server) delete(r *http.Request) (any, error) {
	return nil, s.repo.Delete(r.Context(), chi.URLParam(r, "id"))
}
