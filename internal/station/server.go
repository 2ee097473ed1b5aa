package station

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/labtrack/internal/auth"
	"github.com/kazz187/labtrack/internal/eventbus"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/rest"
)

type Server struct {
	repo     Repository
	usage    UsageChecker
	eventBus *eventbus.Bus
}

func NewServer(repo Repository, usage UsageChecker, eventBus *eventbus.Bus) *Server {
	return &Server{repo: repo, usage: usage, eventBus: eventBus}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/stations", rest.Handle(s.list))
	r.Get("/stations/{id}", rest.Handle(s.get))
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(auth.RoleAdmin))
		r.Post("/stations", rest.Create(s.create))
		r.Patch("/stations/{id}", rest.Handle(s.update))
		r.Delete("/stations/{id}", rest.Handle(s.delete))
	})
}

func (s *Server) list(r *http.Request) (any, error) {
	q := r.URL.Query()
	return s.repo.List(r.Context(), Status(q.Get("status")), Type(q.Get("type")))
}

func (s *Server) get(r *http.Request) (any, error) {
	return s.repo.Get(r.Context(), chi.URLParam(r, "id"))
}

type stationRequest struct {
	Name     *string `json:"name"`
	Type     *Type   `json:"type"`
	Location *string `json:"location"`
	AssetTag *string `json:"assetTag"`
	Status   *Status `json:"status"`
	Notes    *string `json:"notes"`
}

func (req *stationRequest) apply(st *Station) error {
	if req.Name != nil {
		st.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		st.Type = *req.Type
	}
	if req.Location != nil {
		st.Location = strings.TrimSpace(*req.Location)
	}
	if req.AssetTag != nil {
		st.AssetTag = strings.TrimSpace(*req.AssetTag)
	}
	if req.Status != nil {
		st.Status = *req.Status
	}
	if req.Notes != nil {
		st.Notes = *req.Notes
	}
	violations := map[string]string{}
	if st.Name == "" {
		violations["name"] = "is required"
	}
	if !st.Type.Valid() {
		violations["type"] = "must be Ambulatory, Portable, Bedside or Reading"
	}
	if !st.Status.Valid() {
		violations["status"] = "must be Available, In Use, Maintenance or Retired"
	}
	if len(violations) > 0 {
		return cerr.NewInvalidArgumentError("invalid station", violations)
	}
	return nil
}

func (s *Server) create(r *http.Request) (any, error) {
	var req stationRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	now := time.Now()
	st := &Station{
		ID:        ulid.Make().String(),
		Status:    StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := req.apply(st); err != nil {
		return nil, err
	}
	if err := s.repo.Create(r.Context(), st); err != nil {
		return nil, err
	}
	s.eventBus.PublishNew(eventbus.StationUpdated, st.ID, map[string]string{"status": string(st.Status)})
	return st, nil
}

func (s *Server) update(r *http.Request) (any, error) {
	var req stationRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	st, err := s.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if err := req.apply(st); err != nil {
		return nil, err
	}
	st.UpdatedAt = time.Now()
	if err := s.repo.Update(r.Context(), st); err != nil {
		return nil, err
	}
	s.eventBus.PublishNew(eventbus.StationUpdated, st.ID, map[string]string{"status": string(st.Status)})
	return st, nil
}

func (s *Server) delete(r *http.Request) (any, error) {
	id := chi.URLParam(r, "id")
	if s.usage != nil {
		inUse, err := s.usage.StationInUse(r.Context(), id)
		if err != nil {
			return nil, err
		}
		if inUse {
			return nil, cerr.NewError(cerr.FailedPrecondition, "station is assigned to open tasks", nil)
		}
	}
	if err := s.repo.Delete(r.Context(), id); err != nil {
		return nil, err
	}
	s.eventBus.PublishNew(eventbus.StationUpdated, id, map[string]string{"deleted": "true"})
	return nil, nil
}
