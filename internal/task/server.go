package task

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/labtrack/internal/auth"
	"github.com/kazz187/labtrack/internal/checklist"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/rest"
)

type Server struct {
	service *Service
}

func NewServer(service *Service) *Server {
	return &Server{service: service}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/catalog", rest.Handle(s.catalog))
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", rest.Handle(s.list))
		r.Post("/", rest.Create(s.create))
		r.Get("/{id}", rest.Handle(s.get))
		r.Patch("/{id}", rest.Handle(s.update))
		r.With(auth.RequireRole(auth.RoleAdmin)).Delete("/{id}", rest.Handle(s.delete))
		r.Post("/{id}/checklist", rest.Create(s.addItem))
		r.Put("/{id}/checklist", rest.Handle(s.replaceChecklist))
		r.Patch("/{id}/checklist/{index}", rest.Handle(s.updateItem))
		r.Delete("/{id}/checklist/{index}", rest.Handle(s.removeItem))
	})
}

type orderType struct {
	Name   string   `json:"name"`
	Labels []string `json:"labels"`
}

func (s *Server) catalog(_ *http.Request) (any, error) {
	cat := s.service.Engine().Catalog()
	names := cat.OrderTypes()
	out := make([]orderType, 0, len(names))
	for _, n := range names {
		out = append(out, orderType{Name: n, Labels: cat.Labels(n)})
	}
	return map[string]any{
		"orderTypes":  out,
		"statuses":    checklist.Statuses(),
		"priorities":  Priorities(),
		"prunePolicy": s.service.Engine().Policy().String(),
	}, nil
}

func (s *Server) list(r *http.Request) (any, error) {
	q := r.URL.Query()
	query := Query{
		Filter: Filter{
			OrderType:  q.Get("orderType"),
			Priority:   Priority(q.Get("priority")),
			StationID:  q.Get("stationId"),
			AssigneeID: q.Get("assigneeId"),
		},
		Status: checklist.Status(q.Get("status")),
	}
	violations := map[string]string{}
	if query.Status != "" && !query.Status.Valid() {
		violations["status"] = "unknown status"
	}
	if query.Priority != "" && !query.Priority.Valid() {
		violations["priority"] = "unknown priority"
	}
	if len(violations) > 0 {
		return nil, cerr.NewInvalidArgumentError("invalid query parameter", violations)
	}
	var err error
	if query.CompletedFrom, err = rest.QueryDate(r, "completedFrom"); err != nil {
		return nil, err
	}
	if query.CompletedTo, err = rest.QueryDate(r, "completedTo"); err != nil {
		return nil, err
	}
	if query.Limit, query.Offset, err = rest.Pagination(r); err != nil {
		return nil, err
	}

	tasks, total, err := s.service.List(r.Context(), query)
	if err != nil {
		return nil, err
	}
	return rest.Page[*Task]{Items: tasks, Total: total, Limit: query.Limit, Offset: query.Offset}, nil
}

func (s *Server) create(r *http.Request) (any, error) {
	var in CreateInput
	if err := rest.Decode(r, &in); err != nil {
		return nil, err
	}
	id, _ := auth.FromContext(r.Context())
	return s.service.Create(r.Context(), in, id.Username)
}

func (s *Server) get(r *http.Request) (any, error) {
	return s.service.Get(r.Context(), chi.URLParam(r, "id"))
}

func (s *Server) update(r *http.Request) (any, error) {
	var in UpdateInput
	if err := rest.Decode(r, &in); err != nil {
		return nil, err
	}
	return s.service.Update(r.Context(), chi.URLParam(r, "id"), in)
}

func (s *Server) delete(r *http.Request) (any, error) {
	return nil, s.service.Delete(r.Context(), chi.URLParam(r, "id"))
}

type addItemRequest struct {
	Text string `json:"text"`
}

func (s *Server) addItem(r *http.Request) (any, error) {
	var req addItemRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	return s.service.AddItem(r.Context(), chi.URLParam(r, "id"), req.Text)
}

type replaceChecklistRequest struct {
	Items []ItemInput `json:"items"`
}

func (s *Server) replaceChecklist(r *http.Request) (any, error) {
	var req replaceChecklistRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	return s.service.ReplaceChecklist(r.Context(), chi.URLParam(r, "id"), req.Items)
}

func (s *Server) updateItem(r *http.Request) (any, error) {
	index, err := itemIndex(r)
	if err != nil {
		return nil, err
	}
	var in ItemUpdate
	if err := rest.Decode(r, &in); err != nil {
		return nil, err
	}
	return s.service.UpdateItem(r.Context(), chi.URLParam(r, "id"), index, in)
}

func (s *Server) removeItem(r *http.Request) (any, error) {
	index, err := itemIndex(r)
	if err != nil {
		return nil, err
	}
	return s.service.RemoveItem(r.Context(), chi.URLParam(r, "id"), index)
}

func itemIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, cerr.NewInvalidArgumentError("invalid checklist index", map[string]string{
			"index": "must be an integer",
		})
	}
	return index, nil
}
