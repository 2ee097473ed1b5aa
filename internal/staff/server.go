package staff

import (
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/labtrack/internal/auth"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/rest"
)

type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/staff", rest.Handle(s.list))
	r.Get("/staff/{id}", rest.Handle(s.get))
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(auth.RoleAdmin))
		r.Post("/staff", rest.Create(s.create))
		r.Patch("/staff/{id}", rest.Handle(s.update))
		r.Delete("/staff/{id}", rest.Handle(s.delete))
	})
}

func (s *Server) list(r *http.Request) (any, error) {
	q := r.URL.Query()
	return s.repo.List(r.Context(), Role(q.Get("role")), q.Get("active") == "true")
}

func (s *Server) get(r *http.Request) (any, error) {
	return s.repo.Get(r.Context(), chi.URLParam(r, "id"))
}

type memberRequest struct {
	Name   *string `json:"name"`
	Role   *Role   `json:"role"`
	Email  *string `json:"email"`
	Phone  *string `json:"phone"`
	Active *bool   `json:"active"`
}

func (req *memberRequest) apply(m *Member) error {
	if req.Name != nil {
		m.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		m.Role = *req.Role
	}
	if req.Email != nil {
		m.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		m.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Active != nil {
		m.Active = *req.Active
	}
	violations := map[string]string{}
	if m.Name == "" {
		violations["name"] = "is required"
	}
	if !m.Role.Valid() {
		violations["role"] = "must be Technologist, Lead Technologist, Supervisor or Reading Provider"
	}
	if m.Email != "" {
		if _, err := mail.ParseAddress(m.Email); err != nil {
			violations["email"] = "is not a valid address"
		}
	}
	if len(violations) > 0 {
		return cerr.NewInvalidArgumentError("invalid staff member", violations)
	}
	return nil
}

func (s *Server) create(r *http.Request) (any, error) {
	var req memberRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	now := time.Now()
	m := &Member{
		ID:        ulid.Make().String(),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := req.apply(m); err != nil {
		return nil, err
	}
	if err := s.repo.Create(r.Context(), m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Server) update(r *http.Request) (any, error) {
	var req memberRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	m, err := s.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if err := req.apply(m); err != nil {
		return nil, err
	}
	m.UpdatedAt = time.Now()
	if err := s.repo.Update(r.Context(), m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Server) delete(r *http.Request) (any, error) {
	return nil, s.repo.Delete(r.Context(), chi.URLParam(r, "id"))
}
