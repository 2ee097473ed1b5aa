package user

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/labtrack/internal/auth"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/rest"
)

type Server struct {
	repo   Repository
	issuer *auth.Issuer
}

func NewServer(repo Repository, issuer *auth.Issuer) *Server {
	return &Server{repo: repo, issuer: issuer}
}

// PublicRoutes are reachable without a session.
func (s *Server) PublicRoutes(r chi.Router) {
	r.Post("/auth/login", rest.Handle(s.login))
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/auth/me", rest.Handle(s.me))
	r.Post("/auth/password", rest.Handle(s.changeOwnPassword))
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(auth.RoleAdmin))
		r.Get("/users", rest.Handle(s.list))
		r.Post("/users", rest.Create(s.create))
		r.Patch("/users/{id}", rest.Handle(s.update))
		r.Post("/users/{id}/password", rest.Handle(s.resetPassword))
		r.Delete("/users/{id}", rest.Handle(s.delete))
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

func (s *Server) login(r *http.Request) (any, error) {
	var req loginRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	u, err := s.repo.FindByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil && !cerr.IsCode(err, cerr.NotFound) {
		return nil, err
	}
	if u == nil || !CheckPassword(u.PasswordHash, req.Password) {
		return nil, cerr.NewError(cerr.Unauthenticated, "invalid username or password", nil)
	}
	token, exp, err := s.issuer.Issue(u.Identity())
	if err != nil {
		return nil, err
	}
	return &loginResponse{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s *Server) me(r *http.Request) (any, error) {
	id, _ := auth.FromContext(r.Context())
	return s.repo.Get(r.Context(), id.UserID)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) changeOwnPassword(r *http.Request) (any, error) {
	var req changePasswordRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	id, _ := auth.FromContext(r.Context())
	u, err := s.repo.Get(r.Context(), id.UserID)
	if err != nil {
		return nil, err
	}
	if !CheckPassword(u.PasswordHash, req.CurrentPassword) {
		return nil, cerr.NewError(cerr.PermissionDenied, "current password is incorrect", nil)
	}
	if err := s.setPassword(r.Context(), u, req.NewPassword); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) list(r *http.Request) (any, error) {
	return s.repo.List(r.Context())
}

type createRequest struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Role        auth.Role `json:"role"`
	Password    string    `json:"password"`
}

func (s *Server) create(r *http.Request) (any, error) {
	var req createRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	return Register(r.Context(), s.repo, req.Username, req.DisplayName, req.Role, req.Password)
}

type updateRequest struct {
	DisplayName *string    `json:"displayName"`
	Role        *auth.Role `json:"role"`
}

func (s *Server) update(r *http.Request) (any, error) {
	var req updateRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	u, err := s.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if req.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, cerr.NewInvalidArgumentError("invalid user", map[string]string{"role": "must be admin or user"})
		}
		caller, _ := auth.FromContext(r.Context())
		if caller.UserID == u.ID && *req.Role != auth.RoleAdmin {
			return nil, cerr.NewError(cerr.FailedPrecondition, "cannot remove your own admin role", nil)
		}
		u.Role = *req.Role
	}
	u.UpdatedAt = time.Now()
	if err := s.repo.Update(r.Context(), u); err != nil {
		return nil, err
	}
	return u, nil
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (s *Server) resetPassword(r *http.Request) (any, error) {
	var req resetPasswordRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	u, err := s.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if err := s.setPassword(r.Context(), u, req.Password); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) delete(r *http.Request) (any, error) {
	id := chi.URLParam(r, "id")
	caller, _ := auth.FromContext(r.Context())
	if caller.UserID == id {
		return nil, cerr.NewError(cerr.FailedPrecondition, "cannot delete your own account", nil)
	}
	return nil, s.repo.Delete(r.Context(), id)
}

func (s *Server) setPassword(ctx context.Context, u *User, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now()
	return s.repo.Update(ctx, u)
}

// Register validates and stores a new user.
func Register(ctx context.Context, repo Repository, username, displayName string, role auth.Role, password string) (*User, error) {
	username = strings.TrimSpace(username)
	violations := map[string]string{}
	if username == "" {
		violations["username"] = "is required"
	}
	if !role.Valid() {
		violations["role"] = "must be admin or user"
	}
	if len(violations) > 0 {
		return nil, cerr.NewInvalidArgumentError("invalid user", violations)
	}
	if _, err := repo.FindByUsername(ctx, username); err == nil {
		return nil, cerr.NewError(cerr.AlreadyExists, "username already taken", nil)
	} else if !cerr.IsCode(err, cerr.NotFound) {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	if displayName = strings.TrimSpace(displayName); displayName == "" {
		displayName = username
	}
	now := time.Now()
	u := &User{
		ID:           ulid.Make().String(),
		Username:     username,
		DisplayName:  displayName,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// EnsureAdmin creates the bootstrap admin when no admin exists yet.
func EnsureAdmin(ctx context.Context, repo Repository, username, password string) error {
	users, err := repo.List(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Role == auth.RoleAdmin {
			return nil
		}
	}
	if password == "" {
		slog.Warn("no admin user exists and no bootstrap password is configured")
		return nil
	}
	if _, err := Register(ctx, repo, username, "Administrator", auth.RoleAdmin, password); err != nil {
		return err
	}
	slog.Info("created bootstrap admin", "username", username)
	return nil
}
