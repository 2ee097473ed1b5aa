package user_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/labtrack/internal/auth"
	"github.com/kazz187/labtrack/internal/user"
	"github.com/kazz187/labtrack/internal/user/repositoryimpl"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/storage"
)

type fixture struct {
	repo    user.Repository
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := repositoryimpl.NewYAMLRepository(s)
	iss := auth.NewIssuer("secret", time.Hour)
	srv := user.NewServer(repo, iss)

	r := chi.NewRouter()
	r.Use(cerr.NewConvertErrorChiMiddleware())
	srv.PublicRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(iss))
		srv.Routes(r)
	})
	return &fixture{repo: repo, handler: r}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, user.EnsureAdmin(ctx, f.repo, "admin", ""))
	users, err := f.repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, user.EnsureAdmin(ctx, f.repo, "admin", "correct horse"))
	require.NoError(t, user.EnsureAdmin(ctx, f.repo, "admin", "correct horse"))
	users, err = f.repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, auth.RoleAdmin, users[0].Role)
	assert.NotEqual(t, "correct horse", users[0].PasswordHash)
}

func TestLoginAndRoleGating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, user.EnsureAdmin(ctx, f.repo, "admin", "correct horse"))

	rec := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "admin", "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "nobody", "password": "whatever1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	admin := f.login(t, "admin", "correct horse")

	rec = f.do(t, http.MethodPost, "/users", admin, map[string]string{
		"username": "tech1", "displayName": "Tech One", "role": "user", "password": "eegeegeeg",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = f.do(t, http.MethodPost, "/users", admin, map[string]string{
		"username": "TECH1", "role": "user", "password": "eegeegeeg",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/users", admin, map[string]string{
		"username": "", "role": "superuser", "password": "eegeegeeg",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"role"`)

	tech := f.login(t, "tech1", "eegeegeeg")
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/users", tech, nil).Code)

	rec = f.do(t, http.MethodGet, "/auth/me", tech, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"tech1"`)
}

func TestChangeOwnPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := user.Register(ctx, f.repo, "tech1", "", auth.RoleUser, "eegeegeeg")
	require.NoError(t, err)
	token := f.login(t, "tech1", "eegeegeeg")

	rec := f.do(t, http.MethodPost, "/auth/password", token, map[string]string{
		"currentPassword": "wrong", "newPassword": "newpassword",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/password", token, map[string]string{
		"currentPassword": "eegeegeeg", "newPassword": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/password", token, map[string]string{
		"currentPassword": "eegeegeeg", "newPassword": "newpassword",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	f.login(t, "tech1", "newpassword")
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, user.EnsureAdmin(ctx, f.repo, "admin", "correct horse"))
	admin := f.login(t, "admin", "correct horse")
	u, err := f.repo.FindByUsername(ctx, "admin")
	require.NoError(t, err)

	rec := f.do(t, http.MethodDelete, "/users/"+u.ID, admin, nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}
