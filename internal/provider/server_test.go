package provider_test

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
	"github.com/kazz187/labtrack/internal/checklist"
	"github.com/kazz187/labtrack/internal/provider"
	"github.com/kazz187/labtrack/internal/provider/repositoryimpl"
	"github.com/kazz187/labtrack/internal/staff"
	staffrepo "github.com/kazz187/labtrack/internal/staff/repositoryimpl"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/date"
	"github.com/kazz187/labtrack/pkg/storage"
)

type env struct {
	server  *provider.Server
	handler http.Handler
	drLee   *staff.Member
	tech    *staff.Member
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	members := staffrepo.NewYAMLRepository(s)
	drLee := &staff.Member{ID: "S1", Name: "Dr. Lee", Role: staff.RoleReadingProvider, Active: true}
	tech := &staff.Member{ID: "S2", Name: "Pat", Role: staff.RoleTechnologist, Active: true}
	require.NoError(t, members.Create(ctx, drLee))
	require.NoError(t, members.Create(ctx, tech))

	clock := &checklist.FixedClock{T: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
	srv := provider.NewServer(repositoryimpl.NewYAMLRepository(s), members, clock)

	r := chi.NewRouter()
	r.Use(cerr.NewConvertErrorChiMiddleware())
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := auth.ContextWithIdentity(req.Context(), auth.Identity{UserID: "u1", Username: "admin", Role: auth.RoleAdmin})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	srv.Routes(r)
	return &env{server: srv, handler: r, drLee: drLee, tech: tech}
}

func (e *env) call(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestAssignmentValidation(t *testing.T) {
	e := newEnv(t)

	var a provider.Assignment
	code := e.call(t, http.MethodPost, "/providers/assignments",
		map[string]any{"date": "2024-03-04", "shift": "Day", "providerId": e.drLee.ID}, &a)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "2024-03-04", a.Date.String())

	// one provider per date and shift
	code = e.call(t, http.MethodPost, "/providers/assignments",
		map[string]any{"date": "2024-03-04", "shift": "Day", "providerId": e.drLee.ID}, nil)
	assert.Equal(t, http.StatusConflict, code)

	code = e.call(t, http.MethodPost, "/providers/assignments",
		map[string]any{"date": "2024-03-04", "shift": "Night", "providerId": e.tech.ID}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code = e.call(t, http.MethodPost, "/providers/assignments",
		map[string]any{"date": "2024-03-04", "shift": "Evening", "providerId": e.drLee.ID}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code = e.call(t, http.MethodPost, "/providers/assignments",
		map[string]any{"shift": "Night", "providerId": e.drLee.ID}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListAndToday(t *testing.T) {
	e := newEnv(t)
	for _, body := range []map[string]any{
		{"date": "2024-03-05", "shift": "Day", "providerId": e.drLee.ID},
		{"date": "2024-03-04", "shift": "Night", "providerId": e.drLee.ID},
		{"date": "2024-03-04", "shift": "Day", "providerId": e.drLee.ID, "notes": "covering"},
	} {
		require.Equal(t, http.StatusCreated, e.call(t, http.MethodPost, "/providers/assignments", body, nil))
	}

	var list []provider.Assignment
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/providers/assignments?from=2024-03-04&to=2024-03-05", nil, &list))
	require.Len(t, list, 3)
	assert.Equal(t, provider.ShiftDay, list[0].Shift)
	assert.Equal(t, "covering", list[0].Notes)
	assert.Equal(t, provider.ShiftNight, list[1].Shift)
	assert.Equal(t, "2024-03-05", list[2].Date.String())

	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodGet, "/providers/assignments?from=yesterday", nil, nil))

	day, err := date.Parse("2024-03-04")
	require.NoError(t, err)
	onDuty, err := e.server.OnDuty(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, onDuty, 2)
	assert.Equal(t, "Dr. Lee", onDuty[0].Provider.Name)

	var today []provider.OnDutyEntry
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/providers/today", nil, &today))
	assert.Len(t, today, 2)
}

func TestUpdateAndDelete(t *testing.T) {
	e := newEnv(t)
	var a provider.Assignment
	require.Equal(t, http.StatusCreated, e.call(t, http.MethodPost, "/providers/assignments",
		map[string]any{"date": "2024-03-04", "shift": "Day", "providerId": e.drLee.ID}, &a))

	var updated provider.Assignment
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPatch, "/providers/assignments/"+a.ID,
		map[string]any{"shift": "Weekend"}, &updated))
	assert.Equal(t, provider.ShiftWeekend, updated.Shift)

	assert.Equal(t, http.StatusNoContent, e.call(t, http.MethodDelete, "/providers/assignments/"+a.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, e.call(t, http.MethodPatch, "/providers/assignments/"+a.ID, map[string]any{}, nil))
}
