package internal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	server "github.com/kazz187/labtrack/internal"
	"github.com/kazz187/labtrack/internal/activity"
	"github.com/kazz187/labtrack/internal/auth"
	"github.com/kazz187/labtrack/internal/checklist"
	"github.com/kazz187/labtrack/internal/config"
	"github.com/kazz187/labtrack/internal/dashboard"
	"github.com/kazz187/labtrack/internal/eventbus"
	"github.com/kazz187/labtrack/internal/eventstream"
	"github.com/kazz187/labtrack/internal/file"
	filerepo "github.com/kazz187/labtrack/internal/file/repositoryimpl"
	"github.com/kazz187/labtrack/internal/metrics"
	"github.com/kazz187/labtrack/internal/provider"
	providerrepo "github.com/kazz187/labtrack/internal/provider/repositoryimpl"
	"github.com/kazz187/labtrack/internal/pushnotification"
	pushsubrepo "github.com/kazz187/labtrack/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/labtrack/internal/report"
	"github.com/kazz187/labtrack/internal/staff"
	staffrepo "github.com/kazz187/labtrack/internal/staff/repositoryimpl"
	"github.com/kazz187/labtrack/internal/station"
	stationrepo "github.com/kazz187/labtrack/internal/station/repositoryimpl"
	"github.com/kazz187/labtrack/internal/task"
	taskrepo "github.com/kazz187/labtrack/internal/task/repositoryimpl"
	"github.com/kazz187/labtrack/internal/user"
	userrepo "github.com/kazz187/labtrack/internal/user/repositoryimpl"
	"github.com/kazz187/labtrack/internal/whiteboard"
	whiteboardrepo "github.com/kazz187/labtrack/internal/whiteboard/repositoryimpl"
	"github.com/kazz187/labtrack/pkg/storage"
)

func newHandler(t *testing.T) (http.Handler, *metrics.Metrics) {
	t.Helper()
	ctx := context.Background()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	env := &config.Env{}
	clock := &checklist.FixedClock{T: time.Date(2024, 3, 4, 14, 15, 0, 0, time.UTC)}
	engine := checklist.NewEngine(checklist.DefaultCatalog(), checklist.WithClock(clock))
	bus := eventbus.New()

	users := userrepo.NewYAMLRepository(store)
	require.NoError(t, user.EnsureAdmin(ctx, users, "admin", "correct horse"))
	issuer := auth.NewIssuer("test-secret", time.Hour)

	tasks := taskrepo.NewYAMLRepository(store)
	stations := stationrepo.NewYAMLRepository(store)
	members := staffrepo.NewYAMLRepository(store)
	subs := pushsubrepo.NewYAMLRepository(store)

	taskService := task.NewService(tasks, engine, bus, stations, members)
	fileService := file.NewService(filerepo.NewFolderRepository(store), filerepo.NewFileRepository(store), store, bus, 1<<20)
	providerServer := provider.NewServer(providerrepo.NewYAMLRepository(store), members, clock)
	sender := pushnotification.NewSender(&env.VAPIDEnv, subs)
	m := metrics.New()

	srv := server.NewServer(
		env,
		issuer,
		m,
		user.NewServer(users, issuer),
		task.NewServer(taskService),
		station.NewServer(stations, taskService, bus),
		staff.NewServer(members),
		providerServer,
		whiteboard.NewServer(whiteboardrepo.NewYAMLRepository(store), bus),
		file.NewServer(fileService),
		dashboard.NewServer(taskService, stations, providerServer, clock),
		report.NewGenerator(taskService, members, stations, clock),
		pushnotification.NewServer(&env.VAPIDEnv, subs, sender),
		eventstream.NewServer(bus),
		activity.NewServer(activity.NewLogger(store, time.UTC), clock),
	)
	return srv.Handler(), m
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
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
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "correct horse"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	h, _ := newHandler(t)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/metrics", "", nil).Code)
}

func TestAPIRequiresToken(t *testing.T) {
	h, _ := newHandler(t)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/tasks", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/tasks", "garbage", nil).Code)

	rec := do(t, h, http.MethodGet, "/api/nope", login(t, h), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"not_found"`)
}

func TestTaskLifecycleThroughAPI(t *testing.T) {
	h, m := newHandler(t)
	token := login(t, h)

	rec := do(t, h, http.MethodPost, "/api/tasks", token, map[string]any{"title": "Bed 12", "orderType": "Routine EEG"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created task.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Checklist)
	assert.Equal(t, checklist.StatusPending, created.Status)

	items := make([]map[string]any, 0, len(created.Checklist))
	for _, it := range created.Checklist {
		items = append(items, map[string]any{"text": it.Text, "completed": true})
	}
	rec = do(t, h, http.MethodPut, "/api/tasks/"+created.ID+"/checklist", token, map[string]any{"items": items})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var done task.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &done))
	assert.Equal(t, 100, done.Progress)
	assert.NotEqual(t, checklist.StatusPending, done.Status)

	rec = do(t, h, http.MethodGet, "/api/activity", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `route="/api/tasks"`), "request counter labelled by route pattern")
	assert.NotNil(t, m.Registry())
}
