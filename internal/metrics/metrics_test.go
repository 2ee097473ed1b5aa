package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/labtrack/internal/eventbus"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/tasks/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tasks/"+id, nil))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/tasks/{id}", "404")))
}

func TestObserveTransitions(t *testing.T) {
	m := New()
	m.Observe(&eventbus.Event{Type: eventbus.TaskStatusChanged, Metadata: map[string]string{"from": "Pending", "to": "In Progress"}})
	m.Observe(&eventbus.Event{Type: eventbus.TaskStatusChanged, Metadata: map[string]string{"from": "Pending", "to": "In Progress"}})
	m.Observe(&eventbus.Event{Type: eventbus.TaskCreated})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.taskTransitions.WithLabelValues("Pending", "In Progress")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("task.created")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `labtrack_task_status_transitions_total{from="Pending",to="In Progress"} 2`))
}
