package pushnotification

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/labtrack/internal/auth"
	"github.com/kazz187/labtrack/internal/config"
	"github.com/kazz187/labtrack/pkg/cerr"
)

func newPushHandler(t *testing.T, id auth.Identity) (http.Handler, *Server) {
	t.Helper()
	sender, repo := newSender(t, &fakePush{})
	srv := NewServer(&config.VAPIDEnv{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv"}, repo, sender)
	return asUser(srv, id), srv
}

func asUser(srv *Server, id auth.Identity) http.Handler {
	r := chi.NewRouter()
	r.Use(cerr.NewConvertErrorChiMiddleware())
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.ContextWithIdentity(req.Context(), id)))
		})
	})
	srv.Routes(r)
	return r
}

func send(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestSubscriptionLifecycle(t *testing.T) {
	tech := auth.Identity{UserID: "u1", Username: "tech", Role: auth.RoleUser}
	h, srv := newPushHandler(t, tech)

	sub := map[string]any{
		"endpoint": "https://push.example/a",
		"keys":     map[string]string{"p256dh": "k", "auth": "a"},
		"statuses": []string{"Disconnected"},
	}
	rec := send(t, h, http.MethodPost, "/push/subscriptions", sub)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "p256dh")

	rec = send(t, h, http.MethodPost, "/push/subscriptions", map[string]any{
		"endpoint": "https://push.example/b",
		"keys":     map[string]string{"p256dh": "k", "auth": "a"},
		"statuses": []string{"In Progress"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"statuses[0]"`)

	var mine []subscriptionView
	rec = send(t, h, http.MethodGet, "/push/subscriptions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "https://push.example/a", mine[0].Endpoint)

	// another user can neither see nor remove it
	other := asUser(srv, auth.Identity{UserID: "u2", Username: "rn", Role: auth.RoleUser})
	rec = send(t, other, http.MethodGet, "/push/subscriptions", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
	rec = send(t, other, http.MethodDelete, "/push/subscriptions", map[string]string{"endpoint": "https://push.example/a"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = send(t, h, http.MethodDelete, "/push/subscriptions", map[string]string{"endpoint": "https://push.example/a"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = send(t, h, http.MethodGet, "/push/subscriptions", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
