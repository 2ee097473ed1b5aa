package whiteboard_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/labtrack/internal/auth"
	"github.com/kazz187/labtrack/internal/eventbus"
	"github.com/kazz187/labtrack/internal/whiteboard"
	"github.com/kazz187/labtrack/internal/whiteboard/repositoryimpl"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/storage"
)

func strPtr(s string) *string { return &s }

func newServer(t *testing.T) (*whiteboard.Server, http.Handler, <-chan *eventbus.Event) {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	bus := eventbus.New()
	_, events := bus.Subscribe(16)
	srv := whiteboard.NewServer(repositoryimpl.NewYAMLRepository(s), bus)

	r := chi.NewRouter()
	r.Use(cerr.NewConvertErrorChiMiddleware())
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := auth.ContextWithIdentity(req.Context(), auth.Identity{Username: "lead"})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	srv.Routes(r)
	return srv, r, events
}

func TestEmptyBoard(t *testing.T) {
	_, h, _ := newServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whiteboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var b whiteboard.Board
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Empty(t, b.Entries)
}

func TestUpsertAndOrdering(t *testing.T) {
	ctx := context.Background()
	srv, h, events := newServer(t)

	a, err := srv.Upsert(ctx, whiteboard.EntryRequest{Section: strPtr("Day"), Text: strPtr("Cart 3 down")}, "lead")
	require.NoError(t, err)
	_, err = srv.Upsert(ctx, whiteboard.EntryRequest{Section: strPtr("Day"), Text: strPtr("Huddle 7am")}, "lead")
	require.NoError(t, err)
	pinned := true
	_, err = srv.Upsert(ctx, whiteboard.EntryRequest{ID: a.ID, Pinned: &pinned, Color: strPtr("#FF0000")}, "sup")
	require.NoError(t, err)
	_, err = srv.Upsert(ctx, whiteboard.EntryRequest{Section: strPtr("Coverage"), Text: strPtr("Dr. Lee on call")}, "lead")
	require.NoError(t, err)
	assert.Len(t, events, 4)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whiteboard", nil))
	var b whiteboard.Board
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	require.Len(t, b.Entries, 3)
	assert.Equal(t, "Dr. Lee on call", b.Entries[0].Text)
	assert.Equal(t, "Cart 3 down", b.Entries[1].Text)
	assert.Equal(t, "sup", b.Entries[1].UpdatedBy)
	assert.Equal(t, "#FF0000", b.Entries[1].Color)
}

func TestUpsertValidation(t *testing.T) {
	ctx := context.Background()
	srv, _, _ := newServer(t)

	_, err := srv.Upsert(ctx, whiteboard.EntryRequest{Text: strPtr("x")}, "lead")
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
	_, err = srv.Upsert(ctx, whiteboard.EntryRequest{Section: strPtr("Day"), Text: strPtr("x"), Color: strPtr("red")}, "lead")
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
	_, err = srv.Upsert(ctx, whiteboard.EntryRequest{ID: "missing", Text: strPtr("x")}, "lead")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestDeleteAndClearSection(t *testing.T) {
	ctx := context.Background()
	srv, h, _ := newServer(t)
	a, err := srv.Upsert(ctx, whiteboard.EntryRequest{Section: strPtr("Night"), Text: strPtr("one")}, "lead")
	require.NoError(t, err)
	_, err = srv.Upsert(ctx, whiteboard.EntryRequest{Section: strPtr("Night"), Text: strPtr("two")}, "lead")
	require.NoError(t, err)
	_, err = srv.Upsert(ctx, whiteboard.EntryRequest{Section: strPtr("Day"), Text: strPtr("three")}, "lead")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/whiteboard/entries/"+a.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/whiteboard/entries/"+a.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/whiteboard/sections/Night", bytes.NewReader(nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whiteboard", nil))
	var b whiteboard.Board
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	require.Len(t, b.Entries, 1)
	assert.Equal(t, "three", b.Entries[0].Text)
}
