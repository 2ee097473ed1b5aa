package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/storage"
)

type widget struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

func newCollection(t *testing.T) (*Collection[widget], storage.Storage) {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewCollection(s, "widgets", "widget", func(w *widget) string { return w.ID }), s
}

func TestCollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	c, _ := newCollection(t)

	require.NoError(t, c.Create(ctx, &widget{ID: "b", Name: "second"}))
	require.NoError(t, c.Create(ctx, &widget{ID: "a", Name: "first"}))

	err := c.Create(ctx, &widget{ID: "a"})
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists))

	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)

	all, err := c.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)

	got.Name = "renamed"
	require.NoError(t, c.Update(ctx, got))
	found, err := c.Find(ctx, func(w *widget) bool { return w.Name == "renamed" })
	require.NoError(t, err)
	assert.Equal(t, "a", found.ID)

	err = c.Update(ctx, &widget{ID: "missing"})
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	require.NoError(t, c.Delete(ctx, "a"))
	_, err = c.Get(ctx, "a")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
	assert.True(t, cerr.IsCode(c.Delete(ctx, "a"), cerr.NotFound))
}

func TestCollectionSkipsMalformedDocuments(t *testing.T) {
	ctx := context.Background()
	c, s := newCollection(t)
	require.NoError(t, c.Put(ctx, &widget{ID: "ok"}))
	require.NoError(t, s.Write(ctx, "widgets/bad.yaml", []byte("id: [unterminated")))

	all, err := c.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "ok", all[0].ID)
}

func TestPage(t *testing.T) {
	in := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, Page(in, 2, 0))
	assert.Equal(t, []int{4, 5}, Page(in, 0, 3))
	assert.Nil(t, Page(in, 2, 5))
	assert.Equal(t, in, Page(in, 0, -1))
}
