package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Read(ctx, "tasks/missing.yaml")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Write(ctx, "tasks/b.yaml", []byte("b")))
	require.NoError(t, s.Write(ctx, "/tasks/a.yaml", []byte("a")))
	require.NoError(t, s.Write(ctx, "stations/c.yaml", []byte("c")))

	data, err := s.Read(ctx, "tasks/a.yaml")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)

	ok, err := s.Exists(ctx, "tasks/b.yaml")
	require.NoError(t, err)
	assert.True(t, ok)

	keys, err := s.List(ctx, "tasks/")
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks/a.yaml", "tasks/b.yaml"}, keys)

	require.NoError(t, s.Delete(ctx, "tasks/a.yaml"))
	assert.ErrorIs(t, s.Delete(ctx, "tasks/a.yaml"), ErrNotFound)
	ok, err = s.Exists(ctx, "tasks/a.yaml")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorageAppend(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Append(ctx, "activity/events_2024-03-04.ndjson", []byte("{\"id\":\"1\"}\n")))
	require.NoError(t, s.Append(ctx, "activity/events_2024-03-04.ndjson", []byte("{\"id\":\"2\"}\n")))
	data, err := s.Read(ctx, "activity/events_2024-03-04.ndjson")
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":\"1\"}\n{\"id\":\"2\"}\n", string(data))
}

func TestLocalStorageListSkipsLeftoverTempFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStorage(root)
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "tasks/a.yaml", []byte("a")))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tasks", ".a.yaml123.tmp"), []byte("partial"), 0o644))

	keys, err := s.List(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks/a.yaml"}, keys)
}

func TestLocalStorageRejectsKeysOutsideRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStorage(filepath.Join(root, "data"))
	require.NoError(t, err)

	for _, key := range []string{"", "../secret.yaml", "tasks/../../secret.yaml", `tasks\..\x`} {
		assert.ErrorIs(t, s.Write(ctx, key, []byte("x")), ErrInvalidKey, key)
		_, err := s.Read(ctx, key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
	_, err = os.Stat(filepath.Join(root, "secret.yaml"))
	assert.True(t, os.IsNotExist(err))

	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tasks/a.yaml", "tasks/a.yaml"},
		{"/tasks/a.yaml/", "tasks/a.yaml"},
		{"blobs/01HXYZ", "blobs/01HXYZ"},
	}
	for _, tt := range tests {
		got, err := CleanKey(tt.in, false)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	_, err := CleanKey("a//b", false)
	assert.ErrorIs(t, err, ErrInvalidKey)
	got, err := CleanKey("/", true)
	require.NoError(t, err)
	assert.Empty(t, got)
}
