package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileSystemStore(t *testing.T) {
	t.Run("empty profile returns error", func(t *testing.T) {
		_, err := NewFileSystemStore(t.TempDir(), "")
		require.Error(t, err)
	})

	t.Run("default directory honours test paths", func(t *testing.T) {
		dir := t.TempDir()
		SetTestPaths(dir)
		defer ResetPaths()

		s, err := NewFileSystemStore("", "p1")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "p1.state.json"), s.Path())
	})
}

func TestFileSystemStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileSystemStore(dir, "default")
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok, "missing file reads as empty state")

	require.NoError(t, s.Set(ctx, KeyToken, "tok-1"))
	require.NoError(t, s.Set(ctx, KeyCurrentStoreID, "42"))

	v, ok, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", v)

	// A second handle sees the same state.
	other, err := NewFileSystemStore(dir, "default")
	require.NoError(t, err)
	v, ok, err = other.Get(ctx, KeyCurrentStoreID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", v)

	require.NoError(t, s.Delete(ctx, KeyToken))
	require.NoError(t, s.Delete(ctx, KeyToken), "deleting an absent key is not an error")
	_, ok, err = other.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileSystemStore_FileLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileSystemStore(dir, "work")
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyToken, "abc"))

	data, err := os.ReadFile(filepath.Join(dir, "work.state.json"))
	require.NoError(t, err)

	var state stateFile
	require.NoError(t, json.Unmarshal(data, &state))
	assert.Equal(t, currentSchemaVersion, state.Version)
	assert.Equal(t, map[string]string{"token": "abc"}, state.Values)
	assert.False(t, state.UpdatedAt.IsZero())

	if runtime.GOOS != "windows" {
		info, err := os.Stat(s.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestFileSystemStore_ProfilesAreIndependent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a, err := NewFileSystemStore(dir, "a")
	require.NoError(t, err)
	b, err := NewFileSystemStore(dir, "b")
	require.NoError(t, err)

	require.NoError(t, a.Set(ctx, KeyToken, "token-a"))
	_, ok, err := b.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileSystemStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSystemStore(dir, "default")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0600))

	_, _, err = s.Get(context.Background(), KeyToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestFileSystemStore_Closed(t *testing.T) {
	s, err := NewFileSystemStore(t.TempDir(), "default")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, _, err = s.Get(context.Background(), KeyToken)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set(context.Background(), KeyToken, "x"), ErrClosed)
}

func TestFileSystemStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		s, err := NewFileSystemStore(dir, "shared")
		require.NoError(t, err)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			assert.NoError(t, s.Set(ctx, key, key))
		}(i)
	}
	wg.Wait()

	s, err := NewFileSystemStore(dir, "shared")
	require.NoError(t, err)
	for i := 0; i < writers; i++ {
		key := string(rune('a' + i))
		v, ok, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, "lost update for %s", key)
		assert.Equal(t, key, v)
	}
}

func TestFileSystemStore_LockWaitHonoursContext(t *testing.T) {
	orig := acquireFileLock
	defer func() { acquireFileLock = orig }()
	acquireFileLock = func(string) (*os.File, error) { return nil, ErrWouldBlock }

	s, err := NewFileSystemStore(t.TempDir(), "default")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err = s.Get(ctx, KeyToken)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
