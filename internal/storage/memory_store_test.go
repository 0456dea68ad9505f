package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	_, ok, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyToken, "t"))
	v, ok, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t", v)

	require.NoError(t, s.Delete(ctx, KeyToken))
	require.NoError(t, s.Delete(ctx, KeyToken))
	_, ok, _ = s.Get(ctx, KeyToken)
	assert.False(t, ok)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Set(ctx, KeyToken, "t"), ErrClosed)
}

func TestInMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewInMemoryStore().Get(ctx, KeyToken)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenInMemoryStore_SharedByProfile(t *testing.T) {
	defer ClearAllInMemoryStores()
	ctx := context.Background()

	a := OpenInMemoryStore("p")
	b := OpenInMemoryStore("p")
	c := OpenInMemoryStore("q")

	require.NoError(t, a.Set(ctx, KeyCurrentStoreID, "7"))

	v, ok, err := b.Get(ctx, KeyCurrentStoreID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "7", v)

	_, ok, err = c.Get(ctx, KeyCurrentStoreID)
	require.NoError(t, err)
	assert.False(t, ok)

	ClearAllInMemoryStores()
	_, ok, _ = OpenInMemoryStore("p").Get(ctx, KeyCurrentStoreID)
	assert.False(t, ok)
}
