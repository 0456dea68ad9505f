package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/storefront/internal/apierr"
	"github.com/joeycumines/storefront/internal/storage"
)

type fakeLister struct {
	stores []Store
	err    error
	calls  int
}

func (f *fakeLister) ListStores(context.Context) ([]Store, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]Store(nil), f.stores...), nil
}

func threeStores() []Store {
	return []Store{
		{ID: 10, Name: "Ten", Subdomain: "ten"},
		{ID: 20, Name: "Twenty", Subdomain: "twenty"},
		{ID: 30, Name: "Thirty", Subdomain: "thirty"},
	}
}

func TestSelection_DefaultsToFirstStore(t *testing.T) {
	st := storage.NewInMemoryStore()
	sel := NewSelection(&fakeLister{stores: threeStores()}, st, nil)

	_, ok := sel.Current()
	assert.False(t, ok)
	assert.False(t, sel.Loaded())

	stores, err := sel.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, stores, 3)
	assert.True(t, sel.Loaded())

	cur, ok := sel.Current()
	require.True(t, ok)
	assert.Equal(t, int64(10), cur.ID)

	_, persisted, err := st.Get(context.Background(), storage.KeyCurrentStoreID)
	require.NoError(t, err)
	assert.False(t, persisted, "fallback is not persisted")
}

func TestSelection_RestoresPersistedID(t *testing.T) {
	ctx := context.Background()
	st := storage.NewInMemoryStore()
	require.NoError(t, st.Set(ctx, storage.KeyCurrentStoreID, "20"))

	sel := NewSelection(&fakeLister{stores: threeStores()}, st, nil)
	_, err := sel.Load(ctx)
	require.NoError(t, err)
	cur, _ := sel.Current()
	assert.Equal(t, "twenty", cur.Subdomain)
}

func TestSelection_StalePersistedIDFallsBack(t *testing.T) {
	ctx := context.Background()
	for _, v := range []string{"99", "not-a-number"} {
		st := storage.NewInMemoryStore()
		require.NoError(t, st.Set(ctx, storage.KeyCurrentStoreID, v))
		sel := NewSelection(&fakeLister{stores: threeStores()}, st, nil)
		_, err := sel.Load(ctx)
		require.NoError(t, err)
		cur, ok := sel.Current()
		require.True(t, ok, v)
		assert.Equal(t, int64(10), cur.ID, v)
	}
}

func TestSelection_SelectPersists(t *testing.T) {
	ctx := context.Background()
	st := storage.NewInMemoryStore()
	lister := &fakeLister{stores: threeStores()}
	sel := NewSelection(lister, st, nil)
	_, err := sel.Load(ctx)
	require.NoError(t, err)

	got, err := sel.Select(ctx, "thirty")
	require.NoError(t, err)
	assert.Equal(t, int64(30), got.ID)
	v, ok, err := st.Get(ctx, storage.KeyCurrentStoreID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "30", v)

	got, err = sel.Select(ctx, "20")
	require.NoError(t, err)
	assert.Equal(t, "twenty", got.Subdomain)

	_, err = sel.Select(ctx, "nope")
	assert.True(t, apierr.IsValidation(err))
	cur, _ := sel.Current()
	assert.Equal(t, int64(20), cur.ID, "failed select keeps the current store")

	// A reload keeps the in-memory choice.
	_, err = sel.Load(ctx)
	require.NoError(t, err)
	cur, _ = sel.Current()
	assert.Equal(t, int64(20), cur.ID)
	assert.Equal(t, 2, lister.calls)
}

func TestSelection_LoadErrorKeepsCache(t *testing.T) {
	ctx := context.Background()
	lister := &fakeLister{stores: threeStores()}
	sel := NewSelection(lister, storage.NewInMemoryStore(), nil)
	_, err := sel.Load(ctx)
	require.NoError(t, err)

	lister.err = apierr.Transient("GET /api/stores", 503, "unavailable", nil)
	_, err = sel.Load(ctx)
	assert.True(t, apierr.IsTransient(err))
	assert.Len(t, sel.Stores(), 3)
	_, ok := sel.Current()
	assert.True(t, ok)
}

func TestSelection_EmptyAndStorageErrors(t *testing.T) {
	ctx := context.Background()
	st := storage.NewInMemoryStore()
	sel := NewSelection(&fakeLister{}, st, nil)
	stores, err := sel.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, stores)
	_, ok := sel.Current()
	assert.False(t, ok)

	sel = NewSelection(&fakeLister{stores: threeStores()}, st, nil)
	_, err = sel.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, st.Close())
	got, err := sel.Select(ctx, "ten")
	assert.True(t, errors.Is(err, storage.ErrClosed))
	assert.Equal(t, int64(10), got.ID)

	found, ok := sel.Find("TWENTY")
	assert.True(t, ok)
	assert.Equal(t, int64(20), found.ID)
}
