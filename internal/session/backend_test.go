package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/storefront/internal/apierr"
	"github.com/joeycumines/storefront/internal/gateway"
	"github.com/joeycumines/storefront/internal/storage"
)

// newWiredController builds a controller over a real gateway, with the
// gateway's token source and 401 hook bound to the controller.
func newWiredController(t *testing.T, revoked *atomic.Bool) (*Controller, *gateway.Client, storage.Store) {
	t.Helper()
	r := mux.NewRouter()
	r.HandleFunc(gateway.PathOTPVerify, func(w http.ResponseWriter, r *http.Request) {
		var in struct{ Phone, OTP string }
		_ = json.NewDecoder(r.Body).Decode(&in)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-" + in.OTP,
			"token_type":   "bearer",
			"user":         map[string]any{"id": 1, "phone": in.Phone},
		})
	}).Methods(http.MethodPost)
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if revoked.Load() || !strings.HasPrefix(r.Header.Get(gateway.HeaderAuthorization), "Bearer tok-") {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Could not validate credentials"})
				return
			}
			next(w, r)
		}
	}
	r.HandleFunc(gateway.PathMe, authed(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": 1, "phone": "+15550100", "is_active": true, "created_at": "2024-05-01T10:00:00",
		})
	}))
	r.HandleFunc(gateway.PathStores, authed(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	base, err := url.Parse(srv.URL)
	require.NoError(t, err)

	st := storage.NewInMemoryStore()
	var ctrl *Controller
	gw := gateway.New(gateway.Options{
		BaseURL:        base,
		Tokens:         func() string { return ctrl.Token() },
		OnUnauthorized: func(token string) { ctrl.Invalidate(token) },
	})
	ctrl = NewController(NewGatewayBackend(gw), st, nil)
	return ctrl, gw, st
}

func TestGatewayBackend_LoginAndProfile(t *testing.T) {
	var revoked atomic.Bool
	c, _, st := newWiredController(t, &revoked)

	require.NoError(t, c.Login(context.Background(), "+15550100", "123456"))
	snap := c.Snapshot()
	assert.Equal(t, Authenticated, snap.State)
	assert.Equal(t, "tok-123456", snap.Token)
	require.NotNil(t, snap.User)
	assert.Equal(t, "+15550100", snap.User.Phone)
	assert.Equal(t, 2024, snap.User.CreatedAt.Year())

	tok, ok, err := st.Get(context.Background(), storage.KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok-123456", tok)
}

func TestGatewayBackend_UnauthorizedResourceCallClearsSession(t *testing.T) {
	var revoked atomic.Bool
	c, gw, st := newWiredController(t, &revoked)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "+15550100", "1"))
	require.NoError(t, gw.Get(ctx, gateway.PathStores, nil, nil))

	revoked.Store(true)
	err := gw.Get(ctx, gateway.PathStores, nil, nil)
	assert.True(t, apierr.IsCredential(err))

	assert.Equal(t, Snapshot{State: Anonymous}, c.Snapshot())
	_, ok, err := st.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGatewayBackend_RestoredTokenRejected(t *testing.T) {
	var revoked atomic.Bool
	revoked.Store(true)
	c, _, st := newWiredController(t, &revoked)
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, storage.KeyToken, "tok-old"))

	require.NoError(t, c.Initialize(ctx))
	c.Wait()
	assert.Equal(t, Anonymous, c.State())
	_, ok, err := st.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}
