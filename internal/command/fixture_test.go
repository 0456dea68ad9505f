package command

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/storefront/internal/config"
	"github.com/joeycumines/storefront/internal/gateway"
	"github.com/joeycumines/storefront/internal/storage"
)

const (
	testPhone = "+15550100"
	testCode  = "123456"
)

type recorded struct {
	Method  string
	Path    string
	Query   url.Values
	Tenant  string
	Auth    string
	Payload map[string]any
}

// storefrontAPI is a fake backend holding a small fixed catalog.
type storefrontAPI struct {
	t      *testing.T
	srv    *httptest.Server
	router *mux.Router
	// token is the only bearer token the backend accepts.
	token string

	mu       sync.Mutex
	requests []recorded
}

func newStorefrontAPI(t *testing.T) *storefrontAPI {
	t.Helper()
	a := &storefrontAPI{t: t, router: mux.NewRouter(), token: "good-token"}
	a.router.Use(a.record)
	a.routes()
	a.srv = httptest.NewServer(a.router)
	t.Cleanup(a.srv.Close)
	return a
}

func (a *storefrontAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Tenant: r.Header.Get(gateway.HeaderTenantID),
			Auth:   r.Header.Get(gateway.HeaderAuthorization),
		}
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, &rec.Payload)
			r.Body = io.NopCloser(bytes.NewReader(data))
		}
		a.mu.Lock()
		a.requests = append(a.requests, rec)
		a.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (a *storefrontAPI) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get(gateway.HeaderAuthorization) != "Bearer "+a.token {
		reply(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
		return false
	}
	return true
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var (
	fixtureStores = []map[string]any{
		{"id": 1, "name": "Alpha", "subdomain": "alpha", "currency": "BDT", "is_active": true, "created_at": "2024-03-01T10:00:00"},
		{"id": 2, "name": "Beta", "name_bn": "বিটা", "subdomain": "beta", "default_language": "bn", "is_active": true},
	}
	fixtureProducts = []map[string]any{
		{"id": 7, "store_id": 1, "slug": "mug", "title": "Mug", "price": 10, "discount_price": 8, "stock": 5, "is_published": true, "images": `["https://img.test/mug.png"]`},
		{"id": 8, "store_id": 1, "slug": "tee", "title": "Tee", "title_bn": "টি", "price": 20, "stock": 0, "is_published": false},
		{"id": 9, "store_id": 1, "slug": "cap", "title": "Cap", "price": 15, "discount_price": 15, "stock": 2, "is_published": true},
	}
	fixtureShipping = []map[string]any{
		{"id": 1, "name": "Standard", "cost": 5, "is_active": true},
		{"id": 2, "name": "Express", "cost": 12.5, "is_active": true},
	}
	fixtureOrder = map[string]any{
		"id": 5, "store_id": 1, "order_number": "ORD-0005", "status": "shipped",
		"customer_name": "Grace", "customer_phone": "+15550199", "shipping_address": "1 Loop Rd",
		"subtotal": 16, "shipping_cost": 5, "total": 21, "created_at": "2024-03-02 09:30:00",
		"items": []map[string]any{{"id": 1, "product_id": 7, "product_title": "Mug", "quantity": 2, "price": 8, "total": 16}},
	}
)

func (a *storefrontAPI) routes() {
	r := a.router
	r.HandleFunc(gateway.PathOTPRequest, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]string{"message": "OTP sent successfully", "otp": testCode})
	}).Methods(http.MethodPost)

	r.HandleFunc(gateway.PathOTPVerify, func(w http.ResponseWriter, r *http.Request) {
		if payload(r)["otp"] != testCode {
			reply(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid OTP"})
			return
		}
		reply(w, http.StatusOK, map[string]string{"access_token": a.token, "token_type": "bearer"})
	}).Methods(http.MethodPost)

	r.HandleFunc(gateway.PathMe, func(w http.ResponseWriter, r *http.Request) {
		if a.authorized(w, r) {
			reply(w, http.StatusOK, map[string]any{"id": 42, "phone": testPhone, "full_name": "Ada Lovelace", "is_active": true})
		}
	}).Methods(http.MethodGet)

	r.HandleFunc(gateway.PathHealth, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.HandleFunc(gateway.PathStores, func(w http.ResponseWriter, r *http.Request) {
		if !a.authorized(w, r) {
			return
		}
		if r.Method == http.MethodGet {
			reply(w, http.StatusOK, fixtureStores)
			return
		}
		p := payload(r)
		reply(w, http.StatusCreated, map[string]any{"id": 3, "name": p["name"], "subdomain": p["subdomain"], "is_active": true})
	}).Methods(http.MethodGet, http.MethodPost)

	r.HandleFunc(gateway.PathStores+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !a.authorized(w, r) {
			return
		}
		for _, s := range fixtureStores {
			if jsonID(s) == mux.Vars(r)["id"] {
				if r.Method == http.MethodPut {
					out := map[string]any{"id": s["id"], "subdomain": s["subdomain"]}
					for k, v := range payload(r) {
						out[k] = v
					}
					reply(w, http.StatusOK, out)
					return
				}
				reply(w, http.StatusOK, s)
				return
			}
		}
		reply(w, http.StatusNotFound, map[string]string{"detail": "Store not found"})
	}).Methods(http.MethodGet, http.MethodPut)

	r.HandleFunc(gateway.PathProducts, func(w http.ResponseWriter, r *http.Request) {
		if !a.authorized(w, r) {
			return
		}
		if r.Method == http.MethodGet {
			reply(w, http.StatusOK, fixtureProducts)
			return
		}
		out := map[string]any{"id": 10, "store_id": 1, "slug": "new-product"}
		for k, v := range payload(r) {
			out[k] = v
		}
		reply(w, http.StatusCreated, out)
	}).Methods(http.MethodGet, http.MethodPost)

	r.HandleFunc(gateway.PathProducts+"/slug/{slug}", func(w http.ResponseWriter, r *http.Request) {
		for _, p := range fixtureProducts {
			if p["slug"] == mux.Vars(r)["slug"] {
				reply(w, http.StatusOK, p)
				return
			}
		}
		reply(w, http.StatusNotFound, map[string]string{"detail": "Product not found"})
	}).Methods(http.MethodGet)

	r.HandleFunc(gateway.PathProducts+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !a.authorized(w, r) {
			return
		}
		for _, p := range fixtureProducts {
			if jsonID(p) != mux.Vars(r)["id"] {
				continue
			}
			switch r.Method {
			case http.MethodGet:
				reply(w, http.StatusOK, p)
			case http.MethodPut:
				out := map[string]any{"id": p["id"], "slug": p["slug"]}
				for k, v := range payload(r) {
					out[k] = v
				}
				reply(w, http.StatusOK, out)
			case http.MethodDelete:
				w.WriteHeader(http.StatusNoContent)
			}
			return
		}
		reply(w, http.StatusNotFound, map[string]string{"detail": "Product not found"})
	}).Methods(http.MethodGet, http.MethodPut, http.MethodDelete)

	r.HandleFunc(gateway.PathOrders, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			reply(w, http.StatusCreated, fixtureOrder)
			return
		}
		if a.authorized(w, r) {
			reply(w, http.StatusOK, []map[string]any{fixtureOrder})
		}
	}).Methods(http.MethodGet, http.MethodPost)

	r.HandleFunc(gateway.PathOrders+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		if a.authorized(w, r) {
			reply(w, http.StatusOK, fixtureOrder)
		}
	}).Methods(http.MethodGet)

	r.HandleFunc(gateway.PathPublicStore, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, fixtureStores[0])
	})
	r.HandleFunc(gateway.PathPublicItems, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []map[string]any{fixtureProducts[0], fixtureProducts[2]})
	})
	r.HandleFunc(gateway.PathShipping, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, fixtureShipping)
	})
}

func jsonID(v map[string]any) string {
	b, _ := json.Marshal(v["id"])
	return string(b)
}

func payload(r *http.Request) map[string]any {
	out := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&out)
	return out
}

// lastRecorded returns the last request matching method and path.
func (a *storefrontAPI) lastRecorded(method, path string) (recorded, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.requests) - 1; i >= 0; i-- {
		if r := a.requests[i]; r.Method == method && r.Path == path {
			return r, true
		}
	}
	return recorded{}, false
}

func (a *storefrontAPI) count(method, path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, r := range a.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// newTestApp returns an App talking to api with a private in-memory store.
func newTestApp(t *testing.T, api *storefrontAPI) *App {
	t.Helper()
	app := NewApp(config.NewConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	app.Version = "test"
	app.Stdin = strings.NewReader("")
	app.Notices = &bytes.Buffer{}
	app.SetConfigPath(t.TempDir() + "/config")
	app.Override(config.KeyAPIURL, api.srv.URL)
	app.Override(config.KeyStorageBackend, "memory")
	app.Override(config.KeyStorageProfile, "test-"+uuid.NewString())
	t.Cleanup(func() { _ = app.Close() })
	return app
}

// signIn persists the backend's token as if a login had happened earlier.
func signIn(t *testing.T, app *App, token string) {
	t.Helper()
	st, err := app.Store()
	require.NoError(t, err)
	require.NoError(t, st.Set(context.Background(), storage.KeyToken, token))
}

func notices(app *App) string {
	return app.Notices.(*bytes.Buffer).String()
}

// runCommand parses args against cmd's flags and executes it, as main does.
func runCommand(t *testing.T, cmd Command, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(&stderr)
	cmd.SetupFlags(fs)
	rest, err := ParseCommandArgs(cmd, fs, args)
	if err != nil {
		return stdout.String(), stderr.String(), err
	}
	err = cmd.Execute(context.Background(), rest, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}
