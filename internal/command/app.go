package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/joeycumines/storefront/internal/catalog"
	"github.com/joeycumines/storefront/internal/config"
	"github.com/joeycumines/storefront/internal/gateway"
	"github.com/joeycumines/storefront/internal/session"
	"github.com/joeycumines/storefront/internal/storage"
	"github.com/joeycumines/storefront/internal/tenant"
)

var errNotLoggedIn = errors.New("not logged in: run 'storefront login' first")

// App owns the collaborators shared by commands. The store, gateway and
// session controller are built on first use, so commands that never touch
// them (help, version, resolve) stay offline.
type App struct {
	// DefaultAPIURL is the compile-time API URL, consulted after the
	// runtime configuration.
	DefaultAPIURL string
	Version       string
	// StoreRef selects the store (id or subdomain) for owner commands.
	StoreRef string
	Stdin    io.Reader
	// Notices receives messages about session changes the user did not ask
	// for, such as an expired token.
	Notices    io.Writer
	HTTPClient *http.Client

	cfg        *config.Config
	configPath string
	schema     *config.ConfigSchema
	logger     *slog.Logger
	overrides  map[string]string

	mu          sync.Mutex
	store       storage.Store
	gw          *gateway.Client
	ctrl        *session.Controller
	unsubscribe func()
	sessionErr  error
	selection   *catalog.Selection
	endExpected bool
}

// NewApp creates an App reading cfg. A nil logger uses slog.Default.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		Stdin:     os.Stdin,
		Notices:   os.Stderr,
		cfg:       cfg,
		schema:    config.DefaultSchema(),
		logger:    logger,
		overrides: make(map[string]string),
	}
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// SetConfigPath sets the file that config changes are written to.
func (a *App) SetConfigPath(path string) { a.configPath = path }

// ConfigPath returns the config file path, resolving the default location
// when none was set.
func (a *App) ConfigPath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.GetConfigPath()
}

// Override pins key to value, taking precedence over the environment, the
// config file and the schema default. Empty values are ignored.
func (a *App) Override(key, value string) {
	if value != "" {
		a.overrides[key] = value
	}
}

// Resolve returns the effective value of a global config key.
func (a *App) Resolve(key string) string {
	if v, ok := a.overrides[key]; ok {
		return v
	}
	return a.schema.Resolve(a.cfg, key)
}

// Ambient is the navigation context the resolver works from.
func (a *App) Ambient() tenant.Ambient {
	return tenant.Ambient{
		Scheme:            a.Resolve(config.KeyScheme),
		Host:              a.Resolve(config.KeyHost),
		RuntimeAPIURL:     a.Resolve(config.KeyAPIURL),
		DefaultAPIURL:     a.DefaultAPIURL,
		BackendLabel:      a.Resolve(config.KeyAPIBackendLabel),
		DefaultBaseDomain: a.Resolve(config.KeyBaseDomainDefault),
	}
}

// Tenant derives the tenant context from the current configuration.
func (a *App) Tenant() tenant.Context {
	return tenant.Derive(a.Ambient())
}

// Language is the preferred display language, or "" to follow each store.
func (a *App) Language() string {
	return a.Resolve(config.KeyLanguage)
}

// Format is the configured output format.
func (a *App) Format() (Format, error) {
	return ParseFormat(a.Resolve(config.KeyFormat))
}

// Store opens the durable key-value store.
func (a *App) Store() (storage.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.storeLocked()
}

func (a *App) storeLocked() (storage.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	backend := a.Resolve(config.KeyStorageBackend)
	st, err := storage.Open(backend, storage.Options{
		Profile:  a.Resolve(config.KeyStorageProfile),
		Dir:      a.Resolve(config.KeyStorageDir),
		RedisURL: a.Resolve(config.KeyStorageRedisURL),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", backend, err)
	}
	a.logger.Debug("[Shell] store opened", "backend", backend)
	a.store = st
	return st, nil
}

// Session returns the initialized session controller, together with the
// gateway it authenticates. A persisted token is revalidated in the
// background; use Controller.Wait to observe the result.
func (a *App) Session(ctx context.Context) (*session.Controller, error) {
	a.mu.Lock()
	if a.ctrl != nil {
		defer a.mu.Unlock()
		return a.ctrl, a.sessionErr
	}
	st, err := a.storeLocked()
	if err != nil {
		a.mu.Unlock()
		return nil, err
	}

	tc := a.Tenant()
	var ctrl *session.Controller
	gw := gateway.New(gateway.Options{
		BaseURL:        tc.APIBaseURL(),
		Tenant:         tc.Subdomain(),
		Tokens:         func() string { return ctrl.Token() },
		OnUnauthorized: func(token string) { ctrl.Invalidate(token) },
		HTTPClient:     a.HTTPClient,
		Timeout:        a.schema.ResolveDuration(a.cfg, config.KeyHTTPTimeout),
		RateLimit:      a.schema.ResolveFloat(a.cfg, config.KeyHTTPRateLimit),
		Burst:          a.schema.ResolveInt(a.cfg, config.KeyHTTPBurst),
		UserAgent:      "storefront/" + a.Version,
		Logger:         a.logger,
	})
	ctrl = session.NewController(session.NewGatewayBackend(gw), st, a.logger)
	a.unsubscribe = ctrl.Subscribe(a.onSessionEvent)
	a.gw = gw
	a.ctrl = ctrl
	a.logger.Debug("[Shell] api resolved", "url", tc.APIBaseURL().String(), "source", tc.APISource(), "tenant", tc.Subdomain())
	a.mu.Unlock()

	if err := ctrl.Initialize(ctx); err != nil {
		err = fmt.Errorf("failed to restore session: %w", err)
		a.mu.Lock()
		a.sessionErr = err
		a.mu.Unlock()
		return nil, err
	}
	return ctrl, nil
}

// Gateway returns the HTTP gateway, initializing the session first.
func (a *App) Gateway(ctx context.Context) (*gateway.Client, error) {
	if _, err := a.Session(ctx); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gw, nil
}

// Authenticated returns the session once any restored token has been
// checked, failing when nobody is signed in.
func (a *App) Authenticated(ctx context.Context) (*session.Controller, error) {
	ctrl, err := a.Session(ctx)
	if err != nil {
		return nil, err
	}
	ctrl.Wait()
	if ctrl.Token() == "" {
		return nil, errNotLoggedIn
	}
	return ctrl, nil
}

// Catalog returns a resource client using the resolved tenant.
func (a *App) Catalog(ctx context.Context) (*catalog.Client, error) {
	gw, err := a.Gateway(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.NewClient(gw), nil
}

// Selection returns the owner's store selection, loaded.
func (a *App) Selection(ctx context.Context) (*catalog.Selection, error) {
	if _, err := a.Authenticated(ctx); err != nil {
		return nil, err
	}
	cc, err := a.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	if a.selection == nil {
		a.selection = catalog.NewSelection(cc, a.store, a.logger)
	}
	sel := a.selection
	a.mu.Unlock()
	if !sel.Loaded() {
		if _, err := sel.Load(ctx); err != nil {
			return nil, err
		}
	}
	return sel, nil
}

// OwnerCatalog returns a client scoped to the store the owner is working
// on: StoreRef when set, else the tenant of the configured host, else the
// current selection.
func (a *App) OwnerCatalog(ctx context.Context) (*catalog.Client, error) {
	sel, err := a.Selection(ctx)
	if err != nil {
		return nil, err
	}
	cc, err := a.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	if a.StoreRef != "" {
		s, ok := sel.Find(a.StoreRef)
		if !ok {
			return nil, fmt.Errorf("store not found: %s", a.StoreRef)
		}
		return cc.ForStore(s.Subdomain), nil
	}
	if sub := a.Tenant().Subdomain(); sub != "" {
		return cc.ForStore(sub), nil
	}
	s, ok := sel.Current()
	if !ok {
		return nil, errors.New("no store yet: create one with 'storefront stores create'")
	}
	return cc.ForStore(s.Subdomain), nil
}

// PublicCatalog returns a client scoped to the public tenant named by
// StoreRef or the configured host.
func (a *App) PublicCatalog(ctx context.Context) (*catalog.Client, error) {
	cc, err := a.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	sub := a.StoreRef
	if sub == "" {
		sub = a.Tenant().Subdomain()
	}
	if sub == "" {
		return nil, errors.New("no storefront selected: pass --store or set host")
	}
	return cc.ForStore(sub), nil
}

// Logout ends the session without reporting it as an expiry.
func (a *App) Logout(ctx context.Context) error {
	ctrl, err := a.Session(ctx)
	if err != nil {
		return err
	}
	ctrl.Wait()
	a.expectSessionEnd()
	ctrl.Logout()
	return nil
}

// expectSessionEnd suppresses the expiry notice for a session end the
// user asked for.
func (a *App) expectSessionEnd() {
	a.mu.Lock()
	a.endExpected = true
	a.mu.Unlock()
}

func (a *App) onSessionEvent(ev session.Event) {
	a.logger.Debug("[Shell] session changed", "from", ev.From.String(), "to", ev.To.String())
	if !ev.AuthChanged || ev.To != session.Anonymous {
		return
	}
	a.mu.Lock()
	expected := a.endExpected
	a.mu.Unlock()
	if !expected && a.Notices != nil {
		_, _ = fmt.Fprintln(a.Notices, "Session expired. Run 'storefront login' to sign in again.")
	}
}

// Close waits for background session work and releases the store.
func (a *App) Close() error {
	a.mu.Lock()
	ctrl, unsubscribe, st := a.ctrl, a.unsubscribe, a.store
	a.mu.Unlock()
	if ctrl != nil {
		ctrl.Wait()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	if st != nil {
		return st.Close()
	}
	return nil
}
