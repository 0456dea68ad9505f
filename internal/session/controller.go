// Package session implements the authentication lifecycle of the storefront
// client as a state machine: Anonymous, Pending (token held, profile not yet
// confirmed) and Authenticated.
//
// The persisted token is the source of truth at startup. It is written only
// by Login and deleted only by Logout or when the backend rejects it. Every
// token change bumps a generation counter, and profile results are applied
// only under the generation they started in, so a slow refresh cannot revive
// a session that was cleared while it was in flight.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/joeycumines/storefront/internal/apierr"
	"github.com/joeycumines/storefront/internal/catalog"
	"github.com/joeycumines/storefront/internal/gateway"
	"github.com/joeycumines/storefront/internal/storage"
)

// Backend is the authentication surface of the API.
type Backend interface {
	RequestOTP(ctx context.Context, phone string) (*gateway.Challenge, error)
	VerifyOTP(ctx context.Context, phone, code string) (*gateway.Grant, error)
	// FetchProfile returns the profile of the principal owning token.
	FetchProfile(ctx context.Context, token string) (*catalog.User, error)
}

// Fallback messages for failures the backend did not describe.
const (
	MsgLoginFailed       = "login failed"
	MsgRequestCodeFailed = "failed to send verification code"
)

// Controller owns the session. It is safe for concurrent use. Network calls
// are made without holding the lock.
type Controller struct {
	backend Backend
	store   storage.Store
	logger  *slog.Logger

	mu         sync.Mutex
	state      State
	token      string
	user       *catalog.User
	generation uint64
	inflight   map[Op]int
	subs       map[uint64]func(Event)
	nextSub    uint64
	queue      []Event
	delivering bool

	background sync.WaitGroup
}

// NewController creates a Controller in the Anonymous state. Call
// Initialize to restore a persisted session. A nil logger uses
// slog.Default.
func NewController(backend Backend, store storage.Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		backend:  backend,
		store:    store,
		logger:   logger,
		inflight: make(map[Op]int),
		subs:     make(map[uint64]func(Event)),
	}
}

// Initialize restores the persisted token. Without one the session stays
// Anonymous and nothing is fetched. With one the session becomes Pending
// before Initialize returns, and the profile is confirmed in the
// background; see Wait.
func (c *Controller) Initialize(ctx context.Context) error {
	token, ok, err := c.store.Get(ctx, storage.KeyToken)
	if err != nil {
		c.logger.Warn("[Session] failed to read persisted token", "error", err)
		return err
	}
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		c.logger.Debug("[Session] no persisted token")
		return nil
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.setLocked(Pending, token, nil)
	c.mu.Unlock()
	c.deliver()

	c.background.Add(1)
	go func() {
		defer c.background.Done()
		if err := c.refresh(ctx, gen, token); err != nil {
			c.logger.Debug("[Session] background refresh failed", "error", err)
		}
	}()
	return nil
}

// Wait blocks until background work started by Initialize has finished.
func (c *Controller) Wait() {
	c.background.Wait()
}

// RequestOneTimeCode asks the backend to send a verification code to phone.
// The session is not touched.
func (c *Controller) RequestOneTimeCode(ctx context.Context, phone string) (*gateway.Challenge, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, apierr.Validation("request code", "phone is required")
	}
	defer c.begin(OpRequestCode)()

	ch, err := c.backend.RequestOTP(ctx, phone)
	if err != nil {
		return nil, apierr.WithFallback(err, MsgRequestCodeFailed)
	}
	return ch, nil
}

// Login exchanges phone and code for a token, persists it and confirms the
// profile with it. A refresh that fails for any reason but a rejected token
// leaves the session Pending and Login succeeds. If the backend rejects the
// new token the session is cleared and the credential error is returned. If
// the exchange itself fails the session is unchanged.
func (c *Controller) Login(ctx context.Context, phone, code string) error {
	const op = "login"
	phone, code = strings.TrimSpace(phone), strings.TrimSpace(code)
	switch {
	case phone == "":
		return apierr.Validation(op, "phone is required")
	case code == "":
		return apierr.Validation(op, "verification code is required")
	}
	defer c.begin(OpLogin)()

	grant, err := c.backend.VerifyOTP(ctx, phone, code)
	if err != nil {
		return apierr.WithFallback(err, MsgLoginFailed)
	}
	token := strings.TrimSpace(grant.AccessToken)
	if token == "" {
		return apierr.Transient(op, 0, MsgLoginFailed, nil)
	}

	// Persisted before the profile fetch is issued. The write and the
	// transition share one critical section.
	c.mu.Lock()
	if err := c.store.Set(context.WithoutCancel(ctx), storage.KeyToken, token); err != nil {
		c.mu.Unlock()
		c.logger.Error("[Session] failed to persist token", "error", err)
		return apierr.Transient(op, 0, MsgLoginFailed, err)
	}
	c.generation++
	gen := c.generation
	c.setLocked(Pending, token, nil)
	c.mu.Unlock()
	c.deliver()
	c.logger.Info("[Session] logged in, confirming profile")

	err = c.refresh(ctx, gen, token)
	switch {
	case err == nil:
		return nil
	case apierr.IsCredential(err):
		return err
	default:
		c.logger.Warn("[Session] profile not confirmed, keeping token", "error", err)
		return nil
	}
}

// RefreshProfile fetches the profile for the current token. Success
// confirms the session. A rejected token clears it. Any other failure
// leaves state and token untouched and is returned. Without a token the
// session is reset to Anonymous.
func (c *Controller) RefreshProfile(ctx context.Context) error {
	c.mu.Lock()
	token, gen := c.token, c.generation
	if token == "" {
		c.setLocked(Anonymous, "", nil)
		c.mu.Unlock()
		c.deliver()
		return nil
	}
	c.mu.Unlock()
	return c.refresh(ctx, gen, token)
}

func (c *Controller) refresh(ctx context.Context, gen uint64, token string) error {
	defer c.begin(OpRefresh)()

	user, err := c.backend.FetchProfile(ctx, token)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.logger.Debug("[Session] discarding stale profile result", "generation", gen)
		return err
	}
	switch {
	case err == nil:
		c.setLocked(Authenticated, token, user)
		c.mu.Unlock()
		c.deliver()
		return nil
	case apierr.IsCredential(err):
		c.clearLocked()
		c.mu.Unlock()
		c.deliver()
		c.logger.Info("[Session] token rejected, session cleared")
		return err
	default:
		c.mu.Unlock()
		return err
	}
}

// Logout clears the token and the session. It cannot fail: a token store
// error is logged and the in-memory session is cleared regardless. Calling
// it again is a no-op.
func (c *Controller) Logout() {
	c.mu.Lock()
	c.clearLocked()
	c.mu.Unlock()
	c.deliver()
}

// Invalidate clears the session if token is still the current one. It is
// the gateway's hook for 401 responses; a rejection of a superseded token
// is ignored.
func (c *Controller) Invalidate(token string) {
	c.mu.Lock()
	if token == "" || token != c.token {
		c.mu.Unlock()
		return
	}
	c.clearLocked()
	c.mu.Unlock()
	c.deliver()
	c.logger.Info("[Session] session invalidated by backend")
}

// clearLocked deletes the persisted token and resets to Anonymous.
func (c *Controller) clearLocked() {
	c.generation++
	if err := c.store.Delete(context.Background(), storage.KeyToken); err != nil {
		c.logger.Warn("[Session] failed to delete persisted token", "error", err)
	}
	c.setLocked(Anonymous, "", nil)
}

// setLocked applies a transition and queues its event when anything
// changed.
func (c *Controller) setLocked(state State, token string, user *catalog.User) {
	if user != nil {
		u := *user
		user = &u
	}
	prev := c.snapshotLocked()
	c.state, c.token, c.user = state, token, user
	next := c.snapshotLocked()
	if prev.equal(next) {
		return
	}
	c.queue = append(c.queue, Event{
		From:        prev.State,
		To:          next.State,
		Session:     next,
		AuthChanged: prev.IsAuthenticated() != next.IsAuthenticated(),
	})
}

// deliver drains the event queue. Only one goroutine delivers at a time,
// so subscribers see events in the order the transitions happened, each
// once. Events queued by a subscriber are delivered after it returns.
func (c *Controller) deliver() {
	c.mu.Lock()
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true
	for len(c.queue) > 0 {
		ev := c.queue[0]
		c.queue = c.queue[1:]
		subs := make([]func(Event), 0, len(c.subs))
		for id := uint64(0); id < c.nextSub; id++ {
			if fn, ok := c.subs[id]; ok {
				subs = append(subs, fn)
			}
		}
		c.mu.Unlock()
		c.logger.Debug("[Session] state changed", "from", ev.From, "to", ev.To)
		for _, fn := range subs {
			fn(ev)
		}
		c.mu.Lock()
	}
	c.delivering = false
	c.mu.Unlock()
}

// Subscribe registers fn for every later session change and returns a
// function that removes it. fn runs outside the controller's lock and may
// call back into the controller.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// begin marks op as in flight until the returned function is called.
func (c *Controller) begin(op Op) func() {
	c.mu.Lock()
	c.inflight[op]++
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.inflight[op]--
		c.mu.Unlock()
	}
}

// InFlight reports whether a call of op is outstanding, so callers can
// suppress duplicate submissions.
func (c *Controller) InFlight(op Op) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[op] > 0
}

// Snapshot returns a copy of the session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{State: c.state, Token: c.token}
	if c.user != nil {
		u := *c.user
		s.User = &u
	}
	return s
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Token returns the current token, or "". It fits gateway.TokenSource.
func (c *Controller) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}
