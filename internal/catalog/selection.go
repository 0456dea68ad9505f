package catalog

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/joeycumines/storefront/internal/apierr"
	"github.com/joeycumines/storefront/internal/storage"
)

// StoreLister is the part of Client a Selection reads from.
type StoreLister interface {
	ListStores(ctx context.Context) ([]Store, error)
}

// Selection caches the principal's stores and tracks the current one. The
// choice survives restarts as the store id under storage.KeyCurrentStoreID.
type Selection struct {
	lister StoreLister
	store  storage.Store
	logger *slog.Logger

	mu      sync.RWMutex
	stores  []Store
	current int // index into stores, -1 for none
	loaded  bool
}

// NewSelection creates an empty Selection. A nil logger uses slog.Default.
func NewSelection(lister StoreLister, store storage.Store, logger *slog.Logger) *Selection {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selection{lister: lister, store: store, logger: logger, current: -1}
}

// Load fetches the stores and settles the current one: the previous choice
// if still present, else the persisted id, else the first store. On error
// the cache is left as it was.
func (s *Selection) Load(ctx context.Context) ([]Store, error) {
	stores, err := s.lister.ListStores(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	prev := int64(-1)
	if s.current >= 0 {
		prev = s.stores[s.current].ID
	}
	s.mu.RUnlock()

	idx := indexOf(stores, prev)
	if idx < 0 {
		if id, ok := s.persistedID(ctx); ok {
			idx = indexOf(stores, id)
		}
	}
	if idx < 0 && len(stores) > 0 {
		idx = 0
	}

	s.mu.Lock()
	s.stores = stores
	s.current = idx
	s.loaded = true
	s.mu.Unlock()

	s.logger.Debug("[Catalog] stores loaded", "count", len(stores), "current", idx)
	return slices.Clone(stores), nil
}

// Loaded reports whether Load has succeeded at least once.
func (s *Selection) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Stores returns the cached stores.
func (s *Selection) Stores() []Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.stores)
}

// Current returns the selected store.
func (s *Selection) Current() (Store, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current < 0 {
		return Store{}, false
	}
	return s.stores[s.current], true
}

// Find looks a cached store up by id or subdomain.
func (s *Selection) Find(ref string) (Store, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.find(ref)
	if i < 0 {
		return Store{}, false
	}
	return s.stores[i], true
}

func (s *Selection) find(ref string) int {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if i := indexOf(s.stores, id); i >= 0 {
			return i
		}
	}
	return slices.IndexFunc(s.stores, func(st Store) bool {
		return strings.EqualFold(st.Subdomain, ref)
	})
}

// Select makes the cached store identified by ref (id or subdomain) current
// and persists the choice.
func (s *Selection) Select(ctx context.Context, ref string) (Store, error) {
	s.mu.Lock()
	i := s.find(ref)
	if i < 0 {
		s.mu.Unlock()
		return Store{}, apierr.Validation("select store", "no store matches "+strconv.Quote(ref))
	}
	s.current = i
	st := s.stores[i]
	s.mu.Unlock()

	if err := s.store.Set(ctx, storage.KeyCurrentStoreID, strconv.FormatInt(st.ID, 10)); err != nil {
		return st, err
	}
	return st, nil
}

func (s *Selection) persistedID(ctx context.Context) (int64, bool) {
	v, ok, err := s.store.Get(ctx, storage.KeyCurrentStoreID)
	if err != nil {
		s.logger.Warn("[Catalog] failed to read current store", "error", err)
		return 0, false
	}
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		s.logger.Warn("[Catalog] ignoring malformed current store id", "value", v)
		return 0, false
	}
	return id, true
}

func indexOf(stores []Store, id int64) int {
	return slices.IndexFunc(stores, func(st Store) bool { return st.ID == id })
}
