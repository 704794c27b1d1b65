package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/lingo-web/preferences"
	"github.com/jrsteele09/lingo-web/session"
	"github.com/jrsteele09/lingo-web/storage"
	"github.com/jrsteele09/lingo-web/tokenstore"
	"github.com/rs/zerolog/log"
)

// Browser is everything kept for one browser: its session and the values
// the browser would otherwise hold in local storage.
type Browser struct {
	ID          string
	Session     *session.Store
	Preferences *preferences.Store
	lastSeen    time.Time
}

// BrowserRegistry is a thread-safe in-memory map of browser id to Browser.
// Backing storage is shared and may outlive the registry.
type BrowserRegistry struct {
	mu       sync.Mutex
	kv       storage.KV
	api      session.AuthAPI
	now      func() time.Time
	browsers map[string]*Browser
}

// RegistryOption defines a function type to modify the BrowserRegistry instance.
type RegistryOption func(*BrowserRegistry)

func WithRegistryClock(nowFunc func() time.Time) RegistryOption {
	return func(r *BrowserRegistry) {
		r.now = nowFunc
	}
}

func NewBrowserRegistry(kv storage.KV, api session.AuthAPI, options ...RegistryOption) *BrowserRegistry {
	r := &BrowserRegistry{
		kv:       kv,
		api:      api,
		now:      time.Now,
		browsers: make(map[string]*Browser),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Open returns the browser for id, creating it on first sight. A new browser
// hydrates from its stored credential in the background; until that settles
// its session reports loading.
func (r *BrowserRegistry) Open(ctx context.Context, id string) (*Browser, error) {
	if id == "" {
		return nil, fmt.Errorf("[BrowserRegistry Open] id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.browsers[id]; ok {
		b.lastSeen = r.now()
		return b, nil
	}

	kv := storage.Namespace(r.kv, id)
	store, err := session.NewStore(r.api, tokenstore.New(kv), session.WithNowTime(r.now))
	if err != nil {
		return nil, fmt.Errorf("[BrowserRegistry Open] %w", err)
	}
	b := &Browser{
		ID:          id,
		Session:     store,
		Preferences: preferences.New(kv),
		lastSeen:    r.now(),
	}
	r.browsers[id] = b

	// Without a credential hydration makes no backend call, so it settles
	// before the first page is guarded.
	if _, ok := store.Token(ctx); !ok {
		if err := store.Initialize(ctx); err != nil {
			log.Warn().Err(err).Str("browser", id).Msg("hydration failed")
		}
		return b, nil
	}

	// Report loading until the background fetch of the user resolves
	store.Dispatch(session.Action{Type: session.ActionHydrateStart})
	go func(ctx context.Context) {
		if err := store.Initialize(ctx); err != nil {
			log.Debug().Err(err).Str("browser", id).Msg("hydration failed")
		}
	}(context.WithoutCancel(ctx))

	return b, nil
}

// Sweep forgets browsers not seen for idle and returns how many went.
func (r *BrowserRegistry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	removed := 0
	for id, b := range r.browsers {
		if b.lastSeen.Before(cutoff) {
			delete(r.browsers, id)
			removed++
		}
	}
	return removed
}

func (r *BrowserRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.browsers)
}
