package service

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/newstaq/portal/internal/core/ports"
)

const (
	defaultBootstrapTimeout = 5 * time.Second
	defaultMaxProfiles      = 10000
	defaultIdleTTL          = time.Hour
)

// Hook is called with a profile's context when the registry creates or
// evicts it.
type Hook func(profileID string, ac *AuthContext)

// RegistryOption tunes a Registry.
type RegistryOption func(*Registry)

// WithMaxProfiles caps the number of live contexts. The least recently
// used one is evicted past the cap.
func WithMaxProfiles(n int) RegistryOption {
	return func(r *Registry) { r.maxProfiles = n }
}

// WithIdleTTL evicts contexts not requested for d.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = d }
}

// Registry owns one AuthContext per browser profile. A context is built
// the first time its profile is seen and rehydrates in the background.
// Idle contexts are evicted; the profile's next request rebuilds one from
// the session store.
type Registry struct {
	backend ports.SessionBackend
	client  ports.AuthClient
	log     zerolog.Logger

	maxProfiles int
	idleTTL     time.Duration

	// mu makes lookup and creation of a profile's context atomic.
	mu       sync.Mutex
	contexts *expirable.LRU[string, *AuthContext]

	hookMu      sync.RWMutex
	createHooks []Hook
	evictHooks  []Hook
}

func NewRegistry(backend ports.SessionBackend, client ports.AuthClient, log zerolog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		backend:     backend,
		client:      client,
		log:         log,
		maxProfiles: defaultMaxProfiles,
		idleTTL:     defaultIdleTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.contexts = expirable.NewLRU[string, *AuthContext](r.maxProfiles, r.evicted, r.idleTTL)
	return r
}

// OnCreate registers fn to run for every new context before it starts
// bootstrapping, so fn sees the bootstrap event.
func (r *Registry) OnCreate(fn Hook) {
	r.hookMu.Lock()
	r.createHooks = append(r.createHooks, fn)
	r.hookMu.Unlock()
}

// OnEvict registers fn to run after a context left the registry and its
// subscribers were dropped.
func (r *Registry) OnEvict(fn Hook) {
	r.hookMu.Lock()
	r.evictHooks = append(r.evictHooks, fn)
	r.hookMu.Unlock()
}

// Get returns the context of profileID, creating it on first use. Every
// call pushes back the profile's idle deadline.
func (r *Registry) Get(profileID string) *AuthContext {
	r.mu.Lock()
	if ac, ok := r.contexts.Get(profileID); ok {
		r.contexts.Add(profileID, ac)
		r.mu.Unlock()
		return ac
	}
	// an expired entry not swept yet still has to go through eviction
	r.contexts.Remove(profileID)

	log := r.log.With().Str("profile", profileID).Logger()
	ac := NewAuthContext(r.backend.ForProfile(profileID), r.client, log)
	for _, fn := range r.hooks(false) {
		fn(profileID, ac)
	}
	r.contexts.Add(profileID, ac)
	r.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultBootstrapTimeout)
		defer cancel()
		ac.Bootstrap(ctx)
	}()
	return ac
}

// Len returns the number of live contexts.
func (r *Registry) Len() int {
	return r.contexts.Len()
}

// evicted runs under the cache lock, so the release work is handed off.
func (r *Registry) evicted(profileID string, ac *AuthContext) {
	go r.release(profileID, ac)
}

func (r *Registry) release(profileID string, ac *AuthContext) {
	ac.Close()
	for _, fn := range r.hooks(true) {
		fn(profileID, ac)
	}
	r.log.Debug().Str("profile", profileID).Msg("auth context evicted")
}

func (r *Registry) hooks(evict bool) []Hook {
	r.hookMu.RLock()
	defer r.hookMu.RUnlock()
	if evict {
		return append([]Hook(nil), r.evictHooks...)
	}
	return append([]Hook(nil), r.createHooks...)
}
