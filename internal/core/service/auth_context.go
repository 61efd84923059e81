package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/newstaq/portal/internal/core/domain"
	"github.com/newstaq/portal/internal/core/ports"
)

// Reason tells subscribers why the auth state changed.
type Reason string

const (
	ReasonBootstrap Reason = "bootstrap"
	ReasonExpired   Reason = "expired"
	ReasonLogin     Reason = "login"
	ReasonLogout    Reason = "logout"
	ReasonForced    Reason = "forced_sign_out"
)

// Event is published to subscribers after every transition. Navigate is
// the path the shell should move to, empty when no navigation is implied.
type Event struct {
	State    domain.AuthState `json:"state"`
	Navigate string           `json:"navigate,omitempty"`
	Reason   Reason           `json:"reason"`
}

// LoginResult is what the login form gets back.
type LoginResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// AuthContext is the single authority on who is logged in for one browser
// profile. It starts in the bootstrapping state (loading) and leaves it
// exactly once, when Bootstrap has read the session store.
//
// Every write to the session store goes through an AuthContext.
type AuthContext struct {
	store  ports.SessionStore
	client ports.AuthClient
	log    zerolog.Logger
	now    func() time.Time

	// commitMu serialises store writes with the in-memory transition so the
	// store and the state never disagree; the last login wins.
	commitMu sync.Mutex
	// pubMu is taken before commitMu is released, so subscribers see
	// events in commit order.
	pubMu sync.Mutex

	mu         sync.RWMutex
	session    *domain.Session
	loading    bool
	generation uint64

	bootOnce sync.Once
	ready    chan struct{}

	subMu   sync.Mutex
	subs    map[uint64]func(Event)
	nextSub uint64
}

// NewAuthContext returns a context in the bootstrapping state. Call
// Bootstrap once to rehydrate it.
func NewAuthContext(store ports.SessionStore, client ports.AuthClient, log zerolog.Logger) *AuthContext {
	return &AuthContext{
		store:   store,
		client:  client,
		log:     log,
		now:     time.Now,
		loading: true,
		ready:   make(chan struct{}),
		subs:    make(map[uint64]func(Event)),
	}
}

// Bootstrap reads any persisted session and ends the loading phase. Only
// the first call does any work.
func (a *AuthContext) Bootstrap(ctx context.Context) {
	a.bootOnce.Do(func() {
		a.commitMu.Lock()
		sess, ok := a.store.Read(ctx)
		reason := ReasonBootstrap
		if ok && tokenExpired(sess.Token, a.now()) {
			if err := a.store.Clear(ctx); err != nil {
				a.log.Warn().Err(err).Msg("failed to clear expired session")
			}
			ok = false
			reason = ReasonExpired
		}

		a.mu.Lock()
		if ok {
			a.session = &sess
			a.generation++
		}
		a.loading = false
		st := a.stateLocked()
		a.mu.Unlock()

		a.log.Debug().Bool("authenticated", st.IsAuthenticated).Str("reason", string(reason)).Msg("auth context rehydrated")
		a.commitAndPublish(Event{State: st, Reason: reason})
		close(a.ready)
	})
}

// Ready is closed once bootstrapping is over and its event delivered.
func (a *AuthContext) Ready() <-chan struct{} {
	return a.ready
}

// State returns a snapshot of the derived auth state.
func (a *AuthContext) State() domain.AuthState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stateLocked()
}

// Credentials returns the bearer token of the current session (empty when
// signed out) and the generation it belongs to.
func (a *AuthContext) Credentials() (string, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return "", a.generation
	}
	return a.session.Token, a.generation
}

// Generation changes on every login and sign-out.
func (a *AuthContext) Generation() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.generation
}

// Login exchanges the credentials through the auth client and commits the
// session on success. A failed attempt leaves any existing session alone.
func (a *AuthContext) Login(ctx context.Context, username, password string) LoginResult {
	sess, err := a.client.Login(ctx, domain.Credential{Username: username, Password: password})
	if err != nil {
		msg := domain.MsgInvalidCredentials
		var ae *domain.AuthError
		if errors.As(err, &ae) && ae.Message != "" {
			msg = ae.Message
		}
		a.log.Info().Err(err).Str("username", username).Msg("login rejected")
		return LoginResult{Error: msg}
	}

	a.commitMu.Lock()
	if err := a.store.Write(ctx, sess); err != nil {
		a.commitMu.Unlock()
		a.log.Error().Err(err).Str("username", username).Msg("failed to persist session")
		return LoginResult{Error: domain.MsgServiceUnavailable}
	}
	a.mu.Lock()
	a.session = &sess
	a.generation++
	st := a.stateLocked()
	a.mu.Unlock()

	a.log.Info().Str("username", username).Str("role", string(sess.User.Role)).Msg("login succeeded")
	a.commitAndPublish(Event{State: st, Navigate: sess.User.Home(), Reason: ReasonLogin})
	return LoginResult{Success: true}
}

// Logout clears the session and asks the shell to go to the login page.
// Calling it while signed out only repeats the navigation signal.
func (a *AuthContext) Logout(ctx context.Context) {
	a.commitMu.Lock()
	st := a.signOutLocked(ctx)
	a.commitAndPublish(Event{State: st, Navigate: domain.PathLogin, Reason: ReasonLogout})
}

// AuthorizationFailed is the forced sign-out hook for the API transport.
// generation is the one the failing request was sent with; a failure from
// an older session is ignored. It reports whether a sign-out happened.
func (a *AuthContext) AuthorizationFailed(ctx context.Context, generation uint64, status int) bool {
	a.commitMu.Lock()
	if generation != a.Generation() {
		a.commitMu.Unlock()
		a.log.Debug().Int("status", status).Msg("stale authorization failure ignored")
		return false
	}
	st := a.signOutLocked(ctx)
	a.log.Warn().Int("status", status).Msg("forced sign-out")
	a.commitAndPublish(Event{State: st, Navigate: domain.PathLogin, Reason: ReasonForced})
	return true
}

// Subscribe registers fn for every future event, delivered in commit
// order. fn must not log in or out on the same context. The returned func
// removes it again.
func (a *AuthContext) Subscribe(fn func(Event)) func() {
	a.subMu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.subMu.Unlock()

	return func() {
		a.subMu.Lock()
		delete(a.subs, id)
		a.subMu.Unlock()
	}
}

// Close drops every subscriber. The registry calls it when the context is
// evicted; the session itself stays in the store.
func (a *AuthContext) Close() {
	a.subMu.Lock()
	a.subs = make(map[uint64]func(Event))
	a.subMu.Unlock()
}

// commitAndPublish must be called with commitMu held and releases it.
func (a *AuthContext) commitAndPublish(ev Event) {
	a.pubMu.Lock()
	a.commitMu.Unlock()
	defer a.pubMu.Unlock()
	a.publish(ev)
}

// signOutLocked must be called with commitMu held.
func (a *AuthContext) signOutLocked(ctx context.Context) domain.AuthState {
	if err := a.store.Clear(ctx); err != nil {
		a.log.Error().Err(err).Msg("failed to clear session store")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != nil {
		a.session = nil
		a.generation++
	}
	return a.stateLocked()
}

func (a *AuthContext) stateLocked() domain.AuthState {
	if a.session == nil {
		return domain.NewAuthState(nil, a.loading)
	}
	return domain.NewAuthState(&a.session.User, a.loading)
}

func (a *AuthContext) publish(ev Event) {
	a.subMu.Lock()
	fns := make([]func(Event), 0, len(a.subs))
	for _, fn := range a.subs {
		fns = append(fns, fn)
	}
	a.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// tokenExpired reports whether token is a JWT whose exp lies in the past.
// Opaque tokens never expire from the shell's point of view.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
