package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/newstaq/portal/internal/api/metrics"
	"github.com/newstaq/portal/internal/api/view"
	"github.com/newstaq/portal/internal/core/domain"
	"github.com/newstaq/portal/internal/core/guard"
)

const authStateKey = "auth_state"

// Settle waits up to wait for the profile's context to finish rehydrating
// and returns the state the guards must see. If rehydration is still
// running afterwards the state is still loading.
func Settle(c echo.Context, wait time.Duration) domain.AuthState {
	ac := AuthContext(c)
	if ac == nil {
		return domain.NewAuthState(nil, false)
	}

	select {
	case <-ac.Ready():
	default:
		if wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ac.Ready():
			case <-t.C:
			case <-c.Request().Context().Done():
			}
		}
	}
	return ac.State()
}

// State returns the snapshot the guard middleware evaluated, so the page
// is rendered from the same state the decision was taken on.
func State(c echo.Context) domain.AuthState {
	if st, ok := c.Get(authStateKey).(domain.AuthState); ok {
		return st
	}
	if ac := AuthContext(c); ac != nil {
		return ac.State()
	}
	return domain.NewAuthState(nil, false)
}

// Apply carries out d: the placeholder, a redirect, or next with the
// evaluated state stored in the context. label names the guard in metrics.
func Apply(c echo.Context, label string, d guard.Decision, st domain.AuthState, next echo.HandlerFunc) error {
	metrics.GuardDecisionsTotal.WithLabelValues(label, d.Outcome.String()).Inc()

	switch d.Outcome {
	case guard.Loading:
		return view.RenderLoading(c)
	case guard.Redirect:
		return c.Redirect(http.StatusFound, d.Location)
	default:
		c.Set(authStateKey, st)
		return next(c)
	}
}

// Guard protects a route with the given guard kind.
func Guard(kind guard.Kind, wait time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			st := Settle(c, wait)
			return Apply(c, kind.String(), guard.Evaluate(kind, st), st, next)
		}
	}
}
