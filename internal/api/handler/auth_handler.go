package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/newstaq/portal/internal/api/metrics"
	"github.com/newstaq/portal/internal/api/middleware"
	"github.com/newstaq/portal/internal/api/view"
	"github.com/newstaq/portal/internal/core/domain"
	"github.com/newstaq/portal/internal/core/service"
)

const sseKeepAlive = 25 * time.Second

type AuthHandler struct {
	loginTimeout time.Duration
}

func NewAuthHandler(loginTimeout time.Duration) *AuthHandler {
	return &AuthHandler{loginTimeout: loginTimeout}
}

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// LoginPage renders the login form. It is reachable whatever the auth
// state.
//
// @Summary      Login page
// @Tags         auth
// @Produce      json
// @Success      200  {object}  view.Page
// @Router       /login [get]
func (h *AuthHandler) LoginPage(c echo.Context) error {
	return view.Render(c, http.StatusOK, view.New(view.Login, middleware.State(c)))
}

// Login submits the login form. On success the browser is sent to the
// home of the user's role; on failure the form comes back with the
// message to display.
//
// @Summary      Login
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      303
// @Failure      400   {object}  view.Page
// @Failure      401   {object}  view.Page
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	ac, err := sessionContext(c)
	if err != nil {
		return err
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		return h.loginFailed(c, ac, http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		return h.loginFailed(c, ac, http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if h.loginTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.loginTimeout)
		defer cancel()
	}

	res := ac.Login(ctx, req.Username, req.Password)
	if !res.Success {
		metrics.LoginAttemptsTotal.WithLabelValues("rejected").Inc()
		return h.loginFailed(c, ac, http.StatusUnauthorized, res.Error)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return c.Redirect(http.StatusSeeOther, ac.State().Home())
}

func (h *AuthHandler) loginFailed(c echo.Context, ac *service.AuthContext, code int, msg string) error {
	p := view.New(view.Login, ac.State())
	p.Error = msg
	return view.Render(c, code, p)
}

// Logout ends the session of this browser profile.
//
// @Summary      Logout
// @Tags         auth
// @Success      303
// @Router       /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	ac, err := sessionContext(c)
	if err != nil {
		return err
	}
	ac.Logout(c.Request().Context())
	return c.Redirect(http.StatusSeeOther, domain.PathLogin)
}

// State returns the current auth state without waiting for rehydration.
//
// @Summary      Auth state
// @Tags         auth
// @Produce      json
// @Success      200  {object}  domain.AuthState
// @Router       /auth/state [get]
func (h *AuthHandler) State(c echo.Context) error {
	ac, err := sessionContext(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ac.State())
}

// Events streams the auth transitions of this browser profile as
// server-sent events, starting with the current state. A forced sign-out
// reaches the open UI through this stream.
//
// @Summary      Auth events
// @Tags         auth
// @Produce      text/event-stream
// @Success      200
// @Router       /auth/events [get]
func (h *AuthHandler) Events(c echo.Context) error {
	ac, err := sessionContext(c)
	if err != nil {
		return err
	}

	events := make(chan service.Event, 16)
	unsubscribe := ac.Subscribe(func(ev service.Event) {
		select {
		case events <- ev:
		default:
		}
	})
	defer unsubscribe()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "state", service.Event{State: ac.State()}); err != nil {
		return nil
	}

	ping := time.NewTicker(sseKeepAlive)
	defer ping.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if err := writeEvent(w, "auth", ev); err != nil {
				return nil
			}
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeEvent(w *echo.Response, name string, ev service.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
