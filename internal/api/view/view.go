// Package view describes the pages the shell renders. A page is a JSON
// descriptor: the view name, the navigation chrome and the current user.
package view

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/newstaq/portal/internal/core/domain"
	"github.com/newstaq/portal/internal/core/guard"
)

const (
	Loading = "loading"
	Landing = "landing"
	Login   = "login"
)

// LoadingMessage is shown while the session is being rehydrated.
const LoadingMessage = "Chargement..."

// Page is the descriptor of a rendered view.
type Page struct {
	View    string              `json:"view"`
	Nav     []guard.NavItem     `json:"nav,omitempty"`
	User    *domain.UserProfile `json:"user,omitempty"`
	Message string              `json:"message,omitempty"`
	Error   string              `json:"error,omitempty"`
	Data    any                 `json:"data,omitempty"`
}

// New builds the page of name for st, with the chrome st allows.
func New(name string, st domain.AuthState) Page {
	return Page{View: name, Nav: guard.Navigation(st), User: st.User}
}

// Render writes p with status code.
func Render(c echo.Context, code int, p Page) error {
	return c.JSON(code, p)
}

// RenderLoading writes the placeholder shown while rehydrating. No chrome
// and no user: nothing about the session is known yet.
func RenderLoading(c echo.Context) error {
	c.Response().Header().Set("Retry-After", "1")
	return c.JSON(http.StatusOK, Page{View: Loading, Message: LoadingMessage})
}
