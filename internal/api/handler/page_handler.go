package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/newstaq/portal/internal/api/middleware"
	"github.com/newstaq/portal/internal/api/view"
	"github.com/newstaq/portal/internal/core/guard"
)

// PageHandler renders the views of the route table plus the root and
// fallback policies.
type PageHandler struct {
	bootstrapWait time.Duration
}

func NewPageHandler(bootstrapWait time.Duration) *PageHandler {
	return &PageHandler{bootstrapWait: bootstrapWait}
}

// Page renders the view of r. The guard in front of it has already run.
func (h *PageHandler) Page(r guard.Route) echo.HandlerFunc {
	return func(c echo.Context) error {
		return view.Render(c, http.StatusOK, view.New(r.View, middleware.State(c)))
	}
}

// Root sends signed-in users to their home and shows the landing page to
// everybody else.
//
// @Summary      Root
// @Tags         pages
// @Produce      json
// @Success      200  {object}  view.Page
// @Success      302
// @Router       / [get]
func (h *PageHandler) Root(c echo.Context) error {
	st := middleware.Settle(c, h.bootstrapWait)
	return middleware.Apply(c, "root", guard.Root(st), st, func(c echo.Context) error {
		return view.Render(c, http.StatusOK, view.New(view.Landing, st))
	})
}

// Fallback handles every path no route matches: anonymous users go to the
// login page, signed-in users to their home.
func (h *PageHandler) Fallback(c echo.Context) error {
	st := middleware.Settle(c, h.bootstrapWait)
	return middleware.Apply(c, "fallback", guard.Fallback(st), st, func(c echo.Context) error {
		return echo.ErrNotFound
	})
}
