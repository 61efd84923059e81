package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/newstaq/portal/internal/api/middleware"
	"github.com/newstaq/portal/internal/core/service"
)

// sessionContext returns the AuthContext injected by the Profile
// middleware. Its absence is a wiring mistake, not a client error.
func sessionContext(c echo.Context) (*service.AuthContext, error) {
	ac := middleware.AuthContext(c)
	if ac == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "missing browser profile")
	}
	return ac, nil
}

// errorResponse is the error envelope of the shell's JSON endpoints.
type errorResponse struct {
	Error string `json:"error"`
}
