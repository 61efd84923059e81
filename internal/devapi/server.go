// Package devapi is a small in-process stand-in for the WMS REST API. It
// serves the demo accounts and the endpoints the portal shell depends on,
// for local development and end-to-end tests.
package devapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/newstaq/portal/internal/core/domain"
	"github.com/newstaq/portal/internal/pkg/validate"
)

// detailResponse is the error envelope of the WMS API.
type detailResponse struct {
	Detail string `json:"detail"`
}

type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// Server bundles the echo instance with its services so tests can reach
// into them.
type Server struct {
	Echo    *echo.Echo
	Auth    *AuthService
	Catalog *Catalog
}

// New builds a seeded dev API. Routes live under /api like the real one.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("devapi: jwt secret is required")
	}

	auth := NewAuthService(cfg.JWTSecret, cfg.TokenTTL)
	catalog, err := Seed(ctx, auth)
	if err != nil {
		return nil, fmt.Errorf("devapi: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()
	e.HTTPErrorHandler = errorHandler(log)
	e.Use(middleware.Recover())

	h := NewHandler(auth, catalog)
	requireAuth := Auth(cfg.JWTSecret, auth)

	api := e.Group("/api")
	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
	api.POST("/auth/login", h.Login)
	api.POST("/auth/forgot-password", h.ForgotPassword)
	api.GET("/auth/verify-reset-token/:token", h.VerifyResetToken)
	api.POST("/auth/reset-password", h.ResetPassword)

	api.GET("/auth/me", h.Me, requireAuth)
	api.GET("/dashboard/stats", h.DashboardStats, requireAuth)
	api.GET("/clients", h.Clients, requireAuth, RequireRole(domain.RoleAdmin))

	return &Server{Echo: e, Auth: auth, Catalog: catalog}, nil
}

func errorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, detailResponse{Detail: fmt.Sprintf("%v", he.Message)})
			return
		}

		log.Error().Err(err).Str("path", c.Path()).Msg("devapi: unhandled error")
		_ = c.JSON(http.StatusInternalServerError, detailResponse{Detail: "Erreur serveur"})
	}
}
