package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/newstaq/portal/docs"
	"github.com/newstaq/portal/internal/api/handler"
	"github.com/newstaq/portal/internal/api/middleware"
	"github.com/newstaq/portal/internal/core/guard"
	"github.com/newstaq/portal/internal/core/ports"
	"github.com/newstaq/portal/internal/core/service"
	"github.com/newstaq/portal/internal/pkg/validate"
)

// Deps is everything the router needs from main.
type Deps struct {
	Registry    *service.Registry
	Recovery    ports.PasswordRecovery
	Backend     ports.SessionBackend
	BackendName string

	APIBaseURL    string
	APITimeout    time.Duration
	LoginTimeout  time.Duration
	BootstrapWait time.Duration
	CookieSecure  bool

	Log zerolog.Logger

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "portal",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.LoginTimeout)
	pageHandler := handler.NewPageHandler(d.BootstrapWait)
	recoveryHandler := handler.NewRecoveryHandler(d.Recovery)
	proxyHandler := handler.NewProxyHandler(d.APIBaseURL, d.APITimeout, d.Log)
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Backend, d.BackendName, d.APIBaseURL)

	// Every browser-facing route resolves the profile first. Probes and
	// metrics do not, so they never create auth contexts.
	profile := middleware.Profile(d.Registry, d.CookieSecure)
	guarded := func(kind guard.Kind) []echo.MiddlewareFunc {
		return []echo.MiddlewareFunc{profile, middleware.Guard(kind, d.BootstrapWait)}
	}

	// --- Auth ---
	e.GET("/login", authHandler.LoginPage, guarded(guard.Public)...)
	e.POST("/login", authHandler.Login, profile)
	e.POST("/logout", authHandler.Logout, profile)
	e.GET("/auth/state", authHandler.State, profile)
	e.GET("/auth/events", authHandler.Events, profile)

	// --- Password recovery ---
	e.POST("/forgot-password", recoveryHandler.ForgotPassword, profile)
	e.GET("/reset-password/:token", recoveryHandler.ResetPasswordPage, guarded(guard.Public)...)
	e.POST("/reset-password/:token", recoveryHandler.ResetPassword, profile)

	// --- Pages ---
	e.GET("/", pageHandler.Root, profile)
	for _, r := range guard.Routes {
		if r.Path == "/login" || r.Path == "/reset-password/:token" {
			continue
		}
		e.GET(r.Path, pageHandler.Page(r), guarded(r.Guard)...)
	}
	e.RouteNotFound("/*", pageHandler.Fallback, profile)

	// --- Data proxy ---
	e.Any("/api/*", proxyHandler.Forward, profile)

	// --- Health probes, metrics and docs ---
	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/health" || p == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("profile", middleware.ProfileID(c)).
				Msg("request")
			return nil
		},
	})
}
