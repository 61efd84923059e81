package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/newstaq/portal/internal/core/service"
)

// ProfileCookie identifies a browser profile. It plays the role local
// storage plays for a single-page app: whoever holds it shares the session.
const ProfileCookie = "wms_profile"

const (
	profileIDKey   = "profile_id"
	authContextKey = "auth_context"

	profileMaxAge = 400 * 24 * time.Hour
)

// Profile resolves the browser profile from its cookie, issuing a new one
// when absent or malformed, and injects the profile's AuthContext.
func Profile(registry *service.Registry, secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := ""
			if ck, err := c.Cookie(ProfileCookie); err == nil {
				if parsed, err := uuid.Parse(ck.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     ProfileCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   int(profileMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			c.Set(profileIDKey, id)
			c.Set(authContextKey, registry.Get(id))
			return next(c)
		}
	}
}

// AuthContext returns the context injected by Profile.
func AuthContext(c echo.Context) *service.AuthContext {
	ac, _ := c.Get(authContextKey).(*service.AuthContext)
	return ac
}

// ProfileID returns the profile id injected by Profile.
func ProfileID(c echo.Context) string {
	id, _ := c.Get(profileIDKey).(string)
	return id
}
