package devapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/newstaq/portal/internal/core/domain"
)

const profileKey = "profile"

// Auth validates the bearer JWT, loads the account it names and injects
// its profile into the context.
func Auth(jwtSecret string, svc *AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token requis")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(jwtSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if errors.Is(err, jwt.ErrTokenExpired) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token expiré")
			}
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token invalide")
			}

			username, _ := claims["username"].(string)
			profile, err := svc.Profile(c.Request().Context(), username)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Utilisateur non trouvé")
			}

			c.Set(profileKey, profile)
			return next(c)
		}
	}
}

// RequireRole rejects profiles whose role is not in allowed.
func RequireRole(allowed ...domain.Role) echo.MiddlewareFunc {
	set := make(map[domain.Role]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := currentProfile(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token requis")
			}
			if _, ok := set[p.Role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "Accès non autorisé")
			}
			return next(c)
		}
	}
}

func currentProfile(c echo.Context) (domain.UserProfile, bool) {
	p, ok := c.Get(profileKey).(domain.UserProfile)
	return p, ok
}
