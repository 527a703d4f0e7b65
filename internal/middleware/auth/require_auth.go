package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/todo_api/internal/token"
)

const bearerPrefix = "Bearer "

// RequireAuth extracts the bearer token from the Authorization header,
// decodes it and stores the subject and role in the echo context. Every
// failure kind maps to 401, but the messages stay distinct so clients can
// tell an expired token from a missing one.
func RequireAuth(tokens *token.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" || !strings.HasPrefix(header, bearerPrefix) {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
			}

			claims, err := tokens.Decode(strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				switch {
				case errors.Is(err, token.ErrExpiredToken):
					return echo.NewHTTPError(http.StatusUnauthorized, "expired token")
				case errors.Is(err, token.ErrMissingToken):
					return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
				default:
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
			}
			if claims.Kind != token.KindAccess {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set("userID", claims.Subject)
			c.Set("role", claims.Role)
			return next(c)
		}
	}
}

// Subject returns the authenticated user id set by RequireAuth.
func Subject(c echo.Context) uint {
	if id, ok := c.Get("userID").(uint); ok {
		return id
	}
	return 0
}

// RoleOf returns the role claim set by RequireAuth, RoleNone if absent.
func RoleOf(c echo.Context) token.Role {
	if r, ok := c.Get("role").(token.Role); ok {
		return r
	}
	return token.RoleNone
}
