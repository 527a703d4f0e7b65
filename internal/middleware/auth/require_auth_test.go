package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/todo_api/internal/token"
)

func newContext(t *testing.T, authorization string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/todos", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRequireAuth(t *testing.T) {
	tokens := &token.Service{Secret: []byte("test-secret"), AccessTTL: time.Minute}
	mw := RequireAuth(tokens)

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	raw, err := tokens.Issue(42, token.RoleAdmin, token.KindAccess)
	require.NoError(t, err)

	c := newContext(t, "Bearer "+raw)
	require.NoError(t, mw(next)(c))
	require.Equal(t, uint(42), Subject(c))
	require.Equal(t, token.RoleAdmin, RoleOf(c))
}

func TestRequireAuthMissingHeader(t *testing.T) {
	tokens := &token.Service{Secret: []byte("test-secret")}
	mw := RequireAuth(tokens)
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	err := mw(next)(newContext(t, ""))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, he.Code)
	require.Equal(t, "missing token", he.Message)

	// Unrecognized scheme counts as missing, not invalid.
	err = mw(next)(newContext(t, "Basic dXNlcjpwdw=="))
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, "missing token", he.Message)
}

func TestRequireAuthFailureKinds(t *testing.T) {
	tokens := &token.Service{Secret: []byte("test-secret"), AccessTTL: time.Minute}
	mw := RequireAuth(tokens)
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	err := mw(next)(newContext(t, "Bearer not.a.token"))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, "invalid token", he.Message)

	expired, signErr := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  1,
		"role": "user",
		"exp":  time.Now().Add(-time.Minute).Unix(),
		"typ":  "access",
	}).SignedString(tokens.Secret)
	require.NoError(t, signErr)

	err = mw(next)(newContext(t, "Bearer "+expired))
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, "expired token", he.Message)

	// Refresh tokens cannot authenticate API calls.
	refresh, signErr := tokens.Issue(1, token.RoleUser, token.KindRefresh)
	require.NoError(t, signErr)
	err = mw(next)(newContext(t, "Bearer "+refresh))
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, "invalid token", he.Message)
}

func TestContextHelpersDefaults(t *testing.T) {
	c := newContext(t, "")
	require.Equal(t, uint(0), Subject(c))
	require.Equal(t, token.RoleNone, RoleOf(c))
}
