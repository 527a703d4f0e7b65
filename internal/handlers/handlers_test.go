package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/todo_api/internal/hash"
	"github.com/Skotchmaster/todo_api/internal/models"
	"github.com/Skotchmaster/todo_api/internal/token"
)

type testEnv struct {
	T      *testing.T
	E      *echo.Echo
	DB     *gorm.DB
	Tokens *token.Service
	Reset  *token.ResetGenerator
	A      *AuthHandler
	Todo   *TodoHandler
}

func initTestDB(t *testing.T, tables ...interface{}) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if len(tables) == 0 {
		tables = []interface{}{&models.User{}, &models.UserSettings{}, &models.Todo{}}
	}
	if err := db.AutoMigrate(tables...); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := initTestDB(t)

	tokens := &token.Service{
		Secret:     []byte("test-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
	reset := &token.ResetGenerator{Secret: []byte("test-secret"), TTL: 24 * time.Hour}

	return &testEnv{
		T:      t,
		E:      echo.New(),
		DB:     db,
		Tokens: tokens,
		Reset:  reset,
		A: &AuthHandler{
			DB:      db,
			Tokens:  tokens,
			Reset:   reset,
			BaseURL: "http://localhost:8080",
		},
		Todo: &TodoHandler{DB: db},
	}
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

// authedRequest builds a context carrying the subject and role the auth
// middleware would have extracted from a bearer token.
func (env *testEnv) authedRequest(method, path string, body interface{}, userID uint, role token.Role) (*httptest.ResponseRecorder, echo.Context) {
	rec, c := env.doJSONRequest(method, path, body)
	c.Set("userID", userID)
	c.Set("role", role)
	return rec, c
}

func (env *testEnv) createUser(username, email, password, role string) models.User {
	env.T.Helper()
	pwHash, err := hash.HashPassword(password)
	require.NoError(env.T, err)
	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		IsActive:     true,
	}
	require.NoError(env.T, env.DB.Create(&user).Error)
	if role != "" {
		require.NoError(env.T, env.DB.Create(&models.UserSettings{UserID: user.ID, Role: role}).Error)
	}
	return user
}

func requireHTTPError(t *testing.T, err error, code int) *echo.HTTPError {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError, got %v", err)
	require.Equal(t, code, he.Code)
	return he
}
