package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/todo_api/internal/models"
)

func testUser() models.User {
	last := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.User{
		ID:           9,
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$somethinghashed",
		LastLogin:    &last,
	}
}

func TestResetTokenRoundTrip(t *testing.T) {
	g := &ResetGenerator{Secret: []byte("test-secret"), TTL: time.Hour}
	user := testUser()

	tok := g.Make(&user)
	require.True(t, g.Check(&user, tok))
}

func TestResetTokenTampered(t *testing.T) {
	g := &ResetGenerator{Secret: []byte("test-secret"), TTL: time.Hour}
	user := testUser()

	tok := g.Make(&user)
	require.False(t, g.Check(&user, tok+"a"))
	require.False(t, g.Check(&user, "garbage"))
	require.False(t, g.Check(&user, ""))

	// A token from another secret never verifies.
	other := &ResetGenerator{Secret: []byte("other"), TTL: time.Hour}
	require.False(t, g.Check(&user, other.Make(&user)))
}

func TestResetTokenInvalidatedByStateChange(t *testing.T) {
	g := &ResetGenerator{Secret: []byte("test-secret"), TTL: time.Hour}
	user := testUser()

	tok := g.Make(&user)

	changed := user
	changed.PasswordHash = "$2a$10$somethingelse"
	require.False(t, g.Check(&changed, tok))

	// A new login also rotates the fingerprint.
	relogged := user
	now := time.Now()
	relogged.LastLogin = &now
	require.False(t, g.Check(&relogged, tok))
}

func TestResetTokenExpiry(t *testing.T) {
	g := &ResetGenerator{Secret: []byte("test-secret"), TTL: time.Nanosecond}
	user := testUser()

	tok := g.Make(&user)
	time.Sleep(time.Millisecond)
	require.False(t, g.Check(&user, tok))
}

func TestUIDEncoding(t *testing.T) {
	for _, id := range []uint{1, 42, 100000} {
		decoded, err := DecodeUID(EncodeUID(id))
		require.NoError(t, err)
		require.Equal(t, id, decoded)
	}

	_, err := DecodeUID("!!!")
	require.Error(t, err)

	_, err = DecodeUID(EncodeUID(1) + "notanumber")
	require.Error(t, err)
}
