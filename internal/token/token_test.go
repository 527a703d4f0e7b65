package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newService() *Service {
	return &Service{
		Secret:     []byte("test-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

func TestIssueAndDecode(t *testing.T) {
	s := newService()

	raw, err := s.Issue(42, RoleAdmin, KindAccess)
	require.NoError(t, err)

	claims, err := s.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.Subject)
	require.Equal(t, RoleAdmin, claims.Role)
	require.Equal(t, KindAccess, claims.Kind)
	require.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestIssuePairKinds(t *testing.T) {
	s := newService()

	access, refresh, err := s.IssuePair(7, RoleUser)
	require.NoError(t, err)

	ac, err := s.Decode(access)
	require.NoError(t, err)
	require.Equal(t, KindAccess, ac.Kind)

	rc, err := s.Decode(refresh)
	require.NoError(t, err)
	require.Equal(t, KindRefresh, rc.Kind)
	require.True(t, rc.ExpiresAt.After(ac.ExpiresAt))
}

func TestDecodeFailureKinds(t *testing.T) {
	s := newService()

	_, err := s.Decode("")
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = s.Decode("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)

	other := &Service{Secret: []byte("other-secret"), AccessTTL: time.Minute}
	raw, err := other.Issue(1, RoleUser, KindAccess)
	require.NoError(t, err)
	_, err = s.Decode(raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	// Expired is distinguishable from merely invalid.
	raw, err = jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  1,
		"role": "user",
		"exp":  time.Now().Add(-time.Minute).Unix(),
		"typ":  "access",
	}).SignedString(s.Secret)
	require.NoError(t, err)
	_, err = s.Decode(raw)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestDecodeMissingRoleClaim(t *testing.T) {
	s := newService()

	// A token without a role claim decodes to the sentinel, not a crash.
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 5,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(s.Secret)
	require.NoError(t, err)

	claims, err := s.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, RoleNone, claims.Role)
	require.Equal(t, KindAccess, claims.Kind)
}

func TestParseRole(t *testing.T) {
	require.Equal(t, RoleUser, ParseRole("user"))
	require.Equal(t, RoleAdmin, ParseRole("admin"))
	require.Equal(t, RoleUnknown, ParseRole("Unknown"))
	require.Equal(t, RoleNone, ParseRole("superuser"))
	require.Equal(t, RoleNone, ParseRole(""))

	require.True(t, AssignableRole("user"))
	require.True(t, AssignableRole("admin"))
	require.False(t, AssignableRole("Unknown"))
	require.False(t, AssignableRole("none"))
}
