package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the decoded payload of a bearer token. The role is whatever was
// embedded at issuance; it is not re-read from storage on decode, so a role
// change only takes effect on the next login or refresh.
type Claims struct {
	Subject   uint
	Role      Role
	Kind      Kind
	ExpiresAt time.Time
}

type Service struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (s *Service) ttl(kind Kind) time.Duration {
	if kind == KindRefresh {
		if s.RefreshTTL > 0 {
			return s.RefreshTTL
		}
		return 7 * 24 * time.Hour
	}
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return 15 * time.Minute
}

func (s *Service) Issue(userID uint, role Role, kind Kind) (string, error) {
	exp := time.Now().Add(s.ttl(kind))
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role.String(),
		"exp":  exp.Unix(),
		"typ":  string(kind),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.Secret)
}

func (s *Service) IssuePair(userID uint, role Role) (access, refresh string, err error) {
	access, err = s.Issue(userID, role, KindAccess)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.Issue(userID, role, KindRefresh)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Decode verifies raw and returns its claims. Failure kinds are distinct so
// callers can tell an expired token from a malformed one even though both
// end up as a 401 at the HTTP boundary.
func (s *Service) Decode(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}

	t, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !t.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := mc["sub"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}

	out := &Claims{
		Subject: uint(sub),
		Role:    RoleNone,
		Kind:    KindAccess,
	}
	if role, ok := mc["role"].(string); ok {
		out.Role = ParseRole(role)
	}
	if typ, ok := mc["typ"].(string); ok {
		out.Kind = Kind(typ)
	}
	if exp, ok := mc["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return out, nil
}
