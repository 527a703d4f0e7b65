package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Skotchmaster/todo_api/internal/models"
)

// ResetGenerator makes one-time password-reset tokens. A token is an HMAC
// over the user's current state (id, password hash, last login) plus an
// issue timestamp, so changing the password invalidates every token issued
// before the change without storing anything.
type ResetGenerator struct {
	Secret []byte
	TTL    time.Duration
}

func (g *ResetGenerator) ttl() time.Duration {
	if g.TTL > 0 {
		return g.TTL
	}
	return 24 * time.Hour
}

func (g *ResetGenerator) fingerprint(user *models.User, ts int64) string {
	lastLogin := int64(0)
	if user.LastLogin != nil {
		lastLogin = user.LastLogin.Unix()
	}
	return fmt.Sprintf("%d|%s|%d|%d", user.ID, user.PasswordHash, lastLogin, ts)
}

func (g *ResetGenerator) sign(user *models.User, ts int64) string {
	mac := hmac.New(sha256.New, g.Secret)
	mac.Write([]byte(g.fingerprint(user, ts)))
	return hex.EncodeToString(mac.Sum(nil)[:16])
}

func (g *ResetGenerator) Make(user *models.User) string {
	ts := time.Now().Unix()
	return strconv.FormatInt(ts, 36) + "-" + g.sign(user, ts)
}

// Check reports whether raw is a token issued for the user's current state
// and still within its lifetime.
func (g *ResetGenerator) Check(user *models.User, raw string) bool {
	part, sig, found := strings.Cut(raw, "-")
	if !found {
		return false
	}
	ts, err := strconv.ParseInt(part, 36, 64)
	if err != nil {
		return false
	}
	if time.Since(time.Unix(ts, 0)) > g.ttl() {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(g.sign(user, ts)))
}

// EncodeUID encodes a user id for embedding in a reset link.
func EncodeUID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

func DecodeUID(s string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
