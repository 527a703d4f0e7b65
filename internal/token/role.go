package token

// Role is the closed set of roles this service understands. Storage and
// token claims carry the raw string; everything else goes through ParseRole
// so a typo'd role can never be mistaken for a real one.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"

	// RoleUnknown marks a user whose settings row is missing.
	RoleUnknown Role = "Unknown"
	// RoleNone marks a token that carries no role claim at all.
	RoleNone Role = "none"
)

func ParseRole(s string) Role {
	switch s {
	case string(RoleUser):
		return RoleUser
	case string(RoleAdmin):
		return RoleAdmin
	case string(RoleUnknown):
		return RoleUnknown
	default:
		return RoleNone
	}
}

// AssignableRole reports whether s may be requested at registration.
func AssignableRole(s string) bool {
	return s == string(RoleUser) || s == string(RoleAdmin)
}

func (r Role) String() string { return string(r) }
