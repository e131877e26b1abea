// Package auth issues and checks the HS256 tokens of the panel service:
// session tokens naming a user and a role, and the short-lived nonces the
// panel presents when it persists dismissals.
package auth

import "github.com/golang-jwt/jwt/v5"

// Scopes carried by Claims.Scope.
const (
	ScopeSession = "session"
	ScopeNotices = "notices"
)

// Claims is the token payload.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Scope  string `json:"scope,omitempty"`
}

// HasScope reports whether the token carries one of scopes. A token
// without a scope has none.
func (c *Claims) HasScope(scopes ...string) bool {
	if c == nil || c.Scope == "" {
		return false
	}
	for _, s := range scopes {
		if c.Scope == s {
			return true
		}
	}
	return false
}
