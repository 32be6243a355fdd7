package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the authenticated operator's identity and tenant scope.
// Every handler trusts CompanyID from here; nothing tenant-scoped is
// read from the request body.
type Claims struct {
	UserID    int64  `json:"user_id"`
	CompanyID int64  `json:"company_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// HasRole checks whether the token belongs to one of the given roles.
func (c *Claims) HasRole(roles ...string) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// VerifyAudience checks whether the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string) bool {
	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}
	return false
}
