// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims issued by the platform identity service.
type Claims struct {
	IdentityID     int64                  `json:"identity_id"`
	CompanyID      int64                  `json:"company_id,omitempty"`
	Roles          []string               `json:"roles,omitempty"`
	Permissions    []string               `json:"permissions,omitempty"`
	Device         string                 `json:"device,omitempty"`
	IsTemp         bool                   `json:"is_temp"`
	SessionPurpose string                 `json:"session_purpose"` // access, refresh, etc.
	ExtraData      map[string]interface{} `json:"extra_data,omitempty"`
	jwt.RegisteredClaims
}

// VerifyAudience checks if the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string, required bool) bool {
	if len(c.Audience) == 0 {
		// If audience is required but missing
		return !required
	}

	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}

	return false
}
