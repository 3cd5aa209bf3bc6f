// internal/middleware/auth_middleware.go
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"talenthub-service/internal/pkg/jwt"
	"talenthub-service/internal/pkg/response"
	"talenthub-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	verifier *jwt.Verifier
	sessions *session.Manager
}

func NewAuthMiddleware(verifier *jwt.Verifier, sessions *session.Manager) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		sessions: sessions,
	}
}

// Auth is the base authentication middleware that validates JWT tokens
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "missing authorization token", nil)
			return
		}

		claims, err := m.verifier.VerifyAccessToken(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
			return
		}

		if blacklisted, err := m.sessions.IsTokenBlacklisted(c.Request.Context(), claims.ID); err == nil && blacklisted {
			response.Error(c, http.StatusUnauthorized, "token has been revoked", nil)
			return
		}

		// Set user context
		c.Set("identity_id", claims.IdentityID)
		c.Set("company_id", claims.CompanyID)
		c.Set("jti", claims.ID)
		c.Set("roles", claims.Roles)
		c.Set("permissions", claims.Permissions)
		c.Set("device", claims.Device)
		c.Set("session_purpose", claims.SessionPurpose)

		// Best effort, a stale activity timestamp never blocks a request
		_ = m.sessions.UpdateSessionActivity(c.Request.Context(), claims.IdentityID, claims.ID)

		c.Next()
	}
}

// RequireRole middleware that requires user to have at least one of the specified roles
// MUST be used after Auth() middleware
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRolesList := GetRoles(c)
		if len(userRolesList) == 0 {
			response.Forbidden(c, "no roles found - authentication required")
			return
		}

		// Check if user has any of the required roles
		hasRole := false
		for _, userRole := range userRolesList {
			for _, requiredRole := range roles {
				if userRole == requiredRole {
					hasRole = true
					break
				}
			}
			if hasRole {
				break
			}
		}

		if !hasRole {
			err := errors.New("user does not have required role")
			response.Error(c, http.StatusForbidden, "insufficient permissions", err, map[string]interface{}{
				"required_roles": roles,
				"user_roles":     userRolesList,
			})
			return
		}

		c.Next()
	}
}

// AdminOnly returns middlewares for admin-only routes (Auth + RequireRole)
func (m *AuthMiddleware) AdminOnly() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Auth(),
		m.RequireRole("admin", "super_admin"),
	}
}

// CompanyOnly returns middlewares for employer routes (Auth + RequireRole)
func (m *AuthMiddleware) CompanyOnly() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Auth(),
		m.RequireRole("company"),
	}
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context) string {
	// Try header first
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	// Fallback to query param (used by the websocket handshake)
	token := c.Query("token")
	if token != "" {
		return token
	}

	return ""
}

// Helper function to get identity ID from context
func GetIdentityID(c *gin.Context) (int64, bool) {
	identityID, exists := c.Get("identity_id")
	if !exists {
		return 0, false
	}

	id, ok := identityID.(int64)
	return id, ok
}

// Helper function to get company ID from context
func GetCompanyID(c *gin.Context) (int64, bool) {
	companyID, exists := c.Get("company_id")
	if !exists {
		return 0, false
	}

	id, ok := companyID.(int64)
	return id, ok
}

// Helper function to check if user has role
func HasRole(c *gin.Context, role string) bool {
	roles, exists := c.Get("roles")
	if !exists {
		return false
	}

	rolesList, ok := roles.([]string)
	if !ok {
		return false
	}

	for _, r := range rolesList {
		if r == role {
			return true
		}
	}
	return false
}
