// internal/pkg/session/types.go
package session

import "time"

type SessionData struct {
	JTI            string                 `json:"jti"`
	IdentityID     int64                  `json:"identity_id"`
	CompanyID      int64                  `json:"company_id,omitempty"`
	Email          string                 `json:"email"`
	Roles          []string               `json:"roles"`
	Permissions    []string               `json:"permissions"`
	Device         string                 `json:"device,omitempty"`
	IPAddress      string                 `json:"ip_address"`
	UserAgent      string                 `json:"user_agent"`
	LoginAt        time.Time              `json:"login_at"`
	LastActivityAt time.Time              `json:"last_activity_at"`
	ExpiresAt      time.Time              `json:"expires_at"`
	IsActive       bool                   `json:"is_active"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}
