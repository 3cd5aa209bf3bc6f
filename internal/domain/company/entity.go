// internal/domain/company/entity.go
package company

import "time"

// Company is the employer account that owns subscriptions, credit lots and
// job postings.
type Company struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Email         string    `json:"email" db:"email"`
	MaxActiveJobs int       `json:"max_active_jobs" db:"max_active_jobs"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
