// internal/domain/job/entity.go
package job

import "time"

// Job is the narrow view of a job posting the entitlement engine needs:
// ownership, boost flags and engagement counters. The full posting (text
// fields, search, matching) lives outside this subsystem.
type Job struct {
	ID        int64  `json:"id" db:"id"`
	CompanyID int64  `json:"company_id" db:"company_id"`
	Title     string `json:"title" db:"title"`
	Status    string `json:"status" db:"status"`

	IsFeatured bool `json:"is_featured" db:"is_featured"`
	IsUrgent   bool `json:"is_urgent" db:"is_urgent"`

	Views int `json:"views" db:"views"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
