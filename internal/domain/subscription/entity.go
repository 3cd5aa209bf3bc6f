// internal/domain/subscription/entity.go
package subscription

import (
	"database/sql"
	"time"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// SubscriptionPlan is catalog reference data: price, job-posting cap and the
// monthly credit grants issued on assignment and every renewal.
type SubscriptionPlan struct {
	ID          int64          `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Description sql.NullString `json:"description,omitempty" db:"description"`

	Price    float64 `json:"price" db:"price"`
	Currency string  `json:"currency" db:"currency"`

	MaxActiveJobs int `json:"max_active_jobs" db:"max_active_jobs"`

	FeaturedCreditsMonthly int `json:"featured_credits_monthly" db:"featured_credits_monthly"`
	HomepageCreditsMonthly int `json:"homepage_credits_monthly" db:"homepage_credits_monthly"`
	UrgentCreditsMonthly   int `json:"urgent_credits_monthly" db:"urgent_credits_monthly"`

	Features []string `json:"features,omitempty" db:"features"`

	IsActive     bool `json:"is_active" db:"is_active"`
	DisplayOrder int  `json:"display_order" db:"display_order"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CompanySubscription is one company's relationship to a plan over a billing
// period. At most one ACTIVE row exists per company.
type CompanySubscription struct {
	ID        int64  `json:"id" db:"id"`
	CompanyID int64  `json:"company_id" db:"company_id"`
	PlanID    int64  `json:"plan_id" db:"plan_id"`
	Status    Status `json:"status" db:"status"`

	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`

	CancelledAt  sql.NullTime   `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelReason sql.NullString `json:"cancel_reason,omitempty" db:"cancel_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
