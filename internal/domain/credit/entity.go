// internal/domain/credit/entity.go
package credit

import (
	"database/sql"
	"time"
)

type Type string

const (
	TypeFeatured Type = "featured"
	TypeHomepage Type = "homepage"
	TypeUrgent   Type = "urgent"
)

// Valid reports whether t is one of the known credit types.
func (t Type) Valid() bool {
	switch t {
	case TypeFeatured, TypeHomepage, TypeUrgent:
		return true
	}
	return false
}

type Source string

const (
	SourcePlanMonthly Source = "plan_monthly"
	SourcePurchase    Source = "purchase"
	SourceAdminGrant  Source = "admin_grant"
)

// Duration policies for a usage drawn from a lot, in days.
const (
	DurationDays7  = 7
	DurationDays14 = 14
	DurationDays30 = 30
)

// PurchaseExpiryDays is how long purchased and admin-granted lots stay
// available before the sweep destroys whatever amount remains. Lots granted
// by a plan's monthly allowance never expire.
const PurchaseExpiryDays = 90

// LowBalanceThreshold is the lot amount at or below which the alert sweep
// sends a low-credits notification.
const LowBalanceThreshold = 2

// CreditBalance is a lot: a still-available quantity of one credit type
// granted from one source. The (company_id, credit_type, source, source_id)
// tuple is the natural dedup key; a deposit against an existing key
// increments amount in place.
type CreditBalance struct {
	ID        int64  `json:"id" db:"id"`
	CompanyID int64  `json:"company_id" db:"company_id"`
	Type      Type   `json:"credit_type" db:"credit_type"`
	Amount    int    `json:"amount" db:"amount"`
	Source    Source `json:"source" db:"source"`
	SourceID  string `json:"source_id" db:"source_id"`

	// DurationDays governs how long a usage drawn from this lot stays active.
	DurationDays int          `json:"duration_days" db:"duration_days"`
	ExpiresAt    sql.NullTime `json:"expires_at,omitempty" db:"expires_at"`

	// Idempotency flags so each alert fires at most once per lot.
	LowCreditNotified bool `json:"low_credit_notified" db:"low_credit_notified"`
	ExpiryNotified    bool `json:"expiry_notified" db:"expiry_notified"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreditUsage is the application of one credit unit to one job posting for a
// bounded time window.
type CreditUsage struct {
	ID        int64 `json:"id" db:"id"`
	CompanyID int64 `json:"company_id" db:"company_id"`
	JobID     int64 `json:"job_id" db:"job_id"`

	// BalanceID goes NULL once the expiry sweep destroys the source lot;
	// the usage row itself is kept as history.
	BalanceID sql.NullInt64 `json:"balance_id" db:"balance_id"`
	Type      Type          `json:"credit_type" db:"credit_type"`

	DurationDays int       `json:"duration_days" db:"duration_days"`
	StartDate    time.Time `json:"start_date" db:"start_date"`
	EndDate      time.Time `json:"end_date" db:"end_date"`
	IsActive     bool      `json:"is_active" db:"is_active"`

	// Engagement counters for ROI reporting.
	Views        int `json:"views" db:"views"`
	Clicks       int `json:"clicks" db:"clicks"`
	Applications int `json:"applications" db:"applications"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreditPackage is a one-off purchasable credit bundle.
type CreditPackage struct {
	ID          int64          `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Description sql.NullString `json:"description,omitempty" db:"description"`

	Price    float64 `json:"price" db:"price"`
	Currency string  `json:"currency" db:"currency"`

	FeaturedCredits int `json:"featured_credits" db:"featured_credits"`
	HomepageCredits int `json:"homepage_credits" db:"homepage_credits"`
	UrgentCredits   int `json:"urgent_credits" db:"urgent_credits"`

	// DurationDays applies to every usage drawn from lots this package grants.
	DurationDays int `json:"duration_days" db:"duration_days"`

	IsActive     bool `json:"is_active" db:"is_active"`
	DisplayOrder int  `json:"display_order" db:"display_order"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// BalanceSummary aggregates a company's still-spendable lots into a
// per-type view.
type BalanceSummary struct {
	CompanyID int64           `json:"company_id"`
	Featured  int             `json:"featured"`
	Homepage  int             `json:"homepage"`
	Urgent    int             `json:"urgent"`
	Lots      []CreditBalance `json:"lots"`
}
