// internal/domain/subscription/dto.go
package subscription

import "talenthub-service/internal/domain/credit"

type CreatePlanRequest struct {
	Name                   string   `json:"name" binding:"required"`
	Description            string   `json:"description"`
	Price                  float64  `json:"price" binding:"gte=0"`
	Currency               string   `json:"currency"`
	MaxActiveJobs          int      `json:"max_active_jobs" binding:"gte=0"`
	FeaturedCreditsMonthly int      `json:"featured_credits_monthly" binding:"gte=0"`
	HomepageCreditsMonthly int      `json:"homepage_credits_monthly" binding:"gte=0"`
	UrgentCreditsMonthly   int      `json:"urgent_credits_monthly" binding:"gte=0"`
	Features               []string `json:"features"`
	DisplayOrder           int      `json:"display_order"`
}

type UpdatePlanRequest struct {
	Name                   *string   `json:"name"`
	Description            *string   `json:"description"`
	Price                  *float64  `json:"price"`
	MaxActiveJobs          *int      `json:"max_active_jobs"`
	FeaturedCreditsMonthly *int      `json:"featured_credits_monthly"`
	HomepageCreditsMonthly *int      `json:"homepage_credits_monthly"`
	UrgentCreditsMonthly   *int      `json:"urgent_credits_monthly"`
	Features               *[]string `json:"features"`
	IsActive               *bool     `json:"is_active"`
	DisplayOrder           *int      `json:"display_order"`
}

type AssignPlanRequest struct {
	PlanID int64 `json:"plan_id" binding:"required"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

// CurrentEntitlement is the combined view returned to a company: its active
// subscription (if any), the plan behind it and the consumable balance.
type CurrentEntitlement struct {
	Subscription *CompanySubscription   `json:"subscription,omitempty"`
	Plan         *SubscriptionPlan      `json:"plan,omitempty"`
	Credits      *credit.BalanceSummary `json:"credits"`
	ActiveJobs   int                    `json:"active_jobs"`
}
