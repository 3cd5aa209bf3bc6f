// internal/domain/credit/dto.go
package credit

type ApplyCreditRequest struct {
	CreditType Type `json:"credit_type" binding:"required"`
}

type AdminGrantRequest struct {
	CreditType   Type   `json:"credit_type" binding:"required"`
	Amount       int    `json:"amount" binding:"required,gt=0"`
	DurationDays int    `json:"duration_days"`
	Note         string `json:"note"`
}

type CreatePackageRequest struct {
	Name            string  `json:"name" binding:"required"`
	Description     string  `json:"description"`
	Price           float64 `json:"price" binding:"gte=0"`
	Currency        string  `json:"currency"`
	FeaturedCredits int     `json:"featured_credits" binding:"gte=0"`
	HomepageCredits int     `json:"homepage_credits" binding:"gte=0"`
	UrgentCredits   int     `json:"urgent_credits" binding:"gte=0"`
	DurationDays    int     `json:"duration_days"`
	DisplayOrder    int     `json:"display_order"`
}

type UpdatePackageRequest struct {
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	Price           *float64 `json:"price"`
	FeaturedCredits *int     `json:"featured_credits"`
	HomepageCredits *int     `json:"homepage_credits"`
	UrgentCredits   *int     `json:"urgent_credits"`
	DurationDays    *int     `json:"duration_days"`
	IsActive        *bool    `json:"is_active"`
	DisplayOrder    *int     `json:"display_order"`
}

type UsageListFilters struct {
	CreditType Type   `form:"credit_type"`
	ActiveOnly bool   `form:"active_only"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	SortBy     string `form:"sort_by"`
}

type UsageListResponse struct {
	Usages     []CreditUsage `json:"usages"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}
