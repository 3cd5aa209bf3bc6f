// internal/domain/request/dto.go
package request

type RequestPlanInput struct {
	PlanID int64  `json:"plan_id" binding:"required"`
	Note   string `json:"note"`
}

type RequestPackageInput struct {
	PackageID int64  `json:"package_id" binding:"required"`
	Note      string `json:"note"`
}

type ResolveInput struct {
	Note string `json:"note"`
}

type ListFilters struct {
	Status   Status `form:"status"`
	Kind     Kind   `form:"kind"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

type ListResponse struct {
	Requests   []PlanRequest `json:"requests"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}
