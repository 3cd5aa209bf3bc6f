// internal/domain/transaction/entity.go
package transaction

import (
	"database/sql"
	"time"
)

type Type string

const (
	TypeSubscriptionAssigned Type = "subscription_assigned"
	TypeSubscriptionRenewed  Type = "subscription_renewed"
	TypePackagePurchase      Type = "package_purchase"
	TypeAdminGrant           Type = "admin_grant"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
)

// Transaction is an append-only journal entry for monetary and
// credit-granting events. Rows are never mutated once COMPLETED.
type Transaction struct {
	ID        int64  `json:"id" db:"id"`
	Reference string `json:"reference" db:"reference"`
	CompanyID int64  `json:"company_id" db:"company_id"`
	Type      Type   `json:"type" db:"type"`
	Status    Status `json:"status" db:"status"`

	Amount   float64 `json:"amount" db:"amount"`
	Currency string  `json:"currency" db:"currency"`

	Description string        `json:"description" db:"description"`
	PlanID      sql.NullInt64 `json:"plan_id,omitempty" db:"plan_id"`
	PackageID   sql.NullInt64 `json:"package_id,omitempty" db:"package_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type ListFilters struct {
	Type     Type   `form:"type"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	SortBy   string `form:"sort_by"`
}

type ListResponse struct {
	Transactions []Transaction `json:"transactions"`
	Total        int64         `json:"total"`
	Page         int           `json:"page"`
	PageSize     int           `json:"page_size"`
	TotalPages   int           `json:"total_pages"`
}
