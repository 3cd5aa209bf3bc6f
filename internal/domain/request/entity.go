// internal/domain/request/entity.go
package request

import (
	"database/sql"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Kind string

const (
	KindPlan    Kind = "plan"
	KindPackage Kind = "package"
)

// PlanRequest is a company's pending ask for a plan or a credit package.
// Only PENDING requests may transition; approval dispatches into the
// subscription lifecycle or the credit ledger.
type PlanRequest struct {
	ID        int64  `json:"id" db:"id"`
	CompanyID int64  `json:"company_id" db:"company_id"`
	Kind      Kind   `json:"kind" db:"kind"`
	Status    Status `json:"status" db:"status"`

	PlanID    sql.NullInt64 `json:"plan_id,omitempty" db:"plan_id"`
	PackageID sql.NullInt64 `json:"package_id,omitempty" db:"package_id"`

	Note sql.NullString `json:"note,omitempty" db:"note"`

	ResolvedBy sql.NullInt64 `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt sql.NullTime  `json:"resolved_at,omitempty" db:"resolved_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
