package agreement

import (
	"time"

	"fieldserve-service/internal/domain/customer"
	"fieldserve-service/internal/domain/plan"
)

type CreateAgreementRequest struct {
	CustomerID       int64            `json:"customer_id" binding:"required"`
	PlanID           int64            `json:"plan_id" binding:"required"`
	Status           Status           `json:"status" binding:"omitempty,oneof=PENDING ACTIVE"`
	StartDate        *time.Time       `json:"start_date"`
	BillingFrequency BillingFrequency `json:"billing_frequency" binding:"required,oneof=monthly annual"`
	PaymentMethod    string           `json:"payment_method"`
	AutoRenew        bool             `json:"auto_renew"`
	Notes            string           `json:"notes"`
}

// UpdateAgreementRequest is the partial edit submitted by the operator.
// Version is mandatory: it must match the version the operator read, or
// the write is rejected as stale.
type UpdateAgreementRequest struct {
	Status           *Status           `json:"status" binding:"omitempty,oneof=PENDING ACTIVE SUSPENDED EXPIRED CANCELLED"`
	BillingFrequency *BillingFrequency `json:"billing_frequency" binding:"omitempty,oneof=monthly annual"`
	AutoRenew        *bool             `json:"auto_renew"`
	PaymentMethod    *string           `json:"payment_method"`
	Notes            *string           `json:"notes"`
	Version          *int64            `json:"version" binding:"required"`
}

type RecordVisitRequest struct {
	JobReference string     `json:"job_reference"`
	Technician   string     `json:"technician"`
	VisitedAt    *time.Time `json:"visited_at"`
	Notes        string     `json:"notes"`
}

type ListFilters struct {
	Status       *Status `form:"status" binding:"omitempty,oneof=PENDING ACTIVE SUSPENDED EXPIRED CANCELLED"`
	CustomerID   *int64  `form:"customer_id"`
	ExpiringSoon *bool   `form:"expiring_soon"`
	Search       string  `form:"search"`
	Page         int     `form:"page"`
	PageSize     int     `form:"page_size" binding:"omitempty,max=100"`
}

// Detail is the response shape for single-agreement reads: the row, the
// live plan and customer, and the derived display fields.
type Detail struct {
	Agreement    *ServiceAgreement   `json:"agreement"`
	Plan         *plan.AgreementPlan `json:"plan"`
	Customer     *customer.Customer  `json:"customer"`
	Usage        VisitUsage          `json:"usage"`
	ExpiringSoon bool                `json:"expiring_soon"`
	CanRenew     bool                `json:"can_renew"`
}

type ListResponse struct {
	Agreements []ServiceAgreement `json:"agreements"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}
