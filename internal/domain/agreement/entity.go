package agreement

import (
	"database/sql"
	"time"

	"fieldserve-service/internal/domain/plan"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

type BillingFrequency string

const (
	BillingMonthly BillingFrequency = "monthly"
	BillingAnnual  BillingFrequency = "annual"
)

// TermLength is the contract term of every agreement. Billing frequency
// controls payment cadence, not term length.
const TermLength = 365 * 24 * time.Hour

// RenewWindow is how close to end_date an agreement must be before the
// renew operation is allowed (and before it is flagged expiring soon).
const RenewWindow = 30 * 24 * time.Hour

// ServiceAgreement is one maintenance contract between a customer and a
// plan. Version is the optimistic-concurrency counter: every successful
// mutation increments it, and updates must present the version they read.
type ServiceAgreement struct {
	ID              int64  `json:"id" db:"id"`
	AgreementNumber string `json:"agreement_number" db:"agreement_number"`

	CompanyID  int64 `json:"company_id" db:"company_id"`
	CustomerID int64 `json:"customer_id" db:"customer_id"`
	PlanID     int64 `json:"plan_id" db:"plan_id"`

	Status Status `json:"status" db:"status"`

	StartDate   time.Time `json:"start_date" db:"start_date"`
	EndDate     time.Time `json:"end_date" db:"end_date"`
	RenewalDate time.Time `json:"renewal_date" db:"renewal_date"`

	BillingFrequency BillingFrequency `json:"billing_frequency" db:"billing_frequency"`
	PaymentMethod    sql.NullString   `json:"payment_method,omitempty" db:"payment_method"`
	AutoRenew        bool             `json:"auto_renew" db:"auto_renew"`

	VisitsUsed    int          `json:"visits_used" db:"visits_used"`
	LastVisitDate sql.NullTime `json:"last_visit_date,omitempty" db:"last_visit_date"`
	NextVisitDue  sql.NullTime `json:"next_visit_due,omitempty" db:"next_visit_due"`

	Notes sql.NullString `json:"notes,omitempty" db:"notes"`

	Version     int64        `json:"version" db:"version"`
	CancelledAt sql.NullTime `json:"cancelled_at,omitempty" db:"cancelled_at"`

	// ExpiringNotifiedAt records that the expiring-soon reminder went
	// out for the current term. Renewal clears it.
	ExpiringNotifiedAt sql.NullTime `json:"-" db:"expiring_notified_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Visit is the audit row behind the visits_used counter.
type Visit struct {
	ID           int64          `json:"id" db:"id"`
	AgreementID  int64          `json:"agreement_id" db:"agreement_id"`
	JobReference sql.NullString `json:"job_reference,omitempty" db:"job_reference"`
	Technician   sql.NullString `json:"technician,omitempty" db:"technician"`
	VisitedAt    time.Time      `json:"visited_at" db:"visited_at"`
	Notes        sql.NullString `json:"notes,omitempty" db:"notes"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// VisitUsage is the quota accounting triple shown on the dashboard.
// Remaining is intentionally not clamped: an over-served agreement
// reports a negative remainder rather than hiding the overrun.
type VisitUsage struct {
	Used      int     `json:"used"`
	Included  int     `json:"included"`
	Remaining int     `json:"remaining"`
	Percent   float64 `json:"percent"`
}

// UsageAgainst computes the visit quota accounting against a plan.
// Percent is defined as 0 when the plan includes no visits, so the
// progress bar never divides by zero.
func (a *ServiceAgreement) UsageAgainst(p *plan.AgreementPlan) VisitUsage {
	u := VisitUsage{
		Used:      a.VisitsUsed,
		Included:  p.VisitsIncluded,
		Remaining: p.VisitsIncluded - a.VisitsUsed,
	}
	if p.VisitsIncluded > 0 {
		u.Percent = float64(a.VisitsUsed) / float64(p.VisitsIncluded) * 100
	}
	return u
}

// ExpiringSoon reports whether the agreement ends within the renew window.
func (a *ServiceAgreement) ExpiringSoon(now time.Time) bool {
	return a.EndDate.Sub(now) < RenewWindow
}

// CanRenew reports whether the renew operation is allowed right now.
// This is the server-side check behind the dashboard's "Renew Now"
// gating: active and inside the 30-day window.
func (a *ServiceAgreement) CanRenew(now time.Time) bool {
	return a.Status == StatusActive && a.ExpiringSoon(now)
}

// IsTerminal reports whether the agreement has left the editable part
// of the lifecycle.
func (a *ServiceAgreement) IsTerminal() bool {
	return a.Status == StatusCancelled
}

// Summary aggregates per-company agreement counts for the dashboard.
type Summary struct {
	Total        int64 `json:"total"`
	Pending      int64 `json:"pending"`
	Active       int64 `json:"active"`
	Suspended    int64 `json:"suspended"`
	Expired      int64 `json:"expired"`
	Cancelled    int64 `json:"cancelled"`
	ExpiringSoon int64 `json:"expiring_soon"`
}
