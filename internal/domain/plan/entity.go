package plan

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

type Trade string

const (
	TradeHVAC       Trade = "hvac"
	TradePlumbing   Trade = "plumbing"
	TradeElectrical Trade = "electrical"
)

// AgreementPlan is a company's catalog template for a maintenance
// contract tier. Agreements reference plans by ID; the pricing and
// benefit fields are treated as reference data and are not copied onto
// agreements.
type AgreementPlan struct {
	ID        int64  `json:"id" db:"id"`
	CompanyID int64  `json:"company_id" db:"company_id"`
	Code      string `json:"code" db:"code"`
	Name      string `json:"name" db:"name"`
	Trade     Trade  `json:"trade" db:"trade"`

	Description sql.NullString `json:"description,omitempty" db:"description"`

	MonthlyPrice float64 `json:"monthly_price" db:"monthly_price"`
	AnnualPrice  float64 `json:"annual_price" db:"annual_price"`
	DiscountPct  float64 `json:"discount_pct" db:"discount_pct"`

	VisitsIncluded  int  `json:"visits_included" db:"visits_included"`
	PriorityService bool `json:"priority_service" db:"priority_service"`
	NoDiagnosticFee bool `json:"no_diagnostic_fee" db:"no_diagnostic_fee"`

	IncludedServices pq.StringArray `json:"included_services,omitempty" db:"included_services"`

	Active bool `json:"active" db:"active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
