package plan

type CreatePlanRequest struct {
	Code        string `json:"code" binding:"required,max=50"`
	Name        string `json:"name" binding:"required,max=255"`
	Trade       Trade  `json:"trade" binding:"required,oneof=hvac plumbing electrical"`
	Description string `json:"description"`

	MonthlyPrice float64 `json:"monthly_price" binding:"min=0"`
	AnnualPrice  float64 `json:"annual_price" binding:"min=0"`
	DiscountPct  float64 `json:"discount_pct" binding:"min=0,max=100"`

	VisitsIncluded  int  `json:"visits_included" binding:"min=0"`
	PriorityService bool `json:"priority_service"`
	NoDiagnosticFee bool `json:"no_diagnostic_fee"`

	IncludedServices []string `json:"included_services"`
}

type UpdatePlanRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description"`

	MonthlyPrice *float64 `json:"monthly_price" binding:"omitempty,min=0"`
	AnnualPrice  *float64 `json:"annual_price" binding:"omitempty,min=0"`
	DiscountPct  *float64 `json:"discount_pct" binding:"omitempty,min=0,max=100"`

	VisitsIncluded  *int  `json:"visits_included" binding:"omitempty,min=0"`
	PriorityService *bool `json:"priority_service"`
	NoDiagnosticFee *bool `json:"no_diagnostic_fee"`

	IncludedServices []string `json:"included_services"`
}

type ListFilters struct {
	Trade    *Trade `form:"trade" binding:"omitempty,oneof=hvac plumbing electrical"`
	Active   *bool  `form:"active"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size" binding:"omitempty,max=100"`
}

type ListResponse struct {
	Plans      []AgreementPlan `json:"plans"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}
