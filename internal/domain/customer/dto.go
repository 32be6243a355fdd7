package customer

type CreateCustomerRequest struct {
	Name        string   `json:"name" binding:"required,max=255"`
	Email       string   `json:"email" binding:"omitempty,email"`
	Phone       string   `json:"phone" binding:"omitempty,max=30"`
	AddressLine string   `json:"address_line"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	PostalCode  string   `json:"postal_code"`
	Tags        []string `json:"tags"`
}

type UpdateCustomerRequest struct {
	Name        *string  `json:"name" binding:"omitempty,max=255"`
	Email       *string  `json:"email" binding:"omitempty,email"`
	Phone       *string  `json:"phone" binding:"omitempty,max=30"`
	AddressLine *string  `json:"address_line"`
	City        *string  `json:"city"`
	State       *string  `json:"state"`
	PostalCode  *string  `json:"postal_code"`
	Tags        []string `json:"tags"`
}

type ListFilters struct {
	Search   string   `form:"search"`
	Tags     []string `form:"tags"`
	Page     int      `form:"page"`
	PageSize int      `form:"page_size" binding:"omitempty,max=100"`
}

type ListResponse struct {
	Customers  []Customer `json:"customers"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}
