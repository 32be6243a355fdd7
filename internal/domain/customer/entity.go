package customer

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

type Customer struct {
	ID        int64  `json:"id" db:"id"`
	CompanyID int64  `json:"company_id" db:"company_id"`
	Name      string `json:"name" db:"name"`

	Email sql.NullString `json:"email,omitempty" db:"email"`
	Phone sql.NullString `json:"phone,omitempty" db:"phone"`

	AddressLine sql.NullString `json:"address_line,omitempty" db:"address_line"`
	City        sql.NullString `json:"city,omitempty" db:"city"`
	State       sql.NullString `json:"state,omitempty" db:"state"`
	PostalCode  sql.NullString `json:"postal_code,omitempty" db:"postal_code"`

	Tags pq.StringArray `json:"tags,omitempty" db:"tags"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
