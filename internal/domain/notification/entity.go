package notification

import "time"

type Type string

const (
	TypeAgreementExpiring Type = "agreement_expiring"
	TypeAgreementExpired  Type = "agreement_expired"
	TypeAgreementRenewed  Type = "agreement_renewed"
)

type Notification struct {
	ID          int64     `json:"id" db:"id"`
	CompanyID   int64     `json:"company_id" db:"company_id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	Type        Type      `json:"type" db:"type"`
	Title       string    `json:"title" db:"title"`
	Body        string    `json:"body" db:"body"`
	AgreementID int64     `json:"agreement_id,omitempty" db:"agreement_id"`
	Read        bool      `json:"read" db:"read"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
