package session

import "time"

// Data is what we keep in redis per live token. The jti from the JWT
// is the session key; deleting the key logs the token out.
type Data struct {
	UserID    int64     `json:"user_id"`
	CompanyID int64     `json:"company_id"`
	JTI       string    `json:"jti"`
	Role      string    `json:"role"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
