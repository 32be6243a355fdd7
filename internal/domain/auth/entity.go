package auth

import (
	"database/sql"
	"time"
)

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleDispatcher Role = "DISPATCHER"
	RoleTechnician Role = "TECHNICIAN"
	RoleOffice     Role = "OFFICE"
)

type User struct {
	ID           int64        `json:"id" db:"id"`
	CompanyID    int64        `json:"company_id" db:"company_id"`
	Email        string       `json:"email" db:"email"`
	PasswordHash string       `json:"-" db:"password_hash"`
	FullName     string       `json:"full_name" db:"full_name"`
	Role         Role         `json:"role" db:"role"`
	Active       bool         `json:"active" db:"active"`
	LastLoginAt  sql.NullTime `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}
