package models

import "time"

// User roles. Admins may mutate orders and the license pool; staff accounts
// are read-only on those resources.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// User is an authenticated account for the admin/storefront API.
type User struct {
	ID           int       `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"-"`
}
