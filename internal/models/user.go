package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleNationalAdmin UserRole = "NATIONAL_ADMIN"
	RoleStateAdmin    UserRole = "STATE_ADMIN"
	RoleSiteOfficer   UserRole = "SITE_OFFICER"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleNationalAdmin, RoleStateAdmin, RoleSiteOfficer:
		return true
	}
	return false
}

// User mirrors an identity provider account.
type User struct {
	ID        string    `db:"id" json:"id"`
	ClerkID   string    `db:"clerk_id" json:"clerkId"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      UserRole  `db:"role" json:"role"`
	StateID   *string   `db:"state_id" json:"stateId,omitempty"`
	SiteID    *string   `db:"site_id" json:"siteId,omitempty"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// UserRef is the embedded actor summary on related records.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role   UserRole
	Search string
	PageRequest
}
