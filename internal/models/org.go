package models

import "time"

// Role is an organization-scoped role. The zero value means "no access".
type Role string

const (
	RoleNone     Role = ""
	RoleMember   Role = "member"
	RoleViewer   Role = "viewer"
	RoleReporter Role = "reporter"
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
)

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	ParentID  *string   `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership is a direct role grant for a user in one organization.
type Membership struct {
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
	Role           Role   `json:"role"`
	Status         string `json:"status"`
}

// DelegatedScope is an externally granted scope (e.g. cross-org reporting
// delegation). Revoked or expired scopes are filtered out at load time.
type DelegatedScope struct {
	OrganizationID string     `json:"organization_id"`
	DelegateUserID string     `json:"delegate_user_id"`
	Scope          string     `json:"scope"`
	ExpiresAt      *time.Time `json:"expires_at"`
	RevokedAt      *time.Time `json:"revoked_at"`
}
