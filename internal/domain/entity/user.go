package entity

import "github.com/google/uuid"

type User struct {
	ID    uuid.UUID
	Email string
	Token string
}

type Role string

const (
	RoleSuperAdmin Role = "super-admin"
	RoleAdmin      Role = "admin"
	RoleDeveloper  Role = "developer"
	RoleMember     Role = "member"
	RoleBasicUser  Role = "user"
)

// UserRights is the set of organization roles allowed to perform an action.
type UserRights []Role

var (
	RightsSuperAdmin = UserRights{RoleSuperAdmin}
	RightsAdmin      = UserRights{RoleSuperAdmin, RoleAdmin}
	RightsWriter     = UserRights{RoleSuperAdmin, RoleAdmin, RoleDeveloper}
	RightsReader     = UserRights{RoleSuperAdmin, RoleAdmin, RoleDeveloper, RoleMember}
	RightsUser       = UserRights{RoleSuperAdmin, RoleAdmin, RoleDeveloper, RoleMember, RoleBasicUser}
)

func (r UserRights) Allows(role Role) bool {
	for _, allowed := range r {
		if allowed == role {
			return true
		}
	}
	return false
}

type Project struct {
	ID             uuid.UUID
	Name           string
	OrganizationID uuid.UUID
}
