package domain

import "time"

// RoleName identifies one of the four canonical helpdesk roles.
type RoleName string

const (
	RoleCustomer   RoleName = "customer"
	RoleAgent      RoleName = "agent"
	RoleSupervisor RoleName = "supervisor"
	RoleAdmin      RoleName = "admin"
)

// roleRanks orders roles by authority. Rank is derived from the role name
// and never stored independently.
var roleRanks = map[RoleName]int{
	RoleCustomer:   0,
	RoleAgent:      1,
	RoleSupervisor: 2,
	RoleAdmin:      3,
}

// Rank returns the authority rank for the role name. Unknown or empty names
// rank below customer.
func (n RoleName) Rank() int {
	if rank, ok := roleRanks[n]; ok {
		return rank
	}
	return -1
}

// Valid reports whether the name is one of the canonical roles.
func (n RoleName) Valid() bool {
	_, ok := roleRanks[n]
	return ok
}

// Role is a named set of permissions. Names are globally unique and the
// permission set is fixed at role-definition time.
type Role struct {
	ID          string
	Name        RoleName
	Description string
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
