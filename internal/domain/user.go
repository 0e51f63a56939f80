package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusInactive  UserStatus = "INACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the resolved actor for every operation: account data plus the
// single assigned role. RoleID may be nil, meaning no role assigned; such
// users carry no permissions and rank below customer.
type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	RoleID       *string
	Role         *Role
	Department   *string
	Phone        *string
	Status       UserStatus
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleName returns the assigned role's name, or empty when unassigned.
func (u *User) RoleName() RoleName {
	if u == nil || u.Role == nil {
		return ""
	}
	return u.Role.Name
}

// Rank returns the authority rank derived from the assigned role.
func (u *User) Rank() int {
	return u.RoleName().Rank()
}

// IsSystemAdmin is a pure function of the canonical role name. There is no
// stored admin flag to drift out of sync.
func (u *User) IsSystemAdmin() bool {
	return u.RoleName() == RoleAdmin
}

// IsCustomer reports whether the user acts at customer rank. An unassigned
// role counts as customer-equivalent for visibility filters.
func (u *User) IsCustomer() bool {
	return u.Rank() <= RoleCustomer.Rank()
}

// IsStaff reports whether the user holds agent rank or above.
func (u *User) IsStaff() bool {
	return u.Rank() >= RoleAgent.Rank()
}
