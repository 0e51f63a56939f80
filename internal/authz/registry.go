package authz

import "github.com/techmax/helpdesk-service/internal/domain"

// Permission names checked by the guard. Role default sets below grant them.
const (
	PermTicketsCreateOwn      = "tickets.create_own"
	PermTicketsCreateAny      = "tickets.create_any"
	PermTicketsViewOwn        = "tickets.view_own"
	PermTicketsViewAll        = "tickets.view_all"
	PermTicketsViewAssigned   = "tickets.view_assigned"
	PermTicketsUpdateOwn      = "tickets.update_own"
	PermTicketsUpdateAssigned = "tickets.update_assigned"
	PermTicketsUpdateAny      = "tickets.update_any"
	PermTicketsUpdateStatus   = "tickets.update_status"
	PermTicketsAssign         = "tickets.assign"
	PermTicketsEscalate       = "tickets.escalate"
	PermTicketsDeleteAny      = "tickets.delete_any"
	PermTicketsCommentOwn     = "tickets.comment_own"
	PermTicketsCommentAny     = "tickets.comment_any"
	PermUsersCreate           = "users.create"
	PermUsersViewTeam         = "users.view_team"
	PermUsersViewAll          = "users.view_all"
	PermUsersUpdateAny        = "users.update_any"
	PermUsersDeleteAny        = "users.delete_any"
	PermRolesManage           = "roles.manage"
	PermSystemConfigure       = "system.configure"
)

// defaultPermissions holds the fixed per-role grant sets. The map is built
// once and handed to the registry; nothing mutates it at runtime.
var defaultPermissions = map[domain.RoleName][]string{
	domain.RoleCustomer: {
		PermTicketsCreateOwn,
		PermTicketsViewOwn,
		PermTicketsUpdateOwn,
		PermTicketsCommentOwn,
	},
	domain.RoleAgent: {
		PermTicketsCreateOwn,
		PermTicketsViewOwn,
		PermTicketsViewAssigned,
		PermTicketsUpdateAssigned,
		PermTicketsUpdateStatus,
		PermTicketsCommentAny,
		PermTicketsEscalate,
	},
	domain.RoleSupervisor: {
		PermTicketsCreateAny,
		PermTicketsViewAll,
		PermTicketsAssign,
		PermTicketsUpdateAny,
		PermTicketsUpdateStatus,
		PermTicketsEscalate,
		PermTicketsCommentAny,
		PermUsersViewTeam,
	},
	domain.RoleAdmin: {
		PermTicketsCreateAny,
		PermTicketsViewAll,
		PermTicketsUpdateAny,
		PermTicketsUpdateStatus,
		PermTicketsDeleteAny,
		PermTicketsAssign,
		PermTicketsEscalate,
		PermTicketsCommentAny,
		PermUsersCreate,
		PermUsersViewAll,
		PermUsersUpdateAny,
		PermUsersDeleteAny,
		PermRolesManage,
		PermSystemConfigure,
	},
}

// Registry resolves role names to their permission sets. It is immutable
// after construction.
type Registry struct {
	permissions map[domain.RoleName]map[string]struct{}
}

// NewRegistry builds a registry from explicit per-role grants.
func NewRegistry(grants map[domain.RoleName][]string) *Registry {
	permissions := make(map[domain.RoleName]map[string]struct{}, len(grants))
	for role, perms := range grants {
		set := make(map[string]struct{}, len(perms))
		for _, perm := range perms {
			set[perm] = struct{}{}
		}
		permissions[role] = set
	}
	return &Registry{permissions: permissions}
}

// NewDefaultRegistry builds a registry with the standard role grants.
func NewDefaultRegistry() *Registry {
	return NewRegistry(defaultPermissions)
}

// Resolve returns the permission list for a role name. Unknown names
// resolve to the empty set.
func (r *Registry) Resolve(name domain.RoleName) []string {
	set, ok := r.permissions[name]
	if !ok {
		return nil
	}
	perms := make([]string, 0, len(set))
	for perm := range set {
		perms = append(perms, perm)
	}
	return perms
}

func (r *Registry) grants(name domain.RoleName, permission string) bool {
	set, ok := r.permissions[name]
	if !ok {
		return false
	}
	_, ok = set[permission]
	return ok
}
