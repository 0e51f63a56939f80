package authz

import (
	"fmt"

	"github.com/techmax/helpdesk-service/internal/domain"
	apperrors "github.com/techmax/helpdesk-service/pkg/util"
)

// Guard answers allow/deny questions for an identity against a role floor
// or an explicit permission. It has no side effects; an inactive identity
// never passes any check regardless of role.
type Guard struct {
	registry *Registry
}

// NewGuard builds a guard over the given registry.
func NewGuard(registry *Registry) *Guard {
	return &Guard{registry: registry}
}

// HasRank reports whether the user is active and holds at least the rank of
// the minimum role.
func (g *Guard) HasRank(user *domain.User, minimum domain.RoleName) bool {
	if user == nil || !user.Active {
		return false
	}
	return user.Rank() >= minimum.Rank()
}

// HasPermission reports whether the user is active and the assigned role
// grants the permission.
func (g *Guard) HasPermission(user *domain.User, permission string) bool {
	if user == nil || !user.Active {
		return false
	}
	return g.registry.grants(user.RoleName(), permission)
}

// RequireActive rejects inactive or missing identities.
func (g *Guard) RequireActive(user *domain.User) error {
	if user == nil {
		return apperrors.NewUnauthenticated("identity required")
	}
	if !user.Active {
		return apperrors.NewForbidden("account is deactivated")
	}
	return nil
}

// RequireRank rejects users below the minimum role's rank. The denial stays
// generic so callers do not leak why a check failed.
func (g *Guard) RequireRank(user *domain.User, minimum domain.RoleName) error {
	if err := g.RequireActive(user); err != nil {
		return err
	}
	if user.Rank() < minimum.Rank() {
		return apperrors.NewForbidden("insufficient role")
	}
	return nil
}

// RequirePermission rejects users whose role does not grant the permission.
func (g *Guard) RequirePermission(user *domain.User, permission string) error {
	if err := g.RequireActive(user); err != nil {
		return err
	}
	if !g.registry.grants(user.RoleName(), permission) {
		return apperrors.NewForbidden(fmt.Sprintf("permission '%s' required", permission))
	}
	return nil
}
